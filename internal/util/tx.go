/*
Copyright © 2026 T. McArthur

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package util

import (
	"context"
	"fmt"
	"sync/atomic"

	"cloud.google.com/go/logging"
	"github.com/jackc/pgx/v4"
)

var nextTxId uint32

// RunTx runs f inside a transaction on the run's connection, committing on
// success and rolling back on error. A failed f never leaves a partially
// committed batch.
func RunTx(ctx context.Context, conn *pgx.Conn, f func(ctx context.Context, tx pgx.Tx) error) error {
	txid := atomic.AddUint32(&nextTxId, 1)
	ctx = WithLoggerValue(ctx, "db_conn_tx_id", fmt.Sprintf("tx_%d", txid))

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to create transaction [%d]: %w", txid, err)
	}
	Logf(ctx, logging.Debug, "started new database transaction [%d]", txid)

	err = f(ctx, tx)
	if err != nil {
		Logf(ctx, logging.Debug, "rolling back database transaction [%d]", txid)
		errRollback := tx.Rollback(ctx)
		if errRollback != nil {
			Logf(ctx, logging.Warning, "failed to rollback database transaction [%d]: %v", txid, errRollback)
		}
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return fmt.Errorf("failed to commit database transaction [%d]: %w", txid, err)
	}

	Logf(ctx, logging.Debug, "successfully committed database transaction [%d]", txid)
	return nil
}
