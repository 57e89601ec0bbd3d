//go:build wireinject
// +build wireinject

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

package cmd

import (
	"context"
	"net/url"
	"time"

	"github.com/ajjensen13/gke"
	"github.com/golang-migrate/migrate/v4"
	"github.com/google/wire"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/tmcarthur/barloader/internal/diag"
	"github.com/tmcarthur/barloader/internal/extract"
	"github.com/tmcarthur/barloader/internal/ingest"
)

func timezone() (tz *time.Location, err error) {
	panic(wire.Build(provideTimezone, provideAppConfig))
}

func quoteClient() (client *extract.Client, err error) {
	panic(wire.Build(provideQuoteClient, provideAppConfig, provideAppSecrets))
}

func diagLog() (dl *diag.Log, err error) {
	panic(wire.Build(provideDiagLog, provideAppConfig, provideTimezone))
}

func dataSourceName() (dsn *url.URL, err error) {
	panic(wire.Build(provideDataSourceName, provideDbSecrets, provideAppConfig))
}

func openPool(ctx context.Context) (*pgxpool.Pool, func(), error) {
	panic(wire.Build(provideDbConnPool, provideDataSourceName, provideAppConfig, provideDbSecrets))
}

func openConn(ctx context.Context, lg gke.Logger, pool *pgxpool.Pool) (*pgx.Conn, func(), error) {
	panic(wire.Build(provideDbConn, provideBackoff, provideBackoffNotifier))
}

func newRunner(client *extract.Client, conn *pgx.Conn, dl *diag.Log, tz *time.Location) *ingest.Runner {
	panic(wire.Build(provideRunner, provideStore))
}

func migrationSourceURL() (uri string, err error) {
	panic(wire.Build(provideMigrationSourceURL, provideAppConfig))
}

func logger() (lg gke.Logger, cleanup func()) {
	panic(wire.Build(provideLogger))
}

func migrator(lg gke.Logger) (m *migrate.Migrate, err error) {
	panic(wire.Build(provideMigrator, migrationSourceURL, dataSourceName))
}
