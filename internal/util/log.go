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

	"cloud.google.com/go/logging"
	"github.com/ajjensen13/gke"
)

type contextKey int

const (
	loggerContextKey contextKey = iota
	extraContextKey
)

// WithLoggerValue attaches a key/value pair that every Logf call on the
// returned context will include in its payload.
func WithLoggerValue(ctx context.Context, key string, val interface{}) context.Context {
	var nm map[string]interface{}
	p := ctx.Value(extraContextKey)
	if p != nil {
		pm := p.(map[string]interface{})
		nm = make(map[string]interface{}, len(pm)+1)
		for k, v := range pm {
			nm[k] = v
		}
	} else {
		nm = map[string]interface{}{}
	}

	nm[key] = val
	return context.WithValue(ctx, extraContextKey, nm)
}

func WithLogger(ctx context.Context, lg gke.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, lg)
}

type logPayload struct {
	Message string
	Values  map[string]interface{}
}

func (l logPayload) String() string {
	return l.Message
}

// Logf logs through the context logger. Contexts without a logger (tests)
// drop the entry.
func Logf(ctx context.Context, severity logging.Severity, format string, argv ...interface{}) {
	lg, ok := ctx.Value(loggerContextKey).(gke.Logger)
	if !ok {
		return
	}
	entry := logging.Entry{Severity: severity, Payload: newLogPayload(ctx, fmt.Sprintf(format, argv...))}
	gke.SetupSourceLocation(&entry, 2)
	lg.Log(entry)
}

func newLogPayload(ctx context.Context, msg string) logPayload {
	ret := logPayload{Message: msg}
	if v := ctx.Value(extraContextKey); v != nil {
		ret.Values = v.(map[string]interface{})
	}
	return ret
}
