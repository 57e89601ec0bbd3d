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
	"fmt"
	"net/url"
	"time"

	"github.com/ajjensen13/config"
	"github.com/ajjensen13/gke"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/tmcarthur/barloader/internal/diag"
	"github.com/tmcarthur/barloader/internal/extract"
	"github.com/tmcarthur/barloader/internal/ingest"
	"github.com/tmcarthur/barloader/internal/load"
	"github.com/tmcarthur/barloader/internal/util"
)

const (
	dbSecretName  = "barloader-db-secret.json"
	appConfigName = "barloader-config-cm.json"
	apiSecretName = "barloader-api-secret.json"
)

// defaultSymbols is used when the config map names none.
var defaultSymbols = []string{"AAPL", "MSFT", "GOOG", "AMZN", "TSLA", "SPY", "QQQ", "^TNX"}

type appConfig struct {
	Timezone           string   `json:"timezone"`
	WindowMinutes      int      `json:"window_minutes" validate:"gte=0,lte=1440"`
	Symbols            []string `json:"symbols"`
	QuoteBaseURL       string   `json:"quote_base_url" validate:"required,url"`
	DataSourceName     string   `json:"data_source_name" validate:"required"`
	MigrationSourceURL string   `json:"migration_source_url"`
	LogDir             string   `json:"log_dir"`
	MarketOpen         string   `json:"market_open"`
	MarketClose        string   `json:"market_close"`
}

type appSecrets struct {
	ApiKey string `json:"api_key" validate:"required"`
}

func provideAppConfig() (*appConfig, error) {
	var result appConfig
	err := config.InterfaceJson(appConfigName, &result)
	if err != nil {
		return nil, err
	}

	if result.WindowMinutes == 0 {
		result.WindowMinutes = 60
	}
	if len(result.Symbols) == 0 {
		result.Symbols = defaultSymbols
	}
	if result.LogDir == "" {
		result.LogDir = "logs"
	}
	if result.MarketOpen == "" {
		result.MarketOpen = "04:00"
	}
	if result.MarketClose == "" {
		result.MarketClose = "20:00"
	}

	err = validator.New().Struct(&result)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", appConfigName, err)
	}
	return &result, nil
}

func provideAppSecrets() (*appSecrets, error) {
	var result appSecrets
	err := config.InterfaceJson(apiSecretName, &result)
	if err != nil {
		return nil, err
	}
	err = validator.New().Struct(&result)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", apiSecretName, err)
	}
	return &result, nil
}

func provideDbSecrets() (*url.Userinfo, error) {
	ui, err := config.Userinfo(dbSecretName)
	if err != nil {
		return nil, err
	}
	return ui, nil
}

func provideTimezone(cfg *appConfig) (*time.Location, error) {
	if cfg.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(cfg.Timezone)
}

func provideQuoteClient(cfg *appConfig, secrets *appSecrets) *extract.Client {
	return extract.NewClient(cfg.QuoteBaseURL, secrets.ApiKey, extract.DefaultTimeout)
}

func provideDiagLog(cfg *appConfig, tz *time.Location) *diag.Log {
	return diag.New(cfg.LogDir, tz)
}

func provideBackoff() backoff.BackOff {
	result := backoff.NewExponentialBackOff()
	result.InitialInterval = time.Second
	result.MaxElapsedTime = time.Minute
	return result
}

func provideBackoffNotifier(lg gke.Logger) backoff.Notify {
	return func(err error, duration time.Duration) {
		lg.Warning(gke.NewFmtMsgData("database not reachable, waiting %v before retrying: %v", duration, err))
	}
}

func provideRunner(client *extract.Client, db *load.DB, dl *diag.Log, tz *time.Location) *ingest.Runner {
	return &ingest.Runner{
		Fetcher:  client,
		Store:    db,
		Diag:     dl,
		TZ:       tz,
		Throttle: time.Second,
	}
}

func provideStore(conn *pgx.Conn) *load.DB {
	return &load.DB{Conn: conn}
}

func provideDataSourceName(user *url.Userinfo, cfg *appConfig) (dsn *url.URL, err error) {
	dsn, err = url.Parse(cfg.DataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to parse data source name: %w", err)
	}
	dsn.User = user

	return dsn, nil
}

func provideDbConnPool(ctx context.Context, dsn *url.URL) (ret *pgxpool.Pool, cleanup func(), err error) {
	pool, err := pgxpool.Connect(ctx, dsn.String())
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open database connection pool: %w", err)
	}

	return pool, pool.Close, nil
}

// provideDbConn acquires and pings one connection, retrying with backoff so a
// cold database behind the cron schedule gets a chance to come up.
func provideDbConn(ctx context.Context, pool *pgxpool.Pool, bo backoff.BackOff, bon backoff.Notify) (*pgx.Conn, func(), error) {
	var acquired *pgxpool.Conn
	err := backoff.RetryNotify(func() error {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire database connection: %w", err)
		}
		err = conn.Conn().Ping(ctx)
		if err != nil {
			conn.Release()
			return fmt.Errorf("failed to ping database: %w", err)
		}
		acquired = conn
		return nil
	}, backoff.WithContext(bo, ctx), bon)
	if err != nil {
		return nil, func() {}, err
	}

	return acquired.Conn(), acquired.Release, nil
}

func provideMigrationSourceURL(cfg *appConfig) string {
	return cfg.MigrationSourceURL
}

func provideLogger() (lg gke.Logger, cleanup func()) {
	lg, cleanup, err := gke.NewLogger(context.Background())
	if err != nil {
		panic(err)
	}

	gke.LogEnv(lg)
	gke.LogMetadata(lg)

	return lg, cleanup
}

func provideMigrator(lg gke.Logger, databaseURL *url.URL, sourceURL string) (m *migrate.Migrate, err error) {
	m, err = migrate.New(sourceURL, databaseURL.String())
	if err != nil {
		return nil, err
	}
	m.Log = migrationLogger{lg}
	return m, err
}

type migrationLogger struct {
	gke.Logger
}

func (m migrationLogger) Printf(format string, v ...interface{}) {
	m.Defaultf(format, v...)
}

func (m migrationLogger) Verbose() bool {
	return false
}

// loggerContext wires the context logger used by util.Logf throughout the
// pipeline packages.
func loggerContext(ctx context.Context, lg gke.Logger) context.Context {
	return util.WithLogger(ctx, lg)
}
