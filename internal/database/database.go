package database

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	// pure-Go driver registered as "sqlite"
	_ "modernc.org/sqlite"

	"buildledger/internal/logging"
)

func Connect(dsn string) (*gorm.DB, error) {
	return ConnectWithLogger(dsn, logger.Default.LogMode(logger.Warn))
}

// ConnectWithLogger opens PostgreSQL for postgres:// DSNs and SQLite otherwise.
func ConnectWithLogger(dsn string, gormLogger logger.Interface) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}

	if IsPostgres(dsn) {
		logging.Logger.Info("connecting to PostgreSQL")
		return gorm.Open(postgres.Open(dsn), cfg)
	}

	logging.Logger.WithFields(logrus.Fields{"dsn": dsn}).Info("using SQLite for local development")

	return gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        sqliteDSN(dsn),
		}),
		cfg,
	)
}

func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// sqliteDSN adds a busy timeout and makes BEGIN take the write lock up front, so two
// writers queue instead of failing on lock upgrade.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_txlock=") || dsn == ":memory:" {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"
}
