// Package database 提供 MySQL 连接、事务辅助与 go-migrate 迁移。
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/MorseWayne/bp_store/internal/config"
)

// DB 封装数据库连接
type DB struct {
	*sql.DB
	logger *zap.Logger
	dsn    string
}

// DSN 根据配置构造 MySQL 连接串。时间统一按 UTC 读写；
// ClientFoundRows 使 UPDATE 返回匹配行数，用于判断库存条目是否存在。
func DSN(cfg config.DatabaseConfig) string {
	c := mysqldriver.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	c.DBName = cfg.DBName
	c.ParseTime = true
	c.Loc = time.UTC
	c.MultiStatements = true
	c.ClientFoundRows = true
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}

// New 创建数据库连接
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*DB, error) {
	dsn := DSN(cfg.Database)

	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// 配置连接池
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.DBName),
	)

	return &DB{DB: sqlDB, logger: logger, dsn: dsn}, nil
}

// WithTx 在事务中执行 fn，fn 返回错误时回滚
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// IsDuplicateKey 判断是否为唯一键冲突（MySQL 1062）
func IsDuplicateKey(err error) bool {
	var me *mysqldriver.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// IsDuplicateKeyOn 判断是否为指定唯一键上的冲突，MySQL 在错误信息中带出键名
func IsDuplicateKeyOn(err error, key string) bool {
	var me *mysqldriver.MySQLError
	return errors.As(err, &me) && me.Number == 1062 && strings.Contains(me.Message, key)
}

// withMigrate 为一次迁移操作创建独立连接和 migrate 实例，避免出错时影响主连接池
func (db *DB) withMigrate(migrationsDir string, fn func(m *migrate.Migrate) error) error {
	migrateSQLDB, err := sql.Open("mysql", db.dsn)
	if err != nil {
		return fmt.Errorf("open database for migration: %w", err)
	}
	defer migrateSQLDB.Close()

	driver, err := mysql.WithInstance(migrateSQLDB, &mysql.Config{})
	if err != nil {
		return fmt.Errorf("create mysql driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "mysql", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	return fn(m)
}

// currentVersion 读取当前版本，脏状态直接报错
func currentVersion(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("get current version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("database is in dirty state at version %d, fix it with -action=force", version)
	}
	return version, nil
}

// RunMigrations 执行所有待执行的向上迁移
func (db *DB) RunMigrations(migrationsDir string) error {
	return db.withMigrate(migrationsDir, func(m *migrate.Migrate) error {
		from, err := currentVersion(m)
		if err != nil {
			return err
		}
		if err := m.Up(); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				db.logger.Info("no new migrations to apply", zap.Uint("version", from))
				return nil
			}
			return fmt.Errorf("run migrations: %w", err)
		}
		to, _, _ := m.Version()
		db.logger.Info("migrations applied", zap.Uint("from_version", from), zap.Uint("to_version", to))
		return nil
	})
}

// MigrateDown 回滚指定步数，生产环境慎用
func (db *DB) MigrateDown(migrationsDir string, steps int) error {
	return db.withMigrate(migrationsDir, func(m *migrate.Migrate) error {
		from, err := currentVersion(m)
		if err != nil {
			return err
		}
		if err := m.Steps(-steps); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		to, _, _ := m.Version()
		db.logger.Info("migration rollback completed",
			zap.Uint("from_version", from),
			zap.Uint("to_version", to),
			zap.Int("steps", steps),
		)
		return nil
	})
}

// MigrateToVersion 迁移到指定版本
func (db *DB) MigrateToVersion(migrationsDir string, version uint) error {
	return db.withMigrate(migrationsDir, func(m *migrate.Migrate) error {
		from, err := currentVersion(m)
		if err != nil {
			return err
		}
		if err := m.Migrate(version); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				db.logger.Info("already at target version", zap.Uint("version", version))
				return nil
			}
			return fmt.Errorf("migrate to version %d: %w", version, err)
		}
		db.logger.Info("migration to version completed", zap.Uint("from_version", from), zap.Uint("to_version", version))
		return nil
	})
}

// ForceMigrationVersion 强制设置版本以清除脏状态
func (db *DB) ForceMigrationVersion(migrationsDir string, version uint) error {
	return db.withMigrate(migrationsDir, func(m *migrate.Migrate) error {
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("force migration version: %w", err)
		}
		db.logger.Warn("migration version forced", zap.Uint("version", version))
		return nil
	})
}

// MigrationStatus 返回当前版本和是否处于脏状态，尚未迁移时版本为 0
func (db *DB) MigrationStatus(migrationsDir string) (version uint, dirty bool, err error) {
	err = db.withMigrate(migrationsDir, func(m *migrate.Migrate) error {
		var verr error
		version, dirty, verr = m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			return nil
		}
		return verr
	})
	return version, dirty, err
}
