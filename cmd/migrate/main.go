// Package main 管理 product_sizes、orders、return_requests 表结构的迁移。
//
//	migrate -action=up                  执行全部待执行迁移
//	migrate -action=status              查看当前版本
//	migrate -action=down -steps=1       回滚一步
//	migrate -action=version -target=2   迁移到指定版本（2 = 不含 return_requests）
//	migrate -action=force -target=0     清除 dirty 状态
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/MorseWayne/bp_store/internal/config"
	"github.com/MorseWayne/bp_store/internal/database"
	"github.com/MorseWayne/bp_store/internal/logger"
)

type options struct {
	action string
	steps  int
	target uint
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.StringVar(&opts.action, "action", "up", "up | down | version | force | status")
	fs.IntVar(&opts.steps, "steps", 1, "number of steps for -action=down")
	fs.UintVar(&opts.target, "target", 0, "target version for -action=version or -action=force")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	switch opts.action {
	case "up", "status", "force":
	case "down":
		if opts.steps <= 0 {
			return opts, errors.New("-steps must be positive")
		}
	case "version":
		if opts.target == 0 {
			return opts, errors.New("-target must be specified for -action=version")
		}
	default:
		return opts, fmt.Errorf("unknown action %q", opts.action)
	}
	return opts, nil
}

func run(db *database.DB, dir string, opts options, lg *zap.Logger) error {
	switch opts.action {
	case "up":
		return db.RunMigrations(dir)
	case "down":
		return db.MigrateDown(dir, opts.steps)
	case "version":
		return db.MigrateToVersion(dir, opts.target)
	case "force":
		lg.Warn("forcing migration version, dirty state will be cleared", zap.Uint("target", opts.target))
		return db.ForceMigrationVersion(dir, opts.target)
	case "status":
		version, dirty, err := db.MigrationStatus(dir)
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	}
	return fmt.Errorf("unknown action %q", opts.action)
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("migrate: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	lg, err := logger.New(cfg.App.Env, cfg.Log.Level, cfg.Log.Encoding, "migrate", cfg.App.Version)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	db, err := database.New(context.Background(), cfg, lg)
	if err != nil {
		lg.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			lg.Error("failed to close database", zap.Error(err))
		}
	}()

	lg.Info("running migration", zap.String("action", opts.action), zap.String("dir", cfg.Migrations.Dir))
	if err := run(db, cfg.Migrations.Dir, opts, lg); err != nil {
		lg.Error("migration failed", zap.String("action", opts.action), zap.Error(err))
		os.Exit(1)
	}
	lg.Info("migration finished", zap.String("action", opts.action))
}
