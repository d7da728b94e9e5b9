package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MorseWayne/bp_store/internal/api"
	"github.com/MorseWayne/bp_store/internal/async"
	"github.com/MorseWayne/bp_store/internal/cache"
	"github.com/MorseWayne/bp_store/internal/config"
	"github.com/MorseWayne/bp_store/internal/database"
	"github.com/MorseWayne/bp_store/internal/limiter"
	"github.com/MorseWayne/bp_store/internal/logger"
	mw "github.com/MorseWayne/bp_store/internal/middleware"
	"github.com/MorseWayne/bp_store/internal/notify"
	"github.com/MorseWayne/bp_store/internal/repo"
	"github.com/MorseWayne/bp_store/internal/router"
	"github.com/MorseWayne/bp_store/internal/service"
)

// initConfigAndLogger 初始化配置和日志器
func initConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %v", err)
	}

	lg, err := logger.New(cfg.App.Env, cfg.Log.Level, cfg.Log.Encoding, cfg.App.Name, cfg.App.Version)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %v", err)
	}

	return cfg, lg, nil
}

// initDatabase 初始化数据库连接并执行迁移
func initDatabase(ctx context.Context, cfg *config.Config, lg *zap.Logger) (*database.DB, error) {
	db, err := database.New(ctx, cfg, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// HTTP 服务启动前完成迁移
	lg.Sugar().Infow("using migrations directory", "path", cfg.Migrations.Dir)
	if err := db.RunMigrations(cfg.Migrations.Dir); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run database migrations: %v", err)
	}

	return db, nil
}

// needsRedis Redis 缓存或限流任一启用时需要连接 Redis
func needsRedis(cfg *config.Config) bool {
	return (cfg.Cache.Enabled && cfg.Cache.Type == "redis") || cfg.RateLimit.Enabled
}

// initRedis 连接 Redis，失败时返回 nil，由调用方降级为进程内实现
func initRedis(ctx context.Context, cfg *config.Config, lg *zap.Logger) *redis.Client {
	if !needsRedis(cfg) {
		return nil
	}
	addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	client, err := cache.NewRedisClient(ctx, addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		lg.Sugar().Warnw("failed to connect to Redis, falling back to in-process implementations", "addr", addr, "error", err)
		return nil
	}
	lg.Sugar().Infow("redis connected", "addr", addr)
	return client
}

// initCache 初始化缓存实例
func initCache(cfg *config.Config, client redis.UniversalClient, lg *zap.Logger) cache.Cache {
	if !cfg.Cache.Enabled {
		lg.Sugar().Infow("cache disabled")
		return cache.NewNullCache()
	}
	if cfg.Cache.Type == "redis" && client != nil {
		lg.Sugar().Infow("cache enabled", "type", "redis", "ttl", cfg.Cache.TTL)
		return cache.NewRedisCache(client, "bp:cache")
	}
	typ := "memory"
	if cfg.Cache.Type == "redis" {
		typ = "memory (fallback)"
	}
	lg.Sugar().Infow("cache enabled", "type", typ, "ttl", cfg.Cache.TTL)
	return cache.NewMemoryCache()
}

// initLimiter 初始化顾客查询接口的限流器，未启用时返回 nil
func initLimiter(cfg *config.Config, client redis.UniversalClient, lg *zap.Logger) limiter.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	lc := limiter.Config{Rate: cfg.RateLimit.LookupsPerMinute, Window: time.Minute, KeyPrefix: "bp:limit"}
	if client != nil {
		fw, err := limiter.NewFixedWindowLimiter(client, lc)
		if err == nil {
			lg.Sugar().Infow("rate limit enabled", "type", "redis", "per_minute", lc.Rate)
			return fw
		}
		lg.Sugar().Warnw("invalid rate limit config, using in-process limiter", "error", err)
	}
	lg.Sugar().Infow("rate limit enabled", "type", "memory", "per_minute", lc.Rate)
	return limiter.NewMemoryFixedWindowLimiter(lc)
}

// initSenders 按配置创建各渠道发送器，未配置的渠道只记录日志。
// 返回的 closer 在退出时刷新 Kafka writer。
func initSenders(cfg *config.Config, lg *zap.Logger) (map[notify.Channel]notify.Sender, func() error) {
	logSender := notify.NewLogSender(lg)
	senders := map[notify.Channel]notify.Sender{
		notify.ChannelEmail: logSender,
		notify.ChannelChat:  logSender,
		notify.ChannelEvent: logSender,
	}
	closer := func() error { return nil }

	n := cfg.Notify
	if n.SMTPHost != "" {
		email, err := notify.NewEmailSender(notify.EmailConfig{
			Host:     n.SMTPHost,
			Port:     n.SMTPPort,
			Username: n.SMTPUsername,
			Password: n.SMTPPassword,
			From:     n.MailFrom,
		})
		if err != nil {
			lg.Sugar().Warnw("email channel disabled", "error", err)
		} else {
			senders[notify.ChannelEmail] = email
		}
	}
	if n.ChatAPIURL != "" {
		chat, err := notify.NewChatSender(notify.ChatConfig{
			BaseURL:  n.ChatAPIURL,
			APIKey:   n.ChatAPIKey,
			SenderID: n.ChatSenderID,
		}, nil)
		if err != nil {
			lg.Sugar().Warnw("chat channel disabled", "error", err)
		} else {
			senders[notify.ChannelChat] = chat
		}
	}
	if len(n.KafkaBrokers) > 0 {
		events, err := notify.NewKafkaSender(n.KafkaBrokers, n.KafkaTopic)
		if err != nil {
			lg.Sugar().Warnw("event channel disabled", "error", err)
		} else {
			senders[notify.ChannelEvent] = events
			closer = events.Close
		}
	}

	for ch, s := range senders {
		if _, ok := s.(*notify.LogSender); ok {
			lg.Sugar().Infow("notification channel not configured, logging only", "channel", ch)
		}
	}
	return senders, closer
}

// initDependencies 初始化应用依赖（仓储、服务、处理器）
func initDependencies(cfg *config.Config, db *database.DB, cacheInstance cache.Cache, notifier service.Notifier, lg *zap.Logger) *router.Dependencies {
	// 仓储 -> 服务 -> API处理器
	sizeRepo := repo.NewProductSizeRepository(db.DB)
	if cfg.Cache.Enabled {
		sizeRepo = repo.NewCachedProductSizeRepository(sizeRepo, cacheInstance, cfg.Cache.TTL, lg)
	}
	orderRepo := repo.NewOrderRepository(db.DB)
	returnRepo := repo.NewReturnRepository(db.DB)

	svcConfig := service.Config{
		StoreName: cfg.App.Name,
		Bank:      cfg.Bank,
		Policy:    cfg.Policy,
	}
	inventoryService := service.NewInventoryService(sizeRepo, lg)
	orderService := service.NewOrderService(orderRepo, returnRepo, inventoryService, notifier, svcConfig, lg)
	returnService := service.NewReturnService(returnRepo, orderRepo, inventoryService, notifier, svcConfig, lg)

	return &router.Dependencies{
		OrderHandler:   api.NewOrderHandler(orderService, lg),
		ProductHandler: api.NewProductHandler(inventoryService, lg),
		ReturnHandler:  api.NewReturnHandler(returnService, lg),
		AdminVerifier:  mw.NewSecretVerifier(cfg.Admin),
		HealthCheck:    db.PingContext,
	}
}

// startServer 启动服务器并处理优雅关闭，退出前等待在途通知发送完成
func startServer(cfg *config.Config, handler http.Handler, runner *async.GoroutineRunner, lg *zap.Logger) {
	addr := fmt.Sprintf(":%d", cfg.App.Port)
	lg.Sugar().Infow("server starting", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Sugar().Errorw("server error", "err", err)
		}
	case <-quit:
		lg.Sugar().Infow("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Sugar().Errorw("server shutdown error", "err", err)
	}
	if err := runner.Wait(ctx); err != nil {
		lg.Sugar().Warnw("pending notifications abandoned", "err", err)
	}
	lg.Sugar().Infow("server exited")
}

// main 为应用入口，协调各个组件的初始化和启动
func main() {
	ctx := context.Background()

	// 1) 加载配置和初始化日志
	cfg, lg, err := initConfigAndLogger()
	if err != nil {
		log.Fatalf("failed to initialize config and logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	// 2) 初始化数据库连接并执行迁移
	db, err := initDatabase(ctx, cfg, lg)
	if err != nil {
		lg.Sugar().Fatalw("failed to initialize database", "err", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			lg.Sugar().Errorw("failed to close database connection", "err", err)
		}
	}()

	// 3) Redis、缓存和限流
	redisClient := initRedis(ctx, cfg, lg)
	var universal redis.UniversalClient
	if redisClient != nil {
		universal = redisClient
		defer func() { _ = redisClient.Close() }()
	}
	cacheInstance := initCache(cfg, universal, lg)
	lookupLimiter := initLimiter(cfg, universal, lg)

	// 4) 通知
	runner := async.NewGoroutineRunner(lg)
	senders, closeSenders := initSenders(cfg, lg)
	defer func() {
		if err := closeSenders(); err != nil {
			lg.Sugar().Errorw("failed to close notification senders", "err", err)
		}
	}()
	dispatcher := notify.NewDispatcher(senders, notify.MustTemplates(), runner, lg)

	// 5) 初始化应用依赖并设置路由
	deps := initDependencies(cfg, db, cacheInstance, dispatcher, lg)
	deps.LookupLimiter = lookupLimiter
	handler := router.New().Setup(cfg, deps, lg)

	// 6) 启动 HTTP 服务器
	startServer(cfg, handler, runner, lg)
}
