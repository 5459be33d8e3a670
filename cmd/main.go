package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	grpchandler "github.com/dtroode/beatstream-server/internal/api/grpc/handler"
	grpcrouter "github.com/dtroode/beatstream-server/internal/api/grpc/router"
	grpcserver "github.com/dtroode/beatstream-server/internal/api/grpc/server"
	httpctx "github.com/dtroode/beatstream-server/internal/api/http/context"
	httprouter "github.com/dtroode/beatstream-server/internal/api/http/router"
	httpserver "github.com/dtroode/beatstream-server/internal/api/http/server"
	"github.com/dtroode/beatstream-server/internal/cache"
	"github.com/dtroode/beatstream-server/internal/config"
	"github.com/dtroode/beatstream-server/internal/health"
	"github.com/dtroode/beatstream-server/internal/logger"
	"github.com/dtroode/beatstream-server/internal/model"
	"github.com/dtroode/beatstream-server/internal/ratelimit"
	"github.com/dtroode/beatstream-server/internal/repository/mongo"
	"github.com/dtroode/beatstream-server/internal/server"
	"github.com/dtroode/beatstream-server/internal/service"
	"github.com/dtroode/beatstream-server/internal/storage/minio"
	storeredis "github.com/dtroode/beatstream-server/internal/storage/redis"
	"github.com/dtroode/beatstream-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

const (
	shutdownTimeout = 10 * time.Second
	pingTimeout     = 2 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := newLogger(cfg)

	store := connectStore(ctx, cfg, logger)
	defer store.Close()

	db, err := mongo.NewConnection(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.ConnectTimeout)
	if err != nil {
		logger.Fatal("failed to initialize database", "error", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = db.Close(closeCtx)
	}()

	audio, err := minio.Connect(ctx, minio.Options{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatal("failed to initialize storage client", "error", err)
	}

	userRepo := mongo.NewUserRepository(db)
	songRepo := mongo.NewSongRepository(db)

	cacheService := cache.NewService(store, logger)
	limiter := ratelimit.NewLimiter(store, logger)
	tokenManager := token.NewJWT(cfg.JWT.Secret, cfg.JWT.RefreshSecret)

	tokenService := service.NewTokenService(tokenManager, store, userRepo, logger, service.TokenPolicy{
		AccessTTL:          cfg.JWT.AccessTTL,
		RememberAccessTTL:  cfg.JWT.RememberAccessTTL,
		RefreshTTL:         cfg.JWT.RefreshTTL,
		RememberRefreshTTL: cfg.JWT.RememberRefreshTTL,
		PreciseRotationTTL: cfg.JWT.PreciseRotationTTL,
	})
	authService := service.NewAuth(
		userRepo,
		tokenService,
		limiter,
		cache.NewSessionCache(cacheService),
		store,
		service.NewLogNotifier(logger),
		logger,
		service.AuthPolicy{MaxLoginAttempts: cfg.Login.MaxAttempts, LockDuration: cfg.Login.LockDuration},
	)
	musicService := service.NewMusic(songRepo, audio, service.NewCaches(cacheService, audio), cfg.Storage.PresignTTL, logger)

	checker := health.NewChecker(logger, pingTimeout,
		health.Component{Name: "store", Pinger: store},
		health.Component{Name: "mongo", Pinger: db, Critical: true},
		health.Component{Name: "minio", Pinger: audio},
	)
	grpcHealth := grpchandler.NewHealth(checker, logger)

	scheduler := cron.New()
	sweeper := cache.NewSweeper(store, logger,
		ratelimit.KeyPrefix,
		service.BlacklistPrefix,
		service.RefreshTokenPrefix,
		service.RevokedBeforePrefix,
		service.PasswordResetPrefix,
	)
	if cfg.Cache.SweepSchedule != "" {
		if _, err := scheduler.AddFunc(cfg.Cache.SweepSchedule, sweeper.Run); err != nil {
			logger.Fatal("invalid cache sweep schedule", "schedule", cfg.Cache.SweepSchedule, "error", err)
		}
	}
	if _, err := scheduler.AddFunc(cfg.Cache.HealthSchedule, func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()
		grpcHealth.Refresh(refreshCtx)
	}); err != nil {
		logger.Fatal("invalid health schedule", "schedule", cfg.Cache.HealthSchedule, "error", err)
	}
	grpcHealth.Refresh(ctx)
	scheduler.Start()

	r := httprouter.New(
		authService,
		musicService,
		tokenService,
		limiter,
		cacheService,
		checker,
		httpctx.NewManager(),
		logger,
		httprouter.Options{
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			TrustProxy:     cfg.HTTP.TrustProxy,
			Production:     cfg.IsProduction(),
		},
	)
	servers := []model.Server{
		httpserver.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port), httpserver.Timeouts{
			Read:  cfg.HTTP.ReadTimeout,
			Write: cfg.HTTP.WriteTimeout,
		}),
	}
	if cfg.GRPC.Enabled {
		servers = append(servers, registerGRPCServer(grpcHealth, logger, fmt.Sprintf(":%s", cfg.GRPC.Port)))
	}

	var sl model.SecurityLayer
	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(s model.Server) {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.Address())
				stop()
			}
		}(s)
	}

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	grpcHealth.Shutdown()
	<-scheduler.Stop().Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	for _, s := range servers {
		if err := s.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.Address())
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func newLogger(cfg *config.Config) *logger.Logger {
	if cfg.IsProduction() {
		return logger.NewJSON(os.Stdout, cfg.LogLevel)
	}
	return logger.New(cfg.LogLevel)
}

// connectStore starts without the store when it is unreachable. Every store
// call is soft, so the service runs degraded until the store comes back.
func connectStore(ctx context.Context, cfg *config.Config, logger *logger.Logger) *storeredis.Client {
	opts := storeredis.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
		OpTimeout:   cfg.Redis.OpTimeout,
	}

	store, err := storeredis.NewClient(ctx, opts, logger)
	if err == nil {
		return store
	}

	logger.Warn("key-value store unavailable, starting degraded", "addr", cfg.Redis.Addr, "error", err)
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.OpTimeout,
		WriteTimeout: opts.OpTimeout,
	})
	return storeredis.NewClientWithRedis(rdb, opts.OpTimeout, logger)
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}

func registerGRPCServer(health *grpchandler.Health, logger *logger.Logger, addr string) *grpcserver.GRPCServer {
	r := grpcrouter.New(health, logger)
	return grpcserver.NewGRPCServer(r.Register(), addr)
}
