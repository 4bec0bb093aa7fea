package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nikhilnt1234/Digital-Twin-sub001/common/database"
	"github.com/nikhilnt1234/Digital-Twin-sub001/common/logger"
	commonmqtt "github.com/nikhilnt1234/Digital-Twin-sub001/common/mqtt"
	commonredis "github.com/nikhilnt1234/Digital-Twin-sub001/common/redis"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/config"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/evaluator"
	httpapi "github.com/nikhilnt1234/Digital-Twin-sub001/internal/http"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/metrics"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/repository"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/service"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const serviceName = "digital-twin-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		os.Exit(exitWithError(log, err))
	}
}

// exitWithError 记录错误并刷新日志后返回退出码；os.Exit 不会执行 defer
func exitWithError(log *zap.Logger, err error) int {
	log.Error("digital-twin-api exited with error", zap.Error(err))
	_ = log.Sync()
	return 1
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector(serviceName)
	analyzer := evaluator.NewRiskAnalyzer()

	providerCfg := service.ProviderConfigFrom(cfg.Clinical)
	router := service.NewProviderRouter(providerCfg, analyzer, nil, collector, log)
	svc := service.NewCheckInService(analyzer, router, providerCfg.DemoMode, log)
	svc.SetMetrics(collector)

	log.Info("Clinical provider configured",
		zap.Bool("demo_mode", providerCfg.DemoMode),
		zap.Bool("remote_configured", providerCfg.Endpoint != ""),
		zap.Duration("timeout", providerCfg.Timeout),
	)

	// 历史：DB 可用时用 Postgres，否则内存
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(ctx, &cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for digital-twin-api")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory history", zap.Error(err))
		}
	}
	if db != nil {
		defer database.Close(db)
		repo := repository.NewPostgresSummariesRepository(db, log)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		svc.SetSummariesRepository(repo)
	} else {
		svc.SetSummariesRepository(repository.NewMemorySummariesRepository())
	}

	notifier := service.NewTriageNotifier(log, collector)

	if cfg.RedisEnabled {
		redisClient := commonredis.NewRedisClient(&cfg.Redis)
		if err := commonredis.Ping(ctx, redisClient); err == nil {
			defer commonredis.Close(redisClient)
			kv := store.NewRedisKV(redisClient)
			svc.SetCache(store.NewSummaryCache(kv, cfg.Cache.LatestKeyPrefix, cfg.Cache.LatestTTL))
			notifier.WithStream(redisClient, cfg.Cache.TriageStream)
			log.Info("Redis enabled for digital-twin-api", zap.String("addr", cfg.Redis.Addr))
		} else {
			_ = commonredis.Close(redisClient)
			log.Warn("Redis enabled but ping failed, cache and triage stream disabled", zap.Error(err))
		}
	}

	if cfg.MQTT.Enabled {
		mqttClient, err := commonmqtt.NewClient(&cfg.MQTT.MQTTConfig, log)
		if err == nil {
			defer mqttClient.Disconnect()
			notifier.WithMQTT(mqttClient, cfg.MQTT.Topic, cfg.MQTT.QoS)
		} else {
			log.Warn("MQTT enabled but connection failed, caregiver SMS disabled", zap.Error(err))
		}
	}

	if notifier.Enabled() {
		svc.SetNotifier(notifier)
	}

	handler := httpapi.NewClinicalHandler(svc, log)
	mux := httpapi.NewRouter(log)
	mux.Use(httpapi.RequestLogging(log, collector))
	mux.RegisterClinicalRoutes(handler, httpapi.RateLimit(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst))
	mux.RegisterOpsRoutes(collector)

	srv := service.NewServer(cfg.HTTP.Addr, mux, providerCfg.Timeout+10*time.Second, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	err := g.Wait()
	log.Info("digital-twin-api stopped")
	return err
}
