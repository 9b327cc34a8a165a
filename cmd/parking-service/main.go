package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/SmartParkVision/SmartParkVision/internal/catalog"
	"github.com/SmartParkVision/SmartParkVision/internal/common/config"
	"github.com/SmartParkVision/SmartParkVision/internal/common/db"
	"github.com/SmartParkVision/SmartParkVision/internal/common/logger"
	"github.com/SmartParkVision/SmartParkVision/internal/common/middleware"
	"github.com/SmartParkVision/SmartParkVision/internal/common/server"
	"github.com/SmartParkVision/SmartParkVision/internal/common/tracing"
	"github.com/SmartParkVision/SmartParkVision/internal/detect"
	"github.com/SmartParkVision/SmartParkVision/internal/parking"
	"github.com/gorilla/mux"
)

var (
	configPath  = flag.String("config", "configs/parking-service.json", "配置文件路径")
	consulKVKey = flag.String("consul-kv", "", "从 Consul KV 读取配置的 key（优先于本地文件）")
	uploadDir   = flag.String("upload-dir", "uploads", "入场图片保存目录")
)

func main() {
	flag.Parse()

	// 加载配置（Consul KV 优先，其次本地文件）
	var (
		cfg *config.Config
		err error
	)
	if *consulKVKey != "" {
		base := config.DefaultConfig()
		cfg, err = config.LoadConfigFromConsulKV(base.Consul.Host, base.Consul.Port, *consulKVKey)
	} else {
		cfg, err = config.LoadConfig(*configPath)
	}
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Driver, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	tracer, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}
	_ = tracer

	// 初始化数据库
	gormDB, err := db.NewMySQL(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.MaxIdle,
		cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Fatalf("failed to init mysql: %v", err)
	}
	if err := gormDB.AutoMigrate(&parking.Vehicle{}, &parking.ParkingSlot{}); err != nil {
		log.Fatalf("failed to migrate mysql schema: %v", err)
	}

	repo := parking.NewRepo(gormDB)
	if err := repo.InitSlots(context.Background(), parking.FloorCount, parking.SlotsPerFloor); err != nil {
		log.Fatalf("failed to init parking slots: %v", err)
	}

	// 加载车型库；失败降级为空库（全部解析走默认值路径），服务照常可用
	store, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		log.Warnf("failed to load vehicle catalog %s, running with empty catalog: %v", cfg.Catalog.Path, err)
		store = catalog.NewEmptyStore()
	} else {
		log.Infof("vehicle catalog loaded: %d entries, %d models", store.Len(), len(store.Models()))
	}
	resolver := catalog.NewResolver(store, 0)

	// 识别服务客户端（内部熔断 + 降级）
	detector := detect.NewClient(cfg.Detector, log)

	// 入场限流
	var limiter middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewTokenBucket(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)
	}

	svc := parking.NewService(repo, resolver, log)
	handler := parking.NewHandler(svc, detector, detector, limiter, *uploadDir, log)

	if err := server.RunHTTPServer(cfg, log, func(r *mux.Router) error {
		return handler.Register(r)
	}); err != nil {
		log.Fatalf("parking-service exited with error: %v", err)
	}
}
