package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "woori-codeshare/internal/handler/http"
	wsHandler "woori-codeshare/internal/handler/websocket"
	"woori-codeshare/internal/hub"
	gormpersistence "woori-codeshare/internal/infra/persistence/gorm"
	"woori-codeshare/internal/infra/setup"
	redisstate "woori-codeshare/internal/infra/state/redis"
	"woori-codeshare/internal/infra/upstream"
	"woori-codeshare/internal/service"
	"woori-codeshare/internal/tasks"
	"woori-codeshare/internal/worker"
)

// sweepSchedule 周期性检查点扫描的间隔
const sweepSchedule = "@every 5m"

// App 结构体包含应用的所有组件和配置
type App struct {
	Config         *Config
	Log            *logrus.Logger
	DB             *gorm.DB
	RedisClient    *redis.Client
	AsynqClient    *asynq.Client
	AsynqServer    *worker.WorkerServer
	Scheduler      *asynq.Scheduler
	Hub            *hub.Hub
	HttpServer     *http.Server
	redisClientOpt asynq.RedisClientOpt
}

// NewLogger 根据配置创建 logger
func NewLogger(cfg *Config) *logrus.Logger {
	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel) // cfg.LogLevel 已被 LoadConfig 验证
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	// 各组件使用包级 logrus，与 App logger 保持同样的格式和级别
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(logLevel)
	return log
}

// NewApp 创建并初始化应用的所有组件
func NewApp() (*App, error) {
	// 1. 加载配置
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	// 2. 初始化 Logger
	log := NewLogger(cfg)
	log.Infof("Logger initialized (Level: %s, Format: %T)", log.GetLevel().String(), log.Formatter)

	// 3. 初始化基础设施
	log.Info("Initializing infrastructure...")
	db, err := setup.InitDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	log.WithField("driver", cfg.DB.Driver).Info("Database initialized and migrated")

	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	log.Info("Redis client initialized")

	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)
	upstreamClient := upstream.NewClient(cfg.UpstreamURL, cfg.UpstreamTimeout)
	log.WithField("upstream", cfg.UpstreamURL).Info("Infrastructure initialized successfully")

	// 4. 初始化 Repositories
	stateRepo := redisstate.NewRedisStateRepository(redisClient, cfg.KeyPrefix)
	codeRepo := gormpersistence.NewGormCodeRepository(db)
	roomRepo := upstream.NewRoomRepository(upstreamClient)
	snapshotRepo := upstream.NewSnapshotRepository(upstreamClient)
	commentRepo := upstream.NewCommentRepository(upstreamClient)
	voteRepo := upstream.NewVoteRepository(upstreamClient)

	// 5. 初始化 Services
	passes, err := service.NewRoomPassService(cfg.RoomPassSecret, cfg.RoomPassExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("failed to create RoomPassService: %w", err)
	}
	collabService := service.NewCollaborationService(stateRepo, codeRepo, asynqClient, cfg.CheckpointDelay)
	presenceService := service.NewPresenceService(stateRepo)
	roomService := service.NewRoomService(roomRepo, stateRepo, passes)
	snapshotService := service.NewSnapshotService(snapshotRepo, collabService)
	commentService := service.NewCommentService(commentRepo)
	voteService := service.NewVoteService(voteRepo, stateRepo)
	log.Info("Services initialized")

	// 6. 初始化 Hub
	hubInstance := hub.NewHub(stateRepo, collabService, presenceService)

	// 7. 初始化 Worker Server
	workerServer := worker.NewWorkerServer(redisClientOpt, collabService, hubInstance, log)

	// 8. 初始化 Gin Engine 和路由
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := NewRouter(log, Handlers{
		Room:      httpHandler.NewRoomHandler(roomService, collabService),
		Snapshot:  httpHandler.NewSnapshotHandler(snapshotService),
		Comment:   httpHandler.NewCommentHandler(commentService),
		Vote:      httpHandler.NewVoteHandler(voteService),
		WebSocket: wsHandler.NewWebSocketHandler(hubInstance, cfg.AllowedOrigin),
	}, RouterOptions{
		AllowedOrigin:   cfg.AllowedOrigin,
		Passes:          passes,
		Limiter:         stateRepo,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
	})
	log.Info("Router setup complete")

	httpServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		Config:         cfg,
		Log:            log,
		DB:             db,
		RedisClient:    redisClient,
		AsynqClient:    asynqClient,
		AsynqServer:    workerServer,
		Hub:            hubInstance,
		HttpServer:     httpServer,
		redisClientOpt: redisClientOpt,
	}, nil
}

// Start 启动应用的所有后台 Goroutine 和 HTTP 服务器
func (a *App) Start() {
	go a.Hub.Run()
	a.Log.Info("Hub routine started")

	go a.AsynqServer.Start()
	a.registerPeriodicTasks()

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

func (a *App) registerPeriodicTasks() {
	scheduler := asynq.NewScheduler(a.redisClientOpt, &asynq.SchedulerOpts{})

	entryID, err := scheduler.Register(sweepSchedule, tasks.NewCodeSweepTask(), asynq.Queue("default"))
	if err != nil {
		a.Log.Errorf("Could not register periodic code sweep task: %v", err)
		return
	}
	a.Log.Infof("Periodic code sweep task registered with schedule '%s' (EntryID: %s)", sweepSchedule, entryID)
	a.Scheduler = scheduler

	go func() {
		a.Log.Info("Asynq scheduler starting...")
		if err := scheduler.Run(); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			a.Log.Errorf("Asynq scheduler Run() failed: %v", err)
			return
		}
		a.Log.Info("Asynq scheduler stopped.")
	}()
}

// Shutdown 优雅地关闭应用
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	// 1. 停止 Hub 的订阅和循环
	if a.Hub != nil {
		a.Hub.StopAllSubscriptions()
	}

	// 2. 停止调度器和 Worker
	if a.Scheduler != nil {
		a.Scheduler.Shutdown()
	}
	if a.AsynqServer != nil {
		a.AsynqServer.Shutdown()
	}

	// 3. 优雅关闭 HTTP 服务器
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	// 4. 关闭 Asynq Client
	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}

	// 5. 关闭 Redis 连接
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}

	// 6. 关闭数据库连接
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.Log.Errorf("Error closing database connection: %v", err)
			}
		}
	}

	a.Log.Info("Application shutdown complete.")
}
