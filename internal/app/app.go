package app

import (
	"context"
	"course_hub_backend/internal/config"
	"course_hub_backend/internal/controller"
	"course_hub_backend/internal/repository"
	"course_hub_backend/internal/service"
	"course_hub_backend/internal/util"
	"course_hub_backend/pkg/cache"
	"course_hub_backend/pkg/database"
	"course_hub_backend/pkg/logger"
	"course_hub_backend/pkg/monitoring"
	"course_hub_backend/pkg/security"
	"course_hub_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	Mongo           *mongo.Client
	tracer          *sdktrace.TracerProvider
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	course       service.CourseStore
	user         *repository.UserRepository
	notification *repository.NotificationRepository
}

type services struct {
	storage      *service.StorageService
	notification *service.NotificationService
	course       *service.CourseService
}

type controllers struct {
	course *controller.CourseController
	health *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig hands a reloaded configuration to every registered callback.
func (a *App) ApplyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB, mdb *mongo.Database) *repositories {
	repos := &repositories{
		user:         repository.NewUserRepository(db),
		notification: repository.NewNotificationRepository(db),
	}
	if mdb != nil {
		repos.course = repository.NewCourseMongoRepository(mdb)
	} else {
		repos.course = repository.NewCourseRepository(db)
	}
	return repos
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) (*services, error) {
	storage, err := service.NewStorageService(cfg)
	if err != nil {
		return nil, err
	}

	s := &services{storage: storage}
	s.notification = service.NewNotificationService(
		repos.notification,
		repos.user,
		service.NewMailer(&cfg.Mail),
		cfg.Mail.Timeout,
	)
	s.course = service.NewCourseService(
		repos.course,
		cache.NewRedisCache(rdb),
		service.NewEntitlementGate(),
		s.notification,
		s.storage,
		cfg,
	)
	return s, nil
}

func (a *App) initControllers(s *services) *controllers {
	checks := map[string]controller.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		},
	}
	if a.Mongo != nil {
		checks["mongo"] = func(ctx context.Context) error {
			return a.Mongo.Ping(ctx, nil)
		}
	}

	return &controllers{
		course: controller.NewCourseController(s.course),
		health: controller.NewHealthController(checks),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	gin.SetMode(cfg.Server.Mode)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.ForceMigrate || cfg.Server.Mode == "debug" {
		if err := database.Migrate(db, cfg.Database.Driver == util.DatabaseMySQL); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb

	var mdb *mongo.Database
	if cfg.Database.Driver == util.DatabaseMongo {
		client, courseDB, err := database.InitMongo(&cfg.Database)
		if err != nil {
			logger.Log.Fatal("Failed to initialize mongo", zap.Error(err))
		}
		app.Mongo = client
		mdb = courseDB
	}

	repos := app.initRepositories(db, mdb)
	svcs, err := app.initServices(repos, cfg, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	app.services = svcs
	ctrls := app.initControllers(svcs)

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		svcs.course.SetCachePolicy(newCfg.Cache)
		logger.Log.Info("cache policy reloaded",
			zap.Duration("course_ttl", newCfg.Cache.CourseTTL),
			zap.Bool("invalidate_on_write", newCfg.Cache.InvalidateOnWrite),
		)
	})

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("course-hub", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, ctrls, repos.user, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close(ctx)
	logger.Log.Info("Server exiting")
}

// Close releases the backing connections.
func (a *App) Close(ctx context.Context) {
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Mongo != nil {
		_ = a.Mongo.Disconnect(ctx)
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
