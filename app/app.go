package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	adapterhttp "video-service/ddd/adapter/http"
	applicationapp "video-service/ddd/application/app"
	"video-service/ddd/domain/gateway"
	"video-service/ddd/domain/service"
	"video-service/ddd/infrastructure/cache"
	"video-service/ddd/infrastructure/database"
	"video-service/ddd/infrastructure/database/persistence"
	"video-service/ddd/infrastructure/events"
	"video-service/ddd/infrastructure/executor"
	"video-service/ddd/infrastructure/keystore"
	"video-service/ddd/infrastructure/storage"
	"video-service/pkg/config"
	"video-service/pkg/kafkaclient"
	"video-service/pkg/logger"
	"video-service/pkg/redisclient"
	"video-service/pkg/registry"
	"video-service/pkg/task"
)

func Run() {
	fmt.Println("[STARTUP] Starting video service...")

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("[ERROR] Failed to load config (%s): %v\n", cfgPath, err)
		os.Exit(1)
	}
	config.SetGlobalConfig(cfg)

	logService := logger.NewLogger(cfg)
	logger.SetGlobalLogger(logService)
	logger.Infof("Video service starting config=%s", cfgPath)

	checkEngineBinaries(cfg)

	if err := os.MkdirAll(cfg.Storage.StorageRoot, 0o755); err != nil {
		logger.Fatal(fmt.Sprintf("Failed to create storage root path=%s error=%v", cfg.Storage.StorageRoot, err))
	}

	db, err := database.NewDB(cfg)
	if err != nil {
		logger.Fatal(fmt.Sprintf("Failed to initialize database error=%v", err))
	}
	logger.Infof("Database connected")

	lessonRepo := persistence.NewLessonRepository(db)
	enrollmentRepo := persistence.NewEnrollmentRepository(db)

	keyStore, err := keystore.NewFileKeyStore(cfg)
	if err != nil {
		logger.Fatal(fmt.Sprintf("Failed to initialize key store error=%v", err))
	}
	keyService := service.NewKeyService(keyStore)

	var authCache service.AuthCache
	var redisCli *redisclient.Client
	if cfg.Redis.Enabled {
		redisCli, err = redisclient.New(cfg.Redis)
		if err != nil {
			logger.Fatal(fmt.Sprintf("Failed to connect redis error=%v", err))
		}
		authCache = cache.NewRedisAuthCache(redisCli, cfg.Redis.AuthCacheTTL)
		logger.Infof("Redis connected addr=%s", cfg.Redis.GetRedisAddr())
	}

	var publisher *events.KafkaPublisher
	var kafkaCli *kafkaclient.Client
	if cfg.Kafka.Enabled {
		kafkaCli = kafkaclient.New(cfg.Kafka)
		publisher = events.NewKafkaPublisher(kafkaCli, cfg.Kafka.Topics.VideoEvents)
	}

	var archiver *storage.MinioArchiver
	if cfg.Storage.ArchiveSource {
		archiver, err = storage.NewMinioArchiver(cfg.Minio)
		if err != nil {
			logger.Fatal(fmt.Sprintf("Failed to initialize source archiver error=%v", err))
		}
	}

	engine := executor.NewFFmpegExecutor(cfg)

	// gateway.EventPublisher and gateway.SourceArchiver are interfaces; a
	// typed nil pointer must not reach the pipeline.
	pipeline := service.NewPipelineService(engine, keyService, nilSafePublisher(publisher), nilSafeArchiver(archiver), cfg)
	access := service.NewAccessService(lessonRepo, enrollmentRepo, authCache, cfg)

	videoApp := applicationapp.NewVideoApp(pipeline, lessonRepo, cfg.Transcode.HLS.QueueCapacity)
	task.Register(videoApp)

	if err := task.StartAll(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("Failed to start background tasks error=%v", err))
	}

	gin.SetMode(cfg.Server.Mode)
	ginEngine := gin.New()
	router := adapterhttp.NewRouter(cfg, access, keyStore, videoApp)
	router.SetupMiddleware(ginEngine)
	router.SetupRoutes(ginEngine)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      ginEngine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(fmt.Sprintf("Failed to start HTTP server error=%v", err))
		}
	}()
	logger.Infof("HTTP server started addr=%s api_base=%s", addr, cfg.Access.APIBase)

	var serviceRegistry *registry.ServiceRegistry
	if cfg.ServiceRegistry.Enabled {
		serviceRegistry, err = registry.NewServiceRegistry(cfg.ServiceRegistry, addr)
		if err != nil {
			logger.Fatal(fmt.Sprintf("Failed to create service registry error=%v", err))
		}
		if err := serviceRegistry.Register(); err != nil {
			logger.Fatal(fmt.Sprintf("Failed to register service error=%v", err))
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Received shutdown signal, shutting down server...")

	if serviceRegistry != nil {
		_ = serviceRegistry.Deregister()
	}

	task.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to close error=%v", err)
	}

	if kafkaCli != nil {
		kafkaCli.Close()
	}
	if redisCli != nil {
		_ = redisCli.Close()
	}

	logger.Infof("Server exited safely")
}

// checkEngineBinaries fails startup when ffmpeg or ffprobe is not on PATH.
func checkEngineBinaries(cfg *config.Config) {
	ffmpegBin := cfg.Transcode.FFmpeg.BinaryPath
	if strings.TrimSpace(ffmpegBin) == "" {
		ffmpegBin = "ffmpeg"
	}
	if _, err := exec.LookPath(ffmpegBin); err != nil {
		logger.Fatal(fmt.Sprintf("FFmpeg binary not found, install it or set transcode.ffmpeg.binary_path binary=%s error=%v", ffmpegBin, err))
	}
	probeBin := cfg.Transcode.FFmpeg.ProbePath
	if strings.TrimSpace(probeBin) == "" {
		probeBin = "ffprobe"
	}
	if _, err := exec.LookPath(probeBin); err != nil {
		logger.Fatal(fmt.Sprintf("FFprobe binary not found, install it or set transcode.ffmpeg.probe_path binary=%s error=%v", probeBin, err))
	}
}

func nilSafePublisher(p *events.KafkaPublisher) gateway.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}

func nilSafeArchiver(a *storage.MinioArchiver) gateway.SourceArchiver {
	if a == nil {
		return nil
	}
	return a
}

func resolveConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	env := strings.ToLower(strings.TrimSpace(os.Getenv("CONFIG_ENV")))
	if env == "" {
		env = "dev"
	}

	switch env {
	case "prod", "production":
		return "configs/config_prod.yaml"
	case "dev", "development":
		return "configs/config.dev.yaml"
	default:
		return fmt.Sprintf("configs/config.%s.yaml", env)
	}
}
