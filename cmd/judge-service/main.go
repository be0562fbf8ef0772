package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	activityController "codejudge/internal/activity/controller"
	activityRepo "codejudge/internal/activity/repository"
	activityService "codejudge/internal/activity/service"
	"codejudge/internal/common/auth"
	"codejudge/internal/common/cache"
	"codejudge/internal/common/db"
	commonmw "codejudge/internal/common/http/middleware"
	"codejudge/internal/common/mq"
	"codejudge/internal/common/storage"
	judgeController "codejudge/internal/judge/controller"
	"codejudge/internal/judge/judge0"
	judgeRepo "codejudge/internal/judge/repository"
	judgeService "codejudge/internal/judge/service"
	problemController "codejudge/internal/problem/controller"
	problemRepo "codejudge/internal/problem/repository"
	problemService "codejudge/internal/problem/service"
	"codejudge/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultConfigPath = "configs/judge_service.yaml"
	defaultEnvPath    = ".env"
)

type handlers struct {
	problems *problemController.ProblemController
	judge    *judgeController.JudgeController
	activity *activityController.ActivityController
}

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	envPath := flag.String("env", defaultEnvPath, "Path to optional .env file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath, *envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(appCfg); err != nil {
		logger.Error(context.Background(), "judge service stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(appCfg *AppConfig) error {
	ctx := context.Background()

	mysqlDB, err := db.NewMySQL(appCfg.Database.MySQLConfig())
	if err != nil {
		return fmt.Errorf("init database failed: %w", err)
	}
	defer func() {
		_ = mysqlDB.Close()
	}()

	redisCache, err := cache.NewRedisCache(&appCfg.Redis)
	if err != nil {
		return fmt.Errorf("init redis failed: %w", err)
	}
	defer func() {
		_ = redisCache.Close()
	}()

	var archive judgeRepo.SourceArchive
	if appCfg.MinIO.Endpoint != "" && appCfg.Source.Bucket != "" {
		objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
		if err != nil {
			return fmt.Errorf("init minio failed: %w", err)
		}
		if err := objStorage.EnsureBucket(ctx, appCfg.Source.Bucket); err != nil {
			return fmt.Errorf("ensure source bucket failed: %w", err)
		}
		archive, err = judgeRepo.NewObjectSourceArchive(objStorage, appCfg.Source.Bucket, appCfg.Source.Prefix)
		if err != nil {
			return fmt.Errorf("init source archive failed: %w", err)
		}
	} else {
		logger.Warn(ctx, "source archive disabled")
	}

	var mqClient mq.Broker
	var events judgeRepo.JudgedEventPublisher
	if appCfg.Kafka.Enabled() {
		broker, err := mq.NewKafkaBroker(appCfg.Kafka.toMQConfig())
		if err != nil {
			return fmt.Errorf("init kafka failed: %w", err)
		}
		mqClient = broker
		defer func() {
			_ = mqClient.Close()
		}()
		events = judgeRepo.NewMQJudgedEventPublisher(mqClient, appCfg.Kafka.JudgedTopic)
	} else {
		logger.Warn(ctx, "kafka disabled, judged events are not published")
	}

	backend, err := judge0.NewClient(appCfg.Judge0, nil)
	if err != nil {
		return fmt.Errorf("init judge0 client failed: %w", err)
	}

	problems := problemRepo.NewProblemRepositoryWithTTL(mysqlDB, redisCache, appCfg.Problem.CacheTTL, appCfg.Problem.EmptyTTL)
	languages, err := problemRepo.NewLanguageRepository(mysqlDB, redisCache, appCfg.Problem.LanguageLocalTTL)
	if err != nil {
		return fmt.Errorf("init language repository failed: %w", err)
	}
	submissions := judgeRepo.NewSubmissionRepository(mysqlDB, redisCache)

	problemSvc, err := problemService.NewProblemService(problemService.Config{
		Problems:  problems,
		Languages: languages,
		Tx:        mysqlDB,
		Timeout:   appCfg.Problem.Timeout,
	})
	if err != nil {
		return fmt.Errorf("init problem service failed: %w", err)
	}

	judgeSvc, err := judgeService.NewJudgeService(judgeService.Config{
		Backend:         backend,
		Problems:        problems,
		Languages:       languages,
		Submissions:     submissions,
		Solved:          judgeRepo.NewSolvedRepository(mysqlDB),
		Tx:              mysqlDB,
		Archive:         archive,
		Events:          events,
		Cache:           redisCache,
		PollInterval:    appCfg.Judge.PollInterval,
		MaxPollAttempts: appCfg.Judge.MaxPollAttempts,
		MaxConcurrent:   appCfg.Judge.MaxConcurrent,
		MaxCodeBytes:    appCfg.Judge.MaxCodeBytes,
		IdempotencyTTL:  appCfg.Judge.IdempotencyTTL,
		RateLimit: judgeService.RateLimitConfig{
			AccountMax: appCfg.Judge.AccountLimit,
			IPMax:      appCfg.Judge.IPLimit,
			Window:     appCfg.Judge.LimitWindow,
		},
		Timeouts: judgeService.TimeoutConfig{
			DB:      appCfg.Judge.DBTimeout,
			Cache:   appCfg.Judge.CacheTimeout,
			MQ:      appCfg.Judge.MQTimeout,
			Storage: appCfg.Judge.StorageTimeout,
		},
	})
	if err != nil {
		return fmt.Errorf("init judge service failed: %w", err)
	}

	activitySvc, err := activityService.NewActivityService(activityService.Config{
		Activity:    activityRepo.NewActivityRepository(mysqlDB),
		Submissions: submissions,
		Problems:    problems,
		Cache:       redisCache,
		ProfileTTL:  appCfg.Activity.ProfileTTL,
		DBTimeout:   appCfg.Activity.DBTimeout,
	})
	if err != nil {
		return fmt.Errorf("init activity service failed: %w", err)
	}

	if mqClient != nil {
		consumer := activityService.NewProfileCacheConsumer(mqClient, activitySvc)
		if err := consumer.Subscribe(ctx, appCfg.Kafka.JudgedTopic, appCfg.Kafka.toSubscribeOptions()); err != nil {
			return fmt.Errorf("subscribe judged events failed: %w", err)
		}
	}

	dependencies := []dependency{{name: "mysql", conn: mysqlDB}, {name: "redis", conn: redisCache}}
	if mqClient != nil {
		dependencies = append(dependencies, dependency{name: "kafka", conn: mqClient})
	}

	verifier := auth.NewTokenVerifier(appCfg.Auth.Config, redisCache)
	httpServer := buildHTTPServer(appCfg.Server, appCfg.Auth, verifier, handlers{
		problems: problemController.NewProblemController(problemSvc),
		judge:    judgeController.NewJudgeController(judgeSvc),
		activity: activityController.NewActivityController(activitySvc),
	}, healthCheck(dependencies...))

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "judge http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var serveErr error
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-shutdownCtx.Done():
		logger.Info(ctx, "shutdown signal received")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(stopCtx); err != nil {
		logger.Error(ctx, "http server shutdown failed", zap.Error(err))
	}
	if mqClient != nil {
		_ = mqClient.Stop()
	}
	return serveErr
}

func buildHTTPServer(cfg ServerConfig, authCfg AuthConfig, verifier commonmw.Authenticator, h handlers, health gin.HandlerFunc) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(requestLogger())

	optional := commonmw.AuthMiddleware(verifier, commonmw.AuthPolicy{Mode: commonmw.AuthModeOptional})
	protected := commonmw.AuthMiddleware(verifier, commonmw.AuthPolicy{Mode: commonmw.AuthModeProtected})
	admin := commonmw.AuthMiddleware(verifier, commonmw.AuthPolicy{Mode: commonmw.AuthModeProtected, Roles: authCfg.AdminRoles})

	router.GET("/healthz", health)

	api := router.Group("/api/v1")
	api.GET("/languages", h.problems.Languages)

	problems := api.Group("/problems")
	problems.GET("", h.problems.List)
	problems.POST("", admin, h.problems.Create)
	problems.GET("/tags", h.problems.Tags)
	problems.GET("/:id", h.problems.Get)
	problems.PUT("/:id/vote", protected, h.problems.Vote)
	problems.POST("/:id/run", optional, h.judge.Run)
	problems.POST("/:id/submit", protected, h.judge.Submit)
	problems.GET("/:id/submissions", h.judge.ListSubmissions)
	problems.GET("/:id/default-code", h.judge.DefaultCode)

	api.GET("/submissions/:id", h.judge.GetSubmission)

	me := api.Group("/accounts/me", protected)
	me.GET("/profile", h.activity.Profile)
	me.GET("/stats", h.activity.Stats)
	me.GET("/recent-submissions", h.activity.RecentSubmissions)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
