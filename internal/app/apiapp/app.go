package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/swayam1998/geoquests/internal/config"
	"github.com/swayam1998/geoquests/internal/infra/httpclient"
	s3infra "github.com/swayam1998/geoquests/internal/infra/s3"
	"github.com/swayam1998/geoquests/internal/jobs/cleanup"
	pgrepo "github.com/swayam1998/geoquests/internal/repo/postgres"
	redrepo "github.com/swayam1998/geoquests/internal/repo/redis"
	aisvc "github.com/swayam1998/geoquests/internal/services/ai"
	authsvc "github.com/swayam1998/geoquests/internal/services/auth"
	"github.com/swayam1998/geoquests/internal/services/faces"
	mediasvc "github.com/swayam1998/geoquests/internal/services/media"
	questsvc "github.com/swayam1998/geoquests/internal/services/quests"
	ratesvc "github.com/swayam1998/geoquests/internal/services/rate"
	subsvc "github.com/swayam1998/geoquests/internal/services/submissions"
	"github.com/swayam1998/geoquests/internal/services/verify"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	cleanupJob *cleanup.Job
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rateRepo := redrepo.NewRateRepo(redisClient)
	questRepo := pgrepo.NewQuestRepo(pool)
	submissionRepo := pgrepo.NewSubmissionRepo(pool)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	questService := questsvc.NewService(questRepo)
	rateLimiter := ratesvc.NewLimiter(rateRepo, cfg.Verification.SubmissionsPerMinute)

	mediaStorage := mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket)
	mediaService := mediasvc.NewService(mediaStorage)

	redactor := newFaceRedactor(cfg.Verification.FaceCascadePath, log)
	contentVerifier := aisvc.NewVerifier(aisvc.Config{
		APIKey:   cfg.AI.APIKey,
		Endpoint: cfg.AI.Endpoint,
		Model:    cfg.AI.Model,
	}, httpclient.New(cfg.AI.RequestTimeout), log)

	pipeline := verify.NewService(redactor, contentVerifier, verify.Config{
		ExifToleranceMeters:  cfg.Verification.ExifToleranceMeters,
		MinContentMatchScore: cfg.Verification.MinContentMatchScore,
		PipelineTimeout:      cfg.Verification.PipelineTimeout,
	}, log)

	submissionService := subsvc.NewService(subsvc.Dependencies{
		Store:    submissionRepo,
		Quests:   questService,
		Limiter:  rateLimiter,
		Pipeline: pipeline,
		Images:   mediaService,
		Logger:   log,
	})

	cleanupJob := cleanup.New(submissionRepo, mediaService, cfg.Cleanup.ProcessingTimeout, log)

	RegisterRoutes(r, Dependencies{
		SubmissionService: submissionService,
		JWTManager:        jwtManager,
		Logger:            log,
		Config:            cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		cleanupJob: cleanupJob,
		httpRouter: r,
	}, nil
}

// newFaceRedactor loads the detection cascade from disk. A missing cascade is
// a degraded mode, not a startup failure: the redactor then passes images
// through untouched.
func newFaceRedactor(cascadePath string, log *zap.Logger) *faces.Redactor {
	if cascadePath == "" {
		log.Warn("face cascade path not configured, face redaction disabled")
		return faces.NewRedactor(nil, log)
	}

	cascade, err := os.ReadFile(cascadePath)
	if err != nil {
		log.Warn("face cascade load failed, face redaction disabled", zap.Error(err))
		return faces.NewRedactor(nil, log)
	}

	detector, err := faces.NewPigoDetector(cascade)
	if err != nil {
		log.Warn("face cascade unpack failed, face redaction disabled", zap.Error(err))
		return faces.NewRedactor(nil, log)
	}

	return faces.NewRedactor(detector, log)
}

func (a *App) Run(ctx context.Context) error {
	go a.cleanupJob.Start(ctx, a.cfg.Cleanup.Interval)

	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
