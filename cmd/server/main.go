package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/University-Of-Livingstonia/ems/internal/audit"
	"github.com/University-Of-Livingstonia/ems/internal/auth"
	"github.com/University-Of-Livingstonia/ems/internal/config"
	"github.com/University-Of-Livingstonia/ems/internal/domain"
	apphttp "github.com/University-Of-Livingstonia/ems/internal/http"
	"github.com/University-Of-Livingstonia/ems/internal/repository"
	"github.com/University-Of-Livingstonia/ems/internal/repository/sqlite"
	"github.com/University-Of-Livingstonia/ems/internal/service"
	"github.com/University-Of-Livingstonia/ems/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.ResetSecret) == "" {
		logger.Fatalf("auth reset secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	eventRepo := sqlite.NewEventRepository(db)
	ticketRepo := sqlite.NewTicketRepository(db)
	auditRepo := sqlite.NewAuditRepository(db)
	sessionStore := sqlite.NewSessionStore(db)

	inits := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"users", userRepo.Init},
		{"events", eventRepo.Init},
		{"tickets", ticketRepo.Init},
		{"audit", auditRepo.Init},
		{"sessions", sessionStore.Init},
	}
	for _, init := range inits {
		if err := init.fn(ctx); err != nil {
			logger.Fatalf("init %s repository: %v", init.name, err)
		}
	}

	recorder := audit.NewRecorder(auditRepo, logger)
	if cfg.Audit.Bucket != "" {
		storageSvc, err := buildStorage(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("setup audit storage: %v", err)
		}
		recorder.WithArchive(storageSvc, audit.ArchiveOptions{
			Bucket:    cfg.Audit.Bucket,
			KeyPrefix: cfg.Audit.KeyPrefix,
			Interval:  time.Duration(cfg.Audit.IntervalHours) * time.Hour,
			Retention: time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour,
		})
		// archives on a schedule, prunes stale objects, and takes a final
		// pass on shutdown
		go recorder.Run(ctx)
	}

	authMgr := auth.NewManager(userRepo, sessionStore, recorder, logger, auth.Options{
		SessionTTL:  time.Duration(cfg.Session.TTLHours) * time.Hour,
		RememberTTL: time.Duration(cfg.Session.RememberDays) * 24 * time.Hour,
		ResetSecret: []byte(cfg.Auth.ResetSecret),
		ResetTTL:    time.Duration(cfg.Auth.ResetTTLMin) * time.Minute,
	})
	eventSvc := service.NewEventService(eventRepo, ticketRepo)

	if err := seedAdmin(ctx, cfg, userRepo, logger); err != nil {
		logger.Fatalf("seed admin: %v", err)
	}

	if n, err := sessionStore.PurgeExpired(ctx); err != nil {
		logger.Warnf("purge expired sessions: %v", err)
	} else if n > 0 {
		logger.Infof("purged %d expired sessions", n)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(authMgr, eventSvc, apphttp.CookieOptions{
		Name:           cfg.Session.CookieName,
		RememberMaxAge: cfg.Session.RememberDays * 24 * 60 * 60,
		Secure:         cfg.Auth.SecureCookies,
	}, logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

// seedAdmin provisions the first admin account from config. Registration
// can never grant the admin role, so without this there is no way in.
func seedAdmin(ctx context.Context, cfg config.Config, users repository.UserRepository, logger *logrus.Logger) error {
	if cfg.Admin.Username == "" || cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		return nil
	}

	if _, err := users.GetByUsername(ctx, cfg.Admin.Username); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin, err := domain.NewUser(cfg.Admin.Username, cfg.Admin.Email, string(hash), domain.RoleAdmin)
	if err != nil {
		return err
	}
	if _, err := users.Create(ctx, admin); err != nil {
		return err
	}
	logger.Infof("seeded admin account %q", cfg.Admin.Username)
	return nil
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Audit.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Audit.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Audit.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("archiving audit logs to s3 bucket %s (region %s)", cfg.Audit.Bucket, cfg.Audit.Region)
	return storage.NewS3Service(client), nil
}
