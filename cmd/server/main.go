package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"glucolog/internal/backup"
	"glucolog/internal/config"
	"glucolog/internal/db"
	"glucolog/internal/logger"
	"glucolog/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()
	dbConn, dialect, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open db", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("database connected", zap.Stringer("dialect", dialect))

	if cfg.AutoMigrate {
		if err := db.RunMigrations(ctx, dbConn, dialect, log); err != nil {
			log.Fatal("failed migrations", zap.Error(err))
		}
	}

	var scheduler *backup.Scheduler
	if cfg.Backup.Bucket != "" {
		scheduler = startBackups(ctx, cfg, log)
	} else {
		log.Info("backups disabled: S3_BUCKET_NAME not set")
	}

	handler := server.NewRouter(dbConn, server.Options{
		JWTSecret:      []byte(cfg.JWTSecret),
		AccessTokenTTL: cfg.AccessTokenTTL,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	log.Info("server stopped")
}

func startBackups(ctx context.Context, cfg *config.Config, log *zap.Logger) *backup.Scheduler {
	client, err := backup.NewS3Uploader(ctx)
	if err != nil {
		log.Error("backups disabled", zap.Error(err))
		return nil
	}
	job := backup.NewJob(client, cfg.Backup.Bucket, cfg.DatabaseFile, log.Named("backup"))
	scheduler, err := backup.NewScheduler(job, cfg.Backup.Interval, log.Named("backup"))
	if err != nil {
		log.Error("backups disabled", zap.Error(err))
		return nil
	}
	scheduler.Start()
	return scheduler
}
