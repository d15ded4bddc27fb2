package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/lawweapons/bevisdrive/config"
	"github.com/lawweapons/bevisdrive/database"
	"github.com/lawweapons/bevisdrive/handlers"
	"github.com/lawweapons/bevisdrive/logger"
	"github.com/lawweapons/bevisdrive/middleware"
	"github.com/lawweapons/bevisdrive/repositories"
	"github.com/lawweapons/bevisdrive/services"
	"github.com/lawweapons/bevisdrive/storage"
	"github.com/lawweapons/bevisdrive/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	reconcileOnce := flag.Bool("reconcile-once", false, "run one cleanup and reconcile pass, then exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Production); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer logger.Sync()
	logger.Infof("starting bevisdrive")

	utils.SetJWTSecret(cfg.JWT.Secret, cfg.JWT.Issuer)

	if err := database.InitDatabase(&cfg.Database); err != nil {
		logger.Fatalf("init database failed: %v", err)
	}
	if err := database.AutoMigrate(); err != nil {
		logger.Fatalf("database migration failed: %v", err)
	}
	logger.Infof("database migration completed")

	if err := database.InitRedis(&cfg.Redis); err != nil {
		logger.Fatalf("init redis failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blobs, err := storage.New(ctx, cfg)
	if err != nil {
		logger.Fatalf("init blob store failed: %v", err)
	}

	repoContainer := repositories.NewGormRepositories(database.DB, database.RedisClient).BuildContainer()
	serviceContainer := services.NewContainer(repoContainer, blobs, services.SettingsFromConfig(cfg))
	handlers.SetServices(serviceContainer)

	if *reconcileOnce {
		serviceContainer.Cleanup.RunOnce(ctx)
		return
	}

	services.StartCleanupWorkers(ctx)
	logger.Infof("cleanup workers started")

	if cfg.Log.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics(), middleware.CORSMiddleware())
	setupRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Infof("server listening on http://%s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server start failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown failed: %v", err)
	}
}

func setupRoutes(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	api.GET("/health", handlers.HealthCheck)
	api.GET("/blob/*path", handlers.ServeBlob)

	share := api.Group("/share")
	{
		share.POST("/download", handlers.ResolveShare)
		share.POST("/folder", handlers.ResolveFolderShare)
		share.POST("/folder/download", handlers.DownloadFolderShareFile)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/files", handlers.ListFiles)
		protected.GET("/files/search", handlers.SearchFiles)
		protected.POST("/files/upload", handlers.UploadFile)
		protected.POST("/files/trash/empty", handlers.EmptyTrash)
		protected.POST("/files/batch/move", handlers.BatchMoveFiles)
		protected.POST("/files/batch/trash", handlers.BatchTrashFiles)
		protected.POST("/files/batch/restore", handlers.BatchRestoreFiles)
		protected.POST("/files/batch/delete", handlers.BatchDeleteFiles)
		protected.POST("/files/batch/star", handlers.BatchStarFiles)
		protected.POST("/files/batch/unstar", handlers.BatchUnstarFiles)
		protected.GET("/files/:id", handlers.GetFile)
		protected.GET("/files/:id/download", handlers.DownloadFile)
		protected.PUT("/files/:id/rename", handlers.RenameFile)
		protected.PUT("/files/:id/tags", handlers.UpdateFileTags)
		protected.PUT("/files/:id/move", handlers.MoveFile)
		protected.POST("/files/:id/trash", handlers.TrashFile)
		protected.POST("/files/:id/restore", handlers.RestoreFile)
		protected.POST("/files/:id/star", handlers.StarFile)
		protected.POST("/files/:id/unstar", handlers.UnstarFile)
		protected.DELETE("/files/:id", handlers.DeleteFile)
		protected.GET("/files/:id/versions", handlers.ListFileVersions)
		protected.POST("/files/:id/versions/:version_id/restore", handlers.RestoreFileVersion)
		protected.GET("/files/:id/versions/:version_id/download", handlers.DownloadFileVersion)
		protected.GET("/files/:id/share", handlers.GetFileShare)
		protected.PUT("/files/:id/share", handlers.UpdateFileShare)
		protected.GET("/files/:id/recipients", handlers.ListRecipients)
		protected.POST("/files/:id/recipients", handlers.AddRecipient)
		protected.DELETE("/files/:id/recipients", handlers.RemoveRecipient)

		protected.GET("/folders", handlers.ListFolders)
		protected.POST("/folders", handlers.CreateFolder)
		protected.DELETE("/folders", handlers.DeleteFolder)
		protected.PUT("/folders/rename", handlers.RenameFolder)
		protected.GET("/folders/archive", handlers.DownloadFolderArchive)
		protected.GET("/folders/share", handlers.GetFolderShare)
		protected.PUT("/folders/share", handlers.UpdateFolderShare)

		protected.GET("/activity", handlers.ListActivity)
		protected.GET("/preferences", handlers.GetPreferences)
		protected.PUT("/preferences", handlers.UpdatePreferences)
		protected.GET("/storage/usage", handlers.GetStorageUsage)
	}
}
