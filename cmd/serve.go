package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"debateai/internal/api"
	"debateai/internal/llm"
	"debateai/internal/logging"
	"debateai/internal/models"
	"debateai/internal/repository"
	"debateai/internal/service"
	"debateai/internal/storage"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

		// 初始化資料庫連接
		db, err := storage.Open(cfg.DB)
		if err != nil {
			return err
		}
		defer db.Close()

		if autoMigrate {
			if err := db.AutoMigrate(models.All()...); err != nil {
				return err
			}
		}

		// 初始化 repositories 與 services
		repos := repository.NewRepositories(db)
		provider := llm.NewOpenAIProvider(cfg.OpenAI, logger.With("component", "openai"))
		services := service.NewServices(repos, cfg, provider, llm.NewTiktokenCounter(), logger)

		gin.SetMode(gin.ReleaseMode)
		srv := &http.Server{
			Addr:    cfg.Server.Address,
			Handler: api.NewRouter(services, logger),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server listening", "address", cfg.Server.Address)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return err
			}
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
		// Shutdown 不會等待已升級的 WebSocket 連線，
		// 先停止接受新回合並等待進行中的回合寫入完成，再關閉資料庫
		if err := services.Turn.Shutdown(shutdownCtx); err != nil {
			logger.Error("in-flight turns did not finish before shutdown", "error", err)
		}
		if err := services.Relay.Wait(shutdownCtx); err != nil {
			logger.Error("pending turns not persisted before shutdown", "error", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "run database migrations before serving")
}
