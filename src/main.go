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

	"todo-app/src/config"
	"todo-app/src/controller"
	"todo-app/src/database"
	"todo-app/src/domain"
	"todo-app/src/infrastructure/repository"
	"todo-app/src/interface/handler"
	"todo-app/src/logger"
	"todo-app/src/metrics"
	"todo-app/src/routes"
	"todo-app/src/storage"
	"todo-app/src/ui"
	"todo-app/src/usecase"
	"todo-app/src/validator"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a TOML config file (default $TODO_CONFIG or todo.toml)")
	serve := flag.Bool("serve", false, "serve the JSON API instead of starting the terminal UI")
	flag.Parse()

	// 設定を読み込み
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗: %w", err)
	}
	// TUIは標準出力を使うため、ログはファイルのみに出力する
	if !*serve {
		cfg.Log.Stdout = false
	}

	// ロガーを初期化
	if err := logger.InitLogger(cfg.Log); err != nil {
		return fmt.Errorf("ロガーの初期化に失敗: %w", err)
	}
	defer logger.CloseLogger()
	log := logger.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(logrus.Fields{
		"driver": cfg.Store.Driver,
		"serve":  *serve,
	}).Info("アプリケーションを開始しています")

	uploader := startLogUploader(ctx, cfg, log)

	m := metrics.New()
	repo, health, closeStore := buildRepository(ctx, cfg.Store, log)
	defer closeStore()

	v := validator.NewCustomValidator()
	todoUsecase := usecase.NewTodoUsecase(m.InstrumentRepository(repo), v)

	if *serve {
		err = serveAPI(ctx, cfg, todoUsecase, v, health, m, log)
	} else {
		ctrl := controller.NewTodoController(todoUsecase, log)
		err = ui.RunTUI(ctx, ctrl)
	}

	// 最後のログアップロードを実行
	if uploader != nil {
		log.Info("最後のログアップロードを実行中...")
		uploadCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, uerr := uploader.UploadOldLogs(uploadCtx, logger.Directory(), cfg.Log.UploadMaxAge); uerr != nil {
			log.WithError(uerr).Error("最後のログアップロードに失敗")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("アプリケーションが異常終了しました")
		return err
	}
	log.Info("アプリケーションを終了しました")
	return nil
}

// buildRepository selects the storage backend. A store that cannot be opened
// here is retried by the next repository call.
func buildRepository(ctx context.Context, cfg config.StoreConfig, log *logrus.Logger) (domain.TodoRepository, routes.HealthChecker, func()) {
	if cfg.Driver == "memory" {
		return repository.NewMemoryTodoRepository(), nil, func() {}
	}

	manager := database.NewManager(database.Config{
		Driver: cfg.Driver,
		Path:   cfg.Path,
		DSN:    cfg.DSN,
	}, log)
	if _, err := manager.Open(ctx); err != nil {
		log.WithError(err).Warn("起動時にストアを開けませんでした")
	}
	closeFn := func() {
		if err := manager.Close(); err != nil {
			log.WithError(err).Error("データベースのクローズに失敗")
		}
	}
	return repository.NewTodoRepository(manager, log), manager, closeFn
}

func startLogUploader(ctx context.Context, cfg *config.Config, log *logrus.Logger) *storage.LogUploader {
	if !cfg.Log.UploadEnabled {
		return nil
	}

	uploader, err := storage.NewLogUploader(&storage.S3Config{
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		Region:          cfg.S3.Region,
		Bucket:          cfg.S3.Bucket,
		UseSSL:          cfg.S3.UseSSL,
	}, log)
	if err != nil {
		log.WithError(err).Error("S3アップローダーの初期化に失敗")
		return nil
	}
	uploader.SkipActiveFile(logger.GetCurrentLogFile)
	uploader.StartPeriodicUpload(ctx, logger.Directory(), cfg.Log.UploadInterval, cfg.Log.UploadMaxAge)
	return uploader
}

func serveAPI(
	ctx context.Context,
	cfg *config.Config,
	todoUsecase usecase.TodoUsecase,
	v *validator.CustomValidator,
	health routes.HealthChecker,
	m *metrics.Metrics,
	log *logrus.Logger,
) error {
	gin.SetMode(gin.ReleaseMode)
	router := routes.NewRouter(handler.NewTodoHandler(todoUsecase, v, log), routes.Options{
		Logger:  log,
		Health:  health,
		Metrics: m.Handler(),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("サーバーを開始します")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("シャットダウンシグナルを受信しました")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}
	return nil
}
