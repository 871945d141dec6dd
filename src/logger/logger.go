package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"todo-app/src/config"

	"github.com/sirupsen/logrus"
)

var (
	Log          *logrus.Logger = logrus.New()
	currentFile  *os.File
	logDirectory = "logs"
)

// InitLogger ロガーを初期化し、ファイル出力を設定
// TUIモードでは画面を崩さないよう cfg.Stdout=false でファイルのみに出力する
func InitLogger(cfg config.LogConfig) error {
	Log = logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	// JSON形式でログを出力
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	if cfg.Directory != "" {
		logDirectory = cfg.Directory
	}

	// ログディレクトリを作成
	if err := os.MkdirAll(logDirectory, 0755); err != nil {
		return fmt.Errorf("ログディレクトリの作成に失敗: %w", err)
	}

	// 新しいログファイルを作成
	if err := rotateLogFile(); err != nil {
		return fmt.Errorf("ログファイルの作成に失敗: %w", err)
	}

	var out io.Writer = currentFile
	if cfg.Stdout {
		out = io.MultiWriter(os.Stdout, currentFile)
	}
	Log.SetOutput(out)

	Log.WithField("level", level.String()).Info("ロガーが初期化されました")
	return nil
}

// rotateLogFile 新しいログファイルを作成
func rotateLogFile() error {
	if currentFile != nil {
		currentFile.Close()
	}

	// 新しいファイル名を生成（タイムスタンプ付き）
	filename := fmt.Sprintf("todo_%s.log", time.Now().Format("2006-01-02_15-04-05.000"))
	path := filepath.Join(logDirectory, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	currentFile = file
	return nil
}

// Directory 現在のログディレクトリを取得
func Directory() string {
	return logDirectory
}

// GetCurrentLogFile 現在のログファイルパスを取得
func GetCurrentLogFile() string {
	if currentFile != nil {
		return currentFile.Name()
	}
	return ""
}

// CloseLogger ロガーを終了
func CloseLogger() {
	if currentFile != nil {
		Log.Info("ログファイルを閉じます")
		currentFile.Close()
		currentFile = nil
	}
}
