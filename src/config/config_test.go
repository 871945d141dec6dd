package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"todo-app/src/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.toml")
}

func TestLoadConfig(t *testing.T) {
	t.Run("デフォルト値でのconfig読み込み", func(t *testing.T) {
		cfg, err := config.LoadConfig(missingFile(t))
		require.NoError(t, err)

		assert.Equal(t, "sqlite", cfg.Store.Driver)
		assert.Equal(t, "TodoListDB.db", cfg.Store.Path)
		assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr())
		assert.Equal(t, "info", cfg.Log.Level)
		assert.Equal(t, "logs", cfg.Log.Directory)
		assert.False(t, cfg.Log.UploadEnabled)
		assert.Equal(t, 24*time.Hour, cfg.Log.UploadMaxAge)
		assert.Equal(t, 1*time.Hour, cfg.Log.UploadInterval)
		assert.Equal(t, "todo-app-logs", cfg.S3.Bucket)
		assert.False(t, cfg.S3.UseSSL)
	})

	t.Run("環境変数でのconfig上書き", func(t *testing.T) {
		t.Setenv("TODO_STORE_DRIVER", "memory")
		t.Setenv("SERVER_PORT", "9090")
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("LOG_UPLOAD_ENABLED", "true")
		t.Setenv("LOG_UPLOAD_MAX_AGE", "12h")
		t.Setenv("S3_REGION", "ap-northeast-1")
		t.Setenv("S3_USE_SSL", "true")

		cfg, err := config.LoadConfig(missingFile(t))
		require.NoError(t, err)

		assert.Equal(t, "memory", cfg.Store.Driver)
		assert.Equal(t, "9090", cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.True(t, cfg.Log.UploadEnabled)
		assert.Equal(t, 12*time.Hour, cfg.Log.UploadMaxAge)
		assert.Equal(t, "ap-northeast-1", cfg.S3.Region)
		assert.True(t, cfg.S3.UseSSL)
	})

	t.Run("不正な環境変数でのフォールバック", func(t *testing.T) {
		t.Setenv("LOG_UPLOAD_ENABLED", "not-a-bool")
		t.Setenv("LOG_UPLOAD_INTERVAL", "soon")

		cfg, err := config.LoadConfig(missingFile(t))
		require.NoError(t, err)

		assert.False(t, cfg.Log.UploadEnabled)
		assert.Equal(t, 1*time.Hour, cfg.Log.UploadInterval)
	})
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.toml")
	content := `
[store]
driver = "postgres"
dsn = "postgres://localhost/todos?sslmode=disable"

[server]
port = "7070"

[log]
level = "warn"
upload_interval = "30m"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Run("ファイルの値が反映される", func(t *testing.T) {
		cfg, err := config.LoadConfig(path)
		require.NoError(t, err)

		assert.Equal(t, "postgres", cfg.Store.Driver)
		assert.Equal(t, "postgres://localhost/todos?sslmode=disable", cfg.Store.DSN)
		assert.Equal(t, "7070", cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Log.Level)
		assert.Equal(t, 30*time.Minute, cfg.Log.UploadInterval)
		// ファイルに無い値はデフォルトのまま
		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	})

	t.Run("環境変数がファイルより優先される", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "6060")

		cfg, err := config.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "6060", cfg.Server.Port)
	})

	t.Run("TODO_CONFIGでファイルを指定", func(t *testing.T) {
		t.Setenv("TODO_CONFIG", path)

		cfg, err := config.LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, "postgres", cfg.Store.Driver)
	})

	t.Run(".envのTODO_CONFIGでファイルを指定", func(t *testing.T) {
		// 終了時に元の値へ戻すため登録してから消す
		t.Setenv("TODO_CONFIG", "")
		require.NoError(t, os.Unsetenv("TODO_CONFIG"))

		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TODO_CONFIG="+path+"\n"), 0o600))
		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(dir))
		t.Cleanup(func() { _ = os.Chdir(wd) })

		cfg, err := config.LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, "postgres", cfg.Store.Driver)
		assert.Equal(t, "7070", cfg.Server.Port)
	})
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("[store\ndriver = "), 0o600))

	_, err := config.LoadConfig(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode config file")
}
