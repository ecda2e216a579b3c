package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	// 在空目录下加载，应该得到全默认值配置
	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(wd) })
	require.NoError(t, os.Chdir(t.TempDir()))

	cfg, err := LoadConfig("")
	require.NoError(t, err, "无配置文件时不应返回错误")

	assert.Equal(t, ":8000", cfg.Server.Address)
	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAI.Model)
	assert.Equal(t, 30*time.Second, cfg.OpenAI.RequestTimeout())
	assert.Equal(t, 2500, cfg.OpenAI.MaxTokens)
	assert.InDelta(t, 0.3, cfg.OpenAI.Temperature, 0.001)
	assert.Equal(t, "uploads", cfg.Upload.Dir)
	assert.Equal(t, filepath.Join("uploads", "profile_pictures"), cfg.Upload.ProfilePictureDir)
	assert.Equal(t, 24*time.Hour, cfg.Redis.AnalysisTTL())
	assert.Equal(t, "report.delivery", cfg.RabbitMQ.ReportQueue)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  address: ":9090"
openai:
  model: gpt-4o-mini
  request_timeout_seconds: 10
upload:
  dir: /data/uploads
report:
  font_path: /usr/share/fonts/NotoSansCJKsc-Regular.ttf
jwt:
  expire_minutes: 60
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, 10*time.Second, cfg.OpenAI.RequestTimeout())
	assert.Equal(t, "/data/uploads", cfg.Upload.Dir)
	// 未显式配置的头像目录应跟随上传目录
	assert.Equal(t, filepath.Join("/data/uploads", "profile_pictures"), cfg.Upload.ProfilePictureDir)
	assert.Equal(t, "/usr/share/fonts/NotoSansCJKsc-Regular.ttf", cfg.Report.FontPath)
	assert.Equal(t, time.Hour, cfg.JWT.Expiry())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.OpenAI.APIKey, "环境变量应覆盖配置文件中的密钥")
	assert.Equal(t, "env-secret", cfg.JWT.Secret)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "no-such.yaml"))
	require.Error(t, err, "显式指定的配置文件不存在时应报错")
}

func TestMySQLDSN(t *testing.T) {
	c := MySQLConfig{Host: "127.0.0.1", Port: 3306, Username: "root", Password: "pw", Database: "resume_coach"}
	assert.Equal(t, "root:pw@tcp(127.0.0.1:3306)/resume_coach?charset=utf8mb4&parseTime=True&loc=Local", c.DSN())
}
