package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	"vipsscaler/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[log]
level = "debug"

[scaler]
binary = "/opt/vips/bin/vipsthumbnail"
temp_dir = "/var/tmp/scaler"
max_file_size_kib = 1024
timeout = "30s"
comment_argument = "comment"

[scaler.environment]
IM_CONCURRENCY = "2"
VIPS_WARNING = "0"

[scaler.formats."image/jpeg"]
output_options = ["Q=85", "strip"]

[scaler.formats."image/png"]
intermediate = ".v"

[[scaler.formats."image/png".arguments]]
name = "linear"

[[scaler.formats."image/png".arguments]]
name = "smartcrop"
value = "attention"

[telegram]
bot_token = "123:abc"
allowed_chat_ids = [42, -1001]
admin_username = "operator"

[handler]
timeout = "90s"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func resetViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadFile(t *testing.T) {
	resetViper(t)

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
	assert.Equal(t, "/opt/vips/bin/vipsthumbnail", cfg.Scaler.Binary)
	assert.Equal(t, "/var/tmp/scaler", cfg.Scaler.TempDir)
	assert.Equal(t, "vips_", cfg.Scaler.TempPrefix)
	assert.Equal(t, int64(1024), cfg.Scaler.MaxFileSizeKiB)
	assert.Equal(t, 30*time.Second, cfg.Scaler.Timeout)
	assert.Equal(t, 50*time.Millisecond, cfg.Scaler.PollInterval)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, []int64{42, -1001}, cfg.Telegram.AllowedChatIDs)
	assert.Equal(t, "operator", cfg.Telegram.AdminUsername)
	assert.Equal(t, 90*time.Second, cfg.Handler.Timeout)
	assert.Equal(t, 640, cfg.Thumb.DefaultWidth)
}

func TestLoadDirectory(t *testing.T) {
	resetViper(t)

	path := writeConfig(t, sampleConfig)

	cfg, err := Load(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)

	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
	assert.Equal(t, "vipsthumbnail", cfg.Scaler.Binary)
	assert.Equal(t, int64(409600), cfg.Scaler.MaxFileSizeKiB)
	assert.Equal(t, 2*time.Second, cfg.Scaler.KillGrace)
	assert.Equal(t, time.Minute, cfg.Scaler.Timeout)
	assert.Equal(t, 64*1024, cfg.Scaler.CaptureLimit())
	assert.Equal(t, 2*time.Minute, cfg.Handler.Timeout)
	assert.Equal(t, 640, cfg.Thumb.DefaultWidth)

	sc := cfg.Scaler.Service("/usr/bin/vipsthumbnail")
	assert.Equal(t, map[string]string{"IM_CONCURRENCY": "1"}, sc.Environment)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	resetViper(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	resetViper(t)

	t.Setenv("VIPSSCALER_TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("VIPSSCALER_SCALER_TIMEOUT", "5s")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Telegram.BotToken)
	assert.Equal(t, 5*time.Second, cfg.Scaler.Timeout)
}

func TestLoadInvalid(t *testing.T) {
	testCases := []struct {
		description string
		content     string
	}{
		{
			description: "empty binary",
			content:     "[scaler]\nbinary = \"\"\n",
		},
		{
			description: "negative size limit",
			content:     "[scaler]\nmax_file_size_kib = -1\n",
		},
		{
			description: "zero width",
			content:     "[thumb]\ndefault_width = 0\n",
		},
		{
			description: "bad duration",
			content:     "[handler]\ntimeout = \"soon\"\n",
		},
		{
			description: "malformed toml",
			content:     "[scaler\n",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			resetViper(t)

			_, err := Load(writeConfig(t, testCase.content))
			require.Error(t, err)
		})
	}
}

func TestScalerService(t *testing.T) {
	resetViper(t)

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	sc := cfg.Scaler.Service("/opt/vips/bin/vipsthumbnail")

	assert.Equal(t, "/opt/vips/bin/vipsthumbnail", sc.Binary)
	assert.Equal(t, "comment", sc.CommentArgument)
	assert.Equal(t, int64(1024*1024), sc.Limits.MaxFileSize)
	assert.Equal(t, 50*time.Millisecond, sc.Limits.PollInterval)
	assert.Equal(t, "2", sc.Environment["IM_CONCURRENCY"])
	assert.Equal(t, "0", sc.Environment["VIPS_WARNING"])

	assert.Equal(t, []string{"Q=85", "strip"}, sc.Formats["image/jpeg"].OutputOptions)
	assert.Equal(t, domain.Format{
		Arguments: []domain.Arg{
			{Name: "linear"},
			{Name: "smartcrop", Value: "attention"},
		},
		Intermediate: ".v",
	}, sc.Formats["image/png"])
}

func TestLevel(t *testing.T) {
	testCases := []struct {
		level string
		want  zerolog.Level
	}{
		{level: "debug", want: zerolog.DebugLevel},
		{level: "INFO", want: zerolog.InfoLevel},
		{level: "warn", want: zerolog.WarnLevel},
		{level: "error", want: zerolog.ErrorLevel},
		{level: "verbose", want: zerolog.InfoLevel},
		{level: "", want: zerolog.InfoLevel},
	}

	for _, testCase := range testCases {
		t.Run(testCase.level, func(t *testing.T) {
			cfg := &Config{Log: Log{Level: testCase.level}}
			assert.Equal(t, testCase.want, cfg.Level())
		})
	}
}
