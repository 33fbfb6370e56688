package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"vipsscaler/internal/core/domain"
	"vipsscaler/internal/core/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const envPrefix = "VIPSSCALER"

type Config struct {
	Log      Log      `mapstructure:"log"`
	Scaler   Scaler   `mapstructure:"scaler"`
	Telegram Telegram `mapstructure:"telegram"`
	Handler  Handler  `mapstructure:"handler"`
	Thumb    Thumb    `mapstructure:"thumb"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type Scaler struct {
	Binary              string            `mapstructure:"binary"`
	TempDir             string            `mapstructure:"temp_dir"`
	TempPrefix          string            `mapstructure:"temp_prefix"`
	MaxFileSizeKiB      int64             `mapstructure:"max_file_size_kib"`
	PollInterval        time.Duration     `mapstructure:"poll_interval"`
	KillGrace           time.Duration     `mapstructure:"kill_grace"`
	Timeout             time.Duration     `mapstructure:"timeout"`
	CommentArgument     string            `mapstructure:"comment_argument"`
	MaxOutputCaptureKiB int               `mapstructure:"max_output_capture_kib"`
	Environment         map[string]string `mapstructure:"environment"`
	Formats             map[string]Format `mapstructure:"formats"`
}

type Format struct {
	Arguments     []Argument `mapstructure:"arguments"`
	OutputOptions []string   `mapstructure:"output_options"`
	Intermediate  string     `mapstructure:"intermediate"`
}

type Argument struct {
	Name  string `mapstructure:"name"`
	Value string `mapstructure:"value"`
}

type Telegram struct {
	BotToken       string  `mapstructure:"bot_token"`
	AllowedChatIDs []int64 `mapstructure:"allowed_chat_ids"`
	AdminUsername  string  `mapstructure:"admin_username"`
}

type Handler struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type Thumb struct {
	DefaultWidth int `mapstructure:"default_width"`
}

func setDefaults() {
	viper.SetDefault("log.level", "info")

	viper.SetDefault("scaler.binary", "vipsthumbnail")
	viper.SetDefault("scaler.temp_dir", "")
	viper.SetDefault("scaler.temp_prefix", "vips_")
	viper.SetDefault("scaler.max_file_size_kib", 400*1024)
	viper.SetDefault("scaler.poll_interval", "50ms")
	viper.SetDefault("scaler.kill_grace", "2s")
	viper.SetDefault("scaler.timeout", "1m")
	viper.SetDefault("scaler.comment_argument", "")
	viper.SetDefault("scaler.max_output_capture_kib", 64)
	viper.SetDefault("scaler.environment", map[string]any{"IM_CONCURRENCY": "1"})

	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.allowed_chat_ids", []int64{})
	viper.SetDefault("telegram.admin_username", "")

	viper.SetDefault("handler.timeout", "2m")

	viper.SetDefault("thumb.default_width", 640)
}

// Load reads the TOML configuration at path, which may be a file or a directory holding
// config.toml. An empty path searches the working directory and tolerates a missing
// file. Every key can be overridden by VIPSSCALER_<SECTION>_<KEY>.
func Load(path string) (*Config, error) {
	setDefaults()

	viper.SetConfigType("toml")
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	optional := path == ""
	switch {
	case optional:
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
	case isDir(path):
		viper.AddConfigPath(path)
		viper.SetConfigName("config")
	default:
		viper.SetConfigFile(path)
	}

	log.Info().Str("path", path).Msg("reading config file...")
	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !optional || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}

		log.Warn().Msg("no config file found, using defaults")
	}

	var cfg Config
	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}

	err = cfg.validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func (c *Config) validate() error {
	switch {
	case c.Scaler.Binary == "":
		return errors.New("scaler.binary must be set")
	case c.Scaler.MaxFileSizeKiB < 0:
		return errors.New("scaler.max_file_size_kib must not be negative")
	case c.Scaler.PollInterval <= 0:
		return errors.New("scaler.poll_interval must be positive")
	case c.Scaler.MaxOutputCaptureKiB <= 0:
		return errors.New("scaler.max_output_capture_kib must be positive")
	case c.Handler.Timeout <= 0:
		return errors.New("handler.timeout must be positive")
	case c.Thumb.DefaultWidth <= 0:
		return errors.New("thumb.default_width must be positive")
	}

	return nil
}

// Level maps log.level onto zerolog, falling back to info.
func (c *Config) Level() zerolog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Service builds the scaler settings for a resolved binary path. Environment names are
// upper-cased since the config layer folds keys to lower case.
func (s Scaler) Service(binary string) service.ScalerConfig {
	env := make(map[string]string, len(s.Environment))
	for k, v := range s.Environment {
		env[strings.ToUpper(k)] = v
	}

	formats := make(map[string]domain.Format, len(s.Formats))
	for mime, f := range s.Formats {
		args := make([]domain.Arg, 0, len(f.Arguments))
		for _, a := range f.Arguments {
			args = append(args, domain.Arg{Name: a.Name, Value: a.Value})
		}

		formats[mime] = domain.Format{Arguments: args, OutputOptions: f.OutputOptions, Intermediate: f.Intermediate}
	}

	return service.ScalerConfig{
		Binary:      binary,
		Environment: env,
		Limits: domain.Limits{
			MaxFileSize:  s.MaxFileSizeKiB * 1024,
			PollInterval: s.PollInterval,
		},
		Timeout:         s.Timeout,
		CommentArgument: s.CommentArgument,
		Formats:         formats,
	}
}

// CaptureLimit is the diagnostics buffer size in bytes.
func (s Scaler) CaptureLimit() int {
	return s.MaxOutputCaptureKiB * 1024
}
