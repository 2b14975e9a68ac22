package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	DB     DBConfig
	OpenAI OpenAIConfig
	Auth   AuthConfig
	Turn   TurnConfig
	Log    LogConfig
}

type ServerConfig struct {
	Address         string
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DBConfig 選擇 postgres 或 sqlite，sqlite 只需要 Path
type DBConfig struct {
	Driver   string
	Host     string
	User     string
	Password string
	Name     string
	Port     int
	Path     string
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	// Headers 會附加在每個模型請求上，例如代理服務的驗證標頭
	Headers map[string]string
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type TurnConfig struct {
	DefaultModel      string        `mapstructure:"default_model"`
	TrialLimit        int           `mapstructure:"trial_limit"`
	GenerationTimeout time.Duration `mapstructure:"generation_timeout"`
	PersistTimeout    time.Duration `mapstructure:"persist_timeout"`
	PersistPartial    bool          `mapstructure:"persist_partial"`
	AllowOverride     bool          `mapstructure:"allow_override"`
}

type LogConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.path", "debateai.db")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 240*time.Hour)

	v.SetDefault("turn.default_model", "gpt-4o-mini")
	v.SetDefault("turn.trial_limit", 5)
	v.SetDefault("turn.generation_timeout", 2*time.Minute)
	v.SetDefault("turn.persist_timeout", 30*time.Second)
	v.SetDefault("turn.persist_partial", true)
	v.SetDefault("turn.allow_override", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load 讀取 .env、config.yaml 與 DEBATEAI_ 前綴的環境變數
// path 為空時在 ./pkg/config 與當前目錄搜尋 config.yaml
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./pkg/config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("DEBATEAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}

	return &config, nil
}
