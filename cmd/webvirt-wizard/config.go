package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	internalhttp "github.com/pzerone/webvirt-wizard/internal/api/http"
	"github.com/spf13/viper"
)

type Config struct {
	Log     LogConfig
	Http    internalhttp.Config
	Api     ApiConfig
	Session SessionConfig
}

type ApiConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SessionConfig struct {
	File      string `mapstructure:"file"`
	Ephemeral bool   `mapstructure:"ephemeral"`
}

var config Config

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "webvirt-wizard", "session.yaml")
}

func InitConfig(logOutput *os.File) {
	var err error

	_ = godotenv.Load()

	viper.SetConfigName("application")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./cmd/webvirt-wizard")
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("log.level", LOG_LEVEL_INFO)
	viper.SetDefault("http.host", "127.0.0.1")
	viper.SetDefault("http.port", 3000)
	viper.SetDefault("api.timeout", 0)
	viper.SetDefault("session.file", defaultSessionFile())

	_ = viper.BindEnv("api.base_url", "API_BASE_URL", "API_URL", "VITE_API_URL")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(err)
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		panic(err)
	}
	if config.Session.File == "" {
		config.Session.File = defaultSessionFile()
	}

	// Initialize logger with configured log level
	initLogger(config.Log.Level, logOutput)

	// Pretty print config as JSON (only at DEBUG level)
	if strings.ToUpper(config.Log.Level) == LOG_LEVEL_DEBUG {
		configJSON, err := json.MarshalIndent(config, "", "  ")
		if err == nil {
			fmt.Fprintln(logOutput, "Config loaded:")
			fmt.Fprintln(logOutput, string(configJSON))
		}
	}
}

func (c ApiConfig) validate() error {
	if c.BaseURL == "" {
		return errors.New("api.base_url is required (set API_URL or api.base_url in application.yaml)")
	}
	return nil
}
