package configs

import (
	"errors"

	"github.com/google/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	JWT struct {
		Secret string `mapstructure:"secret"`
	} `mapstructure:"jwt"`
	Airdrop struct {
		Amount uint64 `mapstructure:"amount"`
	} `mapstructure:"airdrop"`
}

var AppConfig Config

// LoadConfig reads configs/config.yaml with env overrides. A missing file
// is fine; every key has a default. An unreadable file is fatal.
func LoadConfig() {
	viper.AddConfigPath("./configs")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("jwt.secret", "easybet-dev-secret")
	viper.SetDefault("airdrop.amount", 1000)

	viper.AutomaticEnv()

	var fileLookupError viper.ConfigFileNotFoundError
	if err := viper.ReadInConfig(); err != nil {
		if !errors.As(err, &fileLookupError) {
			logger.Fatalf("failed to read config: %v", err)
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		logger.Fatalf("failed to unmarshal config: %v", err)
	}
}
