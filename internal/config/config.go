package config

import (
	"log"

	"github.com/spf13/viper"
)

// Store driver names accepted in STORE_DRIVER. The driver is chosen once at
// process start; nothing below the repositories branches on it again.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	ServerPort   string `mapstructure:"SERVER_PORT"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	StoreDriver  string `mapstructure:"STORE_DRIVER"`
	JWTSecret    string `mapstructure:"JWT_SECRET"`
	ClientOrigin string `mapstructure:"CLIENT_ORIGIN"`
	AWSRegion    string `mapstructure:"AWS_REGION"`
	SESSender    string `mapstructure:"SES_SENDER"`
	EmailEnabled bool   `mapstructure:"EMAIL_ENABLED"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env") // Name of config file (without extension)
	viper.SetConfigType("env")

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("STORE_DRIVER", StorePostgres)
	viper.SetDefault("EMAIL_ENABLED", false)

	viper.AutomaticEnv() // Read in environment variables that match

	err := viper.ReadInConfig() // Find and read the config file
	if err != nil {
		// Handle errors reading the config file, but allow it if it's just "not found"
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No .env file found.")
		} else {
			return nil, err
		}
	}

	var cfg Config
	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
