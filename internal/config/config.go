package config

import (
	"os"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// FeedURL is the websocket endpoint of the change-subscription service.
	FeedURL string

	// AccessToken is the session JWT issued by the auth service. The client
	// never mints tokens itself.
	AccessToken string
	JWTSecret   string

	S3Region string
	S3Bucket string

	Development bool
}

func Load() *Config {
	return &Config{
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "messenger"),
		DBPassword:  getEnv("DB_PASSWORD", "messenger_dev_password"),
		DBName:      getEnv("DB_NAME", "messenger"),
		FeedURL:     getEnv("FEED_URL", "ws://localhost:4000/realtime"),
		AccessToken: getEnv("ACCESS_TOKEN", ""),
		JWTSecret:   getEnv("JWT_SECRET", "dev-secret-change-me"),
		S3Region:    getEnv("S3_REGION", "ap-northeast-1"),
		S3Bucket:    getEnv("S3_BUCKET", "message-images"),
		Development: getEnv("APP_ENV", "development") != "production",
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}
