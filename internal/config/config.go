package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string
	DBDriver      string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	RedisHost     string
	RedisPort     string
	SessionSecret string
	TokenSecret   string
	TokenTTL      time.Duration
	GinMode       string
	LogLevel      string
	LogFormat     string
	OpenAIAPIKey  string

	// Face recognition service (Luxand-compatible API)
	FaceAPIURL  string
	FaceAPIKey  string
	FaceAPIHost string

	// Face photo storage
	BlobDriver      string
	BlobS3Bucket    string
	BlobS3Region    string
	BlobS3Endpoint  string
	BlobS3PathStyle bool
	BlobS3AccessKey string
	BlobS3SecretKey string

	LockDriver        string
	// LockTTL is the Redis lease length. Holders renew it every LockTTL/3, so it
	// only bounds how long a crashed holder blocks others.
	LockTTL           time.Duration
	ReconcileInterval time.Duration
}

func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USER", "workforce")
	v.SetDefault("DB_PASSWORD", "workforce")
	v.SetDefault("DB_NAME", "workforce")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("SESSION_SECRET", "default-secret-key-change-me")
	v.SetDefault("TOKEN_SECRET", "default-token-secret-change-me")
	v.SetDefault("TOKEN_TTL", "12h")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("FACE_API_URL", "")
	v.SetDefault("FACE_API_KEY", "")
	v.SetDefault("FACE_API_HOST", "luxand-cloud-face-recognition.p.rapidapi.com")
	v.SetDefault("BLOB_DRIVER", "memory")
	v.SetDefault("BLOB_S3_BUCKET", "")
	v.SetDefault("BLOB_S3_REGION", "us-east-1")
	v.SetDefault("BLOB_S3_ENDPOINT", "")
	v.SetDefault("BLOB_S3_PATH_STYLE", false)
	v.SetDefault("BLOB_S3_ACCESS_KEY", "")
	v.SetDefault("BLOB_S3_SECRET_KEY", "")
	v.SetDefault("LOCK_DRIVER", "memory")
	v.SetDefault("LOCK_TTL", "10s")
	v.SetDefault("RECONCILE_INTERVAL", "15m")

	return &Config{
		Port:              v.GetString("PORT"),
		DBDriver:          v.GetString("DB_DRIVER"),
		DBHost:            v.GetString("DB_HOST"),
		DBPort:            v.GetString("DB_PORT"),
		DBUser:            v.GetString("DB_USER"),
		DBPassword:        v.GetString("DB_PASSWORD"),
		DBName:            v.GetString("DB_NAME"),
		RedisHost:         v.GetString("REDIS_HOST"),
		RedisPort:         v.GetString("REDIS_PORT"),
		SessionSecret:     v.GetString("SESSION_SECRET"),
		TokenSecret:       v.GetString("TOKEN_SECRET"),
		TokenTTL:          v.GetDuration("TOKEN_TTL"),
		GinMode:           v.GetString("GIN_MODE"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFormat:         v.GetString("LOG_FORMAT"),
		OpenAIAPIKey:      v.GetString("OPENAI_API_KEY"),
		FaceAPIURL:        v.GetString("FACE_API_URL"),
		FaceAPIKey:        v.GetString("FACE_API_KEY"),
		FaceAPIHost:       v.GetString("FACE_API_HOST"),
		BlobDriver:        v.GetString("BLOB_DRIVER"),
		BlobS3Bucket:      v.GetString("BLOB_S3_BUCKET"),
		BlobS3Region:      v.GetString("BLOB_S3_REGION"),
		BlobS3Endpoint:    v.GetString("BLOB_S3_ENDPOINT"),
		BlobS3PathStyle:   v.GetBool("BLOB_S3_PATH_STYLE"),
		BlobS3AccessKey:   v.GetString("BLOB_S3_ACCESS_KEY"),
		BlobS3SecretKey:   v.GetString("BLOB_S3_SECRET_KEY"),
		LockDriver:        v.GetString("LOCK_DRIVER"),
		LockTTL:           v.GetDuration("LOCK_TTL"),
		ReconcileInterval: v.GetDuration("RECONCILE_INTERVAL"),
	}
}

// RedisAddr returns the host:port pair shared by the session store and the lock service.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}
