// Package config loads the service settings from the environment, after
// reading a .env file when one is present.
package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerAddr string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioPublicURL string

	// ImageStoreURL is an upload endpoint used instead of a bucket.
	ImageStoreURL string

	EditorMaxImageWidth   int
	EditorCompact         bool
	EditorPreviewFallback bool
	EditorPlaceholder     string
	CompressImages        bool
}

// Load reads .env (if any) then the environment
func Load() *Config {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file. A missing file is not an error.
func LoadFile(path string) *Config {
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to read %s: %v", path, err)
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),

		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "richedit"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "editor-images"),
		MinioUseSSL:    getBoolEnv("MINIO_USE_SSL", false),
		MinioPublicURL: getEnv("MINIO_PUBLIC_URL", ""),

		ImageStoreURL: getEnv("IMAGE_STORE_URL", ""),

		EditorMaxImageWidth:   getIntEnv("EDITOR_MAX_IMAGE_WIDTH", 0),
		EditorCompact:         getBoolEnv("EDITOR_COMPACT", false),
		EditorPreviewFallback: getBoolEnv("EDITOR_PREVIEW_FALLBACK", false),
		EditorPlaceholder:     getEnv("EDITOR_PLACEHOLDER", "Start writing..."),
		CompressImages:        getBoolEnv("COMPRESS_IMAGES", true),
	}
}

// GetDatabaseConnectionString returns the lib/pq connection URL, or "" when
// no database host is configured.
func (c *Config) GetDatabaseConnectionString() string {
	if c.DBHost == "" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// GetServerAddr returns the listen address
func (c *Config) GetServerAddr() string {
	return c.ServerAddr
}

// HasMinio reports whether a bucket is configured.
func (c *Config) HasMinio() bool {
	return c.MinioEndpoint != ""
}

func (c *Config) String() string {
	return fmt.Sprintf("addr=%s db=%t minio=%t image_store=%q", c.ServerAddr, c.DBHost != "", c.HasMinio(), c.ImageStoreURL)
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getBoolEnv(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}
