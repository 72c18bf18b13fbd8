package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// ServerConfig contains all of the server settings
type ServerConfig struct {
	ListenAddrIP     string
	ListenAddrPort   string
	DatabaseType     string
	DatabaseHost     string
	DatabasePort     string
	DatabaseUser     string
	DatabasePassword string `json:"-"`
	DatabaseDbname   string
	DatabaseSslmode  string
	DatabaseDebug    bool
	StorageConfig
	ConverterConfig
	FeedbackConfig
	MaxUploadBytes  int64
	BlobTTLMinutes  int
	CleanupInterval int // minutes
	JobRetentionHrs int
}

// StorageConfig selects where uploaded resumes and page images live
type StorageConfig struct {
	StorageType    string // local or minio
	DocumentPath   string // absolute path for local storage
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string `json:"-"`
	S3Bucket       string
	S3Region       string
	S3UseSSL       bool
	S3CreateBucket bool
}

// ConverterConfig holds the PDF to image defaults
type ConverterConfig struct {
	Renderer   string // pdfium or fitz
	Scale      float64
	Quality    float64
	MaxRetries int
	Preload    bool
}

// FeedbackConfig configures the AI feedback service
type FeedbackConfig struct {
	OpenAIAPIKey  string `json:"-"`
	OpenAIBaseURL string
	OpenAIModel   string
	MaxTokens     int
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolVal
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatVal
}

// SetupServer loads configuration and returns ServerConfig and Logger
func SetupServer() (ServerConfig, *slog.Logger) {
	// Load .env file (silently ignore if doesn't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")

	logger := setupLogging()
	Logger = logger

	serverConfigLive := Load(logger)

	fmt.Println("\n========================================")
	fmt.Println("   resumefeedback - Resume Feedback API")
	fmt.Println("========================================")
	fmt.Printf("Server will start on: %s:%s\n", serverConfigLive.ListenAddrIP, serverConfigLive.ListenAddrPort)
	if serverConfigLive.ListenAddrIP == "" {
		fmt.Println("(Listening on all network interfaces)")
	}
	fmt.Printf("Detailed logs: %s\n", getEnv("LOG_FILE", "resumefeedback.log"))
	fmt.Println("Initializing...")

	return serverConfigLive, logger
}

// Load reads every setting from the environment. It does not touch .env
// files or logging so it is safe to call from tests and tools.
func Load(logger *slog.Logger) ServerConfig {
	serverConfigLive := ServerConfig{}

	// Server configuration
	serverConfigLive.ListenAddrPort = getEnv("SERVER_PORT", "8000")
	serverConfigLive.ListenAddrIP = getEnv("SERVER_ADDR", "")

	// Database configuration
	serverConfigLive.DatabaseType = getEnv("DATABASE_TYPE", "sqlite")
	serverConfigLive.DatabaseHost = getEnv("DATABASE_HOST", "localhost")
	serverConfigLive.DatabasePort = getEnv("DATABASE_PORT", "5432")
	serverConfigLive.DatabaseUser = getEnv("DATABASE_USER", "resumefeedback")
	serverConfigLive.DatabasePassword = getEnv("DATABASE_PASSWORD", "")
	serverConfigLive.DatabaseDbname = getEnv("DATABASE_NAME", "databases/resumefeedback.sqlite")
	serverConfigLive.DatabaseSslmode = getEnv("DATABASE_SSLMODE", "disable")
	serverConfigLive.DatabaseDebug = getEnvBool("DATABASE_DEBUG", false)
	logger.Info("Database configuration loaded", "type", serverConfigLive.DatabaseType)

	// Storage configuration
	storage := StorageConfig{}
	storage.StorageType = getEnv("STORAGE_TYPE", "local")
	documentPathRelative := filepath.ToSlash(getEnv("DOCUMENT_PATH", "documents"))
	documentPathAbs, err := filepath.Abs(documentPathRelative)
	if err != nil {
		logger.Error("Error creating document path", "path", documentPathRelative, "error", err)
		documentPathAbs = documentPathRelative
	}
	storage.DocumentPath = documentPathAbs
	storage.S3Endpoint = getEnv("S3_ENDPOINT", "")
	storage.S3AccessKey = getEnv("S3_ACCESS_KEY", "")
	storage.S3SecretKey = getEnv("S3_SECRET_KEY", "")
	storage.S3Bucket = getEnv("S3_BUCKET", "resumes")
	storage.S3Region = getEnv("S3_REGION", "")
	storage.S3UseSSL = getEnvBool("S3_USE_SSL", true)
	storage.S3CreateBucket = getEnvBool("S3_CREATE_BUCKET", false)
	serverConfigLive.StorageConfig = storage
	logger.Info("Storage configuration loaded", "type", storage.StorageType)

	// Converter configuration
	serverConfigLive.ConverterConfig = ConverterConfig{
		Renderer:   getEnv("RENDERER", "pdfium"),
		Scale:      getEnvFloat("PDF_SCALE", 2.0),
		Quality:    getEnvFloat("PDF_QUALITY", 0.9),
		MaxRetries: getEnvInt("PDF_MAX_RETRIES", 2),
		Preload:    getEnvBool("RENDERER_PRELOAD", true),
	}
	if serverConfigLive.Quality > 1 || serverConfigLive.Quality <= 0 {
		logger.Warn("PDF_QUALITY out of range, using 0.9", "quality", serverConfigLive.Quality)
		serverConfigLive.Quality = 0.9
	}
	if serverConfigLive.MaxRetries < 1 {
		logger.Warn("PDF_MAX_RETRIES must be positive, using 2", "maxRetries", serverConfigLive.MaxRetries)
		serverConfigLive.MaxRetries = 2
	}

	// Feedback configuration
	serverConfigLive.FeedbackConfig = FeedbackConfig{
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		MaxTokens:     getEnvInt("OPENAI_MAX_TOKENS", 4096),
	}
	if serverConfigLive.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, resume analysis will fail until it is configured")
	}

	serverConfigLive.MaxUploadBytes = int64(getEnvInt("MAX_UPLOAD_MB", 20)) * 1024 * 1024
	serverConfigLive.BlobTTLMinutes = getEnvInt("BLOB_TTL_MINUTES", 60)
	serverConfigLive.CleanupInterval = getEnvInt("CLEANUP_INTERVAL_MINUTES", 15)
	serverConfigLive.JobRetentionHrs = getEnvInt("JOB_RETENTION_HOURS", 24*7)

	return serverConfigLive
}

// setupLogging configures the application logger
func setupLogging() *slog.Logger {
	logLevel := getEnv("LOG_LEVEL", "debug")
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelDebug
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	logOutput := getEnv("LOG_OUTPUT", "file")
	var logWriter io.Writer

	if logOutput == "stdout" {
		logWriter = os.Stdout
	} else {
		logPath, err := filepath.Abs(filepath.ToSlash(getEnv("LOG_FILE", "resumefeedback.log")))
		if err != nil {
			fmt.Printf("Error creating log file path: %v\n", err)
			logWriter = os.Stdout
		} else {
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				fmt.Printf("Failed to open log file: %v\n", err)
				logWriter = os.Stdout
			} else {
				logWriter = logFile
				fmt.Println("Logging to file: ", logPath)
			}
		}
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}
