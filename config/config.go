package config

import (
	"errors"
	"io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultOrigins are the front-end hosts allowed to call the API from a browser.
var DefaultOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
	"https://find-the-vehicles.vercel.app",
}

type Config struct {
	Host string
	Port int

	ModelPath      string
	LabelsPath     string
	RuntimeLibPath string

	InputSize      int
	ConfThreshold  float32
	IouThreshold   float32
	MaxDetections  int
	IntraOpThreads int

	MaxUploadBytes int64
	MaxImagePixels int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string

	Debug bool
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first if present; real environment variables
// take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from the current environment only.
func FromEnv() *Config {
	return &Config{
		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnvAsInt("PORT", 8000),
		ModelPath:      getEnv("MODEL_PATH", "model.onnx"),
		LabelsPath:     getEnv("LABELS_PATH", ""),
		RuntimeLibPath: getEnv("ONNXRUNTIME_LIB", defaultRuntimeLib()),
		InputSize:      getEnvAsInt("MODEL_INPUT_SIZE", 640),
		ConfThreshold:  getEnvAsFloat32("MODEL_CONF_THRESHOLD", 0.25),
		IouThreshold:   getEnvAsFloat32("MODEL_IOU_THRESHOLD", 0.45),
		MaxDetections:  getEnvAsInt("MODEL_MAX_DETECTIONS", 1000),
		IntraOpThreads: getEnvAsInt("INTRA_OP_THREADS", runtime.NumCPU()),
		MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_MB", 32)) << 20,
		MaxImagePixels: getEnvAsInt("MAX_IMAGE_PIXELS", 50_000_000),
		ReadTimeout:    getEnvAsDuration("READ_TIMEOUT", 60*time.Second),
		WriteTimeout:   getEnvAsDuration("WRITE_TIMEOUT", 60*time.Second),
		AllowedOrigins: getEnvAsList("CORS_ORIGINS", DefaultOrigins),
		Debug:          os.Getenv("DEBUG") == "true",
	}
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func defaultRuntimeLib() string {
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 32); err == nil && f >= 0 && f <= 1 {
			return float32(f)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
