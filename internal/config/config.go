package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration for the client.
type Config struct {
	API     APIConfig
	Media   MediaConfig
	Session SessionConfig
	Storage StorageConfig
}

type APIConfig struct {
	BaseURL       string
	AuthTimeout   time.Duration
	LookupTimeout time.Duration
	ListTimeout   time.Duration
	UploadTimeout time.Duration
}

type MediaConfig struct {
	RecorderCommand  string
	VideoInputFormat string
	VideoDevice      string
	AudioInputFormat string
	AudioDevice      string
	Width            int
	Height           int
	Framerate        int
}

type SessionConfig struct {
	RecordLimitSeconds int
	StartDelay         time.Duration
	CloseDelay         time.Duration
	ChunkSize          int
	Notes              string
}

type StorageConfig struct {
	TokenPath string
}

// Load resolves configuration from a .env file (when present), environment
// variables, and sensible defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	tokenPath := strings.TrimSpace(os.Getenv("SOLACE_TOKEN_FILE"))
	if tokenPath == "" {
		tokenPath = filepath.Join(home, ".config", "solace", "auth_token")
	}

	cfg := Config{
		API: APIConfig{
			BaseURL:       envOrDefault("SOLACE_API_BASE", "http://localhost:8000"),
			AuthTimeout:   envOrDefaultMillis("SOLACE_AUTH_TIMEOUT_MS", 30_000),
			LookupTimeout: envOrDefaultMillis("SOLACE_LOOKUP_TIMEOUT_MS", 10_000),
			ListTimeout:   envOrDefaultMillis("SOLACE_LIST_TIMEOUT_MS", 15_000),
			UploadTimeout: envOrDefaultMillis("SOLACE_UPLOAD_TIMEOUT_MS", 60_000),
		},
		Media: MediaConfig{
			RecorderCommand:  envOrDefault("SOLACE_FFMPEG_COMMAND", "ffmpeg"),
			VideoInputFormat: envOrDefault("SOLACE_VIDEO_INPUT_FORMAT", "v4l2"),
			VideoDevice:      envOrDefault("SOLACE_VIDEO_DEVICE", "/dev/video0"),
			AudioInputFormat: envOrDefault("SOLACE_AUDIO_INPUT_FORMAT", "pulse"),
			AudioDevice:      envOrDefault("SOLACE_AUDIO_DEVICE", "default"),
			Width:            envOrDefaultInt("SOLACE_VIDEO_WIDTH", 1280),
			Height:           envOrDefaultInt("SOLACE_VIDEO_HEIGHT", 720),
			Framerate:        envOrDefaultInt("SOLACE_VIDEO_FRAMERATE", 30),
		},
		Session: SessionConfig{
			RecordLimitSeconds: envOrDefaultInt("SOLACE_RECORD_LIMIT_SECONDS", 120),
			StartDelay:         envOrDefaultMillis("SOLACE_START_DELAY_MS", 500),
			CloseDelay:         envOrDefaultMillis("SOLACE_CLOSE_DELAY_MS", 3000),
			ChunkSize:          envOrDefaultInt("SOLACE_CLIP_CHUNK_SIZE", 32*1024),
			Notes:              envOrDefault("SOLACE_CHECKIN_NOTES", "Daily video check-in"),
		},
		Storage: StorageConfig{
			TokenPath: tokenPath,
		},
	}

	if cfg.API.BaseURL == "" {
		return Config{}, errors.New("API base URL must not be empty")
	}
	if cfg.Media.Width <= 0 {
		cfg.Media.Width = 1280
	}
	if cfg.Media.Height <= 0 {
		cfg.Media.Height = 720
	}
	if cfg.Media.Framerate <= 0 {
		cfg.Media.Framerate = 30
	}
	if cfg.Session.RecordLimitSeconds <= 0 {
		cfg.Session.RecordLimitSeconds = 120
	}
	if cfg.Session.ChunkSize < 1024 {
		cfg.Session.ChunkSize = 32 * 1024
	}

	return cfg, nil
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultMillis(key string, fallback int) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return time.Duration(fallback) * time.Millisecond
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return time.Duration(fallback) * time.Millisecond
	}
	return time.Duration(parsed) * time.Millisecond
}
