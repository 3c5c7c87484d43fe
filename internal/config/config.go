package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	defaultVoiceURL        = "ws://localhost:46000"
	defaultReconnectBaseMs = 2000
	defaultMaxReconnect    = 5
	defaultSampleRate      = 16000
	defaultChunkMs         = 100
	defaultPort            = "8080"
)

// Config holds the kiosk configuration.
// Everything is optional; defaults match the drive-thru voice service.
type Config struct {
	VoiceURL             string        // VOICE_WS_URL
	ReconnectBase        time.Duration // VOICE_RECONNECT_BASE_MS
	MaxReconnectAttempts int           // VOICE_MAX_RECONNECT_ATTEMPTS

	SampleRate       int           // AUDIO_SAMPLE_RATE
	ChunkInterval    time.Duration // AUDIO_CHUNK_MS
	InputDevice      string        // AUDIO_INPUT_DEVICE
	EchoCancelSource string        // AUDIO_ECHO_CANCEL_SOURCE
	EchoCancellation bool          // AUDIO_ECHO_CANCELLATION
	NoiseSuppression bool          // AUDIO_NOISE_SUPPRESSION

	Port string // PORT
}

// NewConfigFromEnv reads the configuration from the environment
func NewConfigFromEnv(logger *zap.Logger) (Config, error) {
	var err error
	cfg := Config{
		VoiceURL:         stringEnv("VOICE_WS_URL", defaultVoiceURL),
		InputDevice:      os.Getenv("AUDIO_INPUT_DEVICE"),
		EchoCancelSource: os.Getenv("AUDIO_ECHO_CANCEL_SOURCE"),
		Port:             stringEnv("PORT", defaultPort),
	}

	reconnectMs, err := intEnv("VOICE_RECONNECT_BASE_MS", defaultReconnectBaseMs)
	if err != nil {
		return Config{}, err
	}
	cfg.ReconnectBase = time.Duration(reconnectMs) * time.Millisecond

	if cfg.MaxReconnectAttempts, err = intEnv("VOICE_MAX_RECONNECT_ATTEMPTS", defaultMaxReconnect); err != nil {
		return Config{}, err
	}
	if cfg.SampleRate, err = intEnv("AUDIO_SAMPLE_RATE", defaultSampleRate); err != nil {
		return Config{}, err
	}

	chunkMs, err := intEnv("AUDIO_CHUNK_MS", defaultChunkMs)
	if err != nil {
		return Config{}, err
	}
	cfg.ChunkInterval = time.Duration(chunkMs) * time.Millisecond

	if cfg.EchoCancellation, err = boolEnv("AUDIO_ECHO_CANCELLATION", true); err != nil {
		return Config{}, err
	}
	if cfg.NoiseSuppression, err = boolEnv("AUDIO_NOISE_SUPPRESSION", true); err != nil {
		return Config{}, err
	}

	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}

	logger.Info("Configuration loaded",
		zap.String("voiceURL", cfg.VoiceURL),
		zap.Duration("reconnectBase", cfg.ReconnectBase),
		zap.Int("maxReconnectAttempts", cfg.MaxReconnectAttempts),
		zap.Int("sampleRate", cfg.SampleRate),
		zap.Duration("chunkInterval", cfg.ChunkInterval),
		zap.String("port", cfg.Port))

	return cfg, nil
}

// ValidateConfig validates the Config
func ValidateConfig(cfg Config) error {
	if cfg.VoiceURL == "" {
		return fmt.Errorf("voice service url is required")
	}
	if cfg.ReconnectBase <= 0 {
		return fmt.Errorf("reconnect base must be positive, got %s", cfg.ReconnectBase)
	}
	if cfg.MaxReconnectAttempts < 1 {
		return fmt.Errorf("max reconnect attempts must be at least 1, got %d", cfg.MaxReconnectAttempts)
	}
	if cfg.SampleRate < 8000 || cfg.SampleRate > 48000 {
		return fmt.Errorf("sample rate must be between 8000 and 48000, got %d", cfg.SampleRate)
	}
	if cfg.ChunkInterval <= 0 {
		return fmt.Errorf("chunk interval must be positive, got %s", cfg.ChunkInterval)
	}
	if cfg.Port == "" {
		return fmt.Errorf("port is required")
	}
	return nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}
