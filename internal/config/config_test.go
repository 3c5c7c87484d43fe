package config

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestNewConfigFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"VOICE_WS_URL", "VOICE_RECONNECT_BASE_MS", "VOICE_MAX_RECONNECT_ATTEMPTS",
		"AUDIO_SAMPLE_RATE", "AUDIO_CHUNK_MS", "AUDIO_INPUT_DEVICE",
		"AUDIO_ECHO_CANCEL_SOURCE", "AUDIO_ECHO_CANCELLATION", "AUDIO_NOISE_SUPPRESSION", "PORT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := NewConfigFromEnv(zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewConfigFromEnv() error = %v", err)
	}

	if cfg.VoiceURL != "ws://localhost:46000" {
		t.Errorf("Expected default voice url, got %s", cfg.VoiceURL)
	}
	if cfg.ReconnectBase != 2*time.Second {
		t.Errorf("Expected reconnect base 2s, got %s", cfg.ReconnectBase)
	}
	if cfg.MaxReconnectAttempts != 5 {
		t.Errorf("Expected 5 reconnect attempts, got %d", cfg.MaxReconnectAttempts)
	}
	if cfg.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", cfg.SampleRate)
	}
	if cfg.ChunkInterval != 100*time.Millisecond {
		t.Errorf("Expected chunk interval 100ms, got %s", cfg.ChunkInterval)
	}
	if !cfg.EchoCancellation || !cfg.NoiseSuppression {
		t.Error("Echo cancellation and noise suppression should default to on")
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Port)
	}
}

func TestNewConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("VOICE_WS_URL", "wss://voice.example.com")
	t.Setenv("VOICE_RECONNECT_BASE_MS", "500")
	t.Setenv("VOICE_MAX_RECONNECT_ATTEMPTS", "3")
	t.Setenv("AUDIO_CHUNK_MS", "250")
	t.Setenv("AUDIO_NOISE_SUPPRESSION", "false")
	t.Setenv("AUDIO_INPUT_DEVICE", "hw:1")

	cfg, err := NewConfigFromEnv(zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewConfigFromEnv() error = %v", err)
	}

	if cfg.VoiceURL != "wss://voice.example.com" {
		t.Errorf("Unexpected voice url %s", cfg.VoiceURL)
	}
	if cfg.ReconnectBase != 500*time.Millisecond {
		t.Errorf("Expected reconnect base 500ms, got %s", cfg.ReconnectBase)
	}
	if cfg.MaxReconnectAttempts != 3 {
		t.Errorf("Expected 3 reconnect attempts, got %d", cfg.MaxReconnectAttempts)
	}
	if cfg.ChunkInterval != 250*time.Millisecond {
		t.Errorf("Expected chunk interval 250ms, got %s", cfg.ChunkInterval)
	}
	if cfg.NoiseSuppression {
		t.Error("Noise suppression should be off")
	}
	if cfg.InputDevice != "hw:1" {
		t.Errorf("Expected input device hw:1, got %s", cfg.InputDevice)
	}
}

func TestNewConfigFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "non-numeric reconnect base", key: "VOICE_RECONNECT_BASE_MS", value: "soon"},
		{name: "zero reconnect base", key: "VOICE_RECONNECT_BASE_MS", value: "0"},
		{name: "zero attempts", key: "VOICE_MAX_RECONNECT_ATTEMPTS", value: "0"},
		{name: "sample rate too high", key: "AUDIO_SAMPLE_RATE", value: "96000"},
		{name: "bad boolean", key: "AUDIO_ECHO_CANCELLATION", value: "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := NewConfigFromEnv(zaptest.NewLogger(t)); err == nil {
				t.Errorf("Expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
