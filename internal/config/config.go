// Package config handles loading and validating the murmur configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the murmur daemon.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Transports    TransportsConfig    `mapstructure:"transports"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Audio         AudioConfig         `mapstructure:"audio"`
	Meetings      MeetingsConfig      `mapstructure:"meetings"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	TTS           TTSConfig           `mapstructure:"tts"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
	MQTT MQTTConfig `mapstructure:"mqtt"`
}

// GRPCConfig configures the gRPC health transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP command API.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// MQTTConfig configures the MQTT event sink.
type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"` // events are published to <topic>/<event-name>
	ClientID string `mapstructure:"client_id"`
}

// StorageConfig locates the database and recordings and controls history retention.
type StorageConfig struct {
	DataDir      string `mapstructure:"data_dir"`
	Retention    string `mapstructure:"retention"` // never, preserve_limit, 3d, 2w, 3m
	HistoryLimit int    `mapstructure:"history_limit"`
}

// AudioConfig configures microphone capture.
type AudioConfig struct {
	SampleRate      int `mapstructure:"sample_rate"`
	FramesPerBuffer int `mapstructure:"frames_per_buffer"`
}

// MeetingsConfig configures the meeting chunk loop.
type MeetingsConfig struct {
	ChunkInterval time.Duration `mapstructure:"chunk_interval"`
	SpeakerLabel  string        `mapstructure:"speaker_label"`
}

// TranscriptionConfig selects and configures the transcription backend.
type TranscriptionConfig struct {
	Backend  string       `mapstructure:"backend"` // "openai" or "local"
	Language string       `mapstructure:"language"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Local    LocalConfig  `mapstructure:"local"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// LocalConfig holds self-hosted whisper settings.
type LocalConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Type     string `mapstructure:"type"` // "openai" (default) or "asr" (ahmetoner/whisper-asr-webservice)
	Model    string `mapstructure:"model"`
}

// TTSConfig configures the supervised speech-synthesis service and its client.
type TTSConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Interpreter    string        `mapstructure:"interpreter"`  // empty: tts_env lookup, then python3
	Script         string        `mapstructure:"script"`       // relative to ResourceDir
	ResourceDir    string        `mapstructure:"resource_dir"` // bundled resources root
	Port           int           `mapstructure:"port"`
	HealthInterval time.Duration `mapstructure:"health_interval"`
	Endpoint       string        `mapstructure:"endpoint"`
	Voice          string        `mapstructure:"voice"`
	Speed          float64       `mapstructure:"speed"`
	ModelID        string        `mapstructure:"model_id"`
	Voices         []string      `mapstructure:"voices"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./murmur.yaml, ./configs/murmur.yaml, /etc/murmur/murmur.yaml.
func Load(configFile string) (*Config, error) {
	v := newViper(configFile)

	// Read config file (optional; env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return decode(v)
}

func newViper(configFile string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("murmur")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/murmur")
	}

	// Environment variables: MURMUR_TTS_ENABLED, MURMUR_TRANSCRIPTION_BACKEND, etc.
	v.SetEnvPrefix("MURMUR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", true)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("transports.mqtt.enabled", false)
	v.SetDefault("transports.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("transports.mqtt.topic", "murmur/events")
	v.SetDefault("transports.mqtt.client_id", "murmur")
	v.SetDefault("storage.data_dir", defaultDataDir())
	v.SetDefault("storage.retention", "preserve_limit")
	v.SetDefault("storage.history_limit", 5)
	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.frames_per_buffer", 1024)
	v.SetDefault("meetings.chunk_interval", "5s")
	v.SetDefault("meetings.speaker_label", "Speaker 1")
	v.SetDefault("transcription.backend", "local")
	v.SetDefault("transcription.language", "")
	v.SetDefault("transcription.openai.model", "whisper-1")
	v.SetDefault("transcription.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("transcription.local.endpoint", "http://localhost:8000/v1/audio/transcriptions")
	v.SetDefault("transcription.local.type", "openai")
	v.SetDefault("tts.enabled", false)
	v.SetDefault("tts.interpreter", "")
	v.SetDefault("tts.script", "tts/server.py")
	v.SetDefault("tts.resource_dir", ".")
	v.SetDefault("tts.port", 5002)
	v.SetDefault("tts.health_interval", "10s")
	v.SetDefault("tts.endpoint", "http://127.0.0.1:5002")
	v.SetDefault("tts.voice", "p225")
	v.SetDefault("tts.speed", 1.0)
	v.SetDefault("tts.model_id", "")
	v.SetDefault("tts.voices", []string{"p225", "p226", "p227", "p228", "p229"})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${OPENAI_API_KEY}")
	cfg.Transcription.OpenAI.APIKey = resolveEnvRef(cfg.Transcription.OpenAI.APIKey)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Transcription.Backend {
	case "openai", "local":
	default:
		return fmt.Errorf("unknown transcription backend %q", c.Transcription.Backend)
	}
	switch c.Storage.Retention {
	case "never", "preserve_limit", "3d", "2w", "3m":
	default:
		return fmt.Errorf("unknown retention policy %q", c.Storage.Retention)
	}
	if c.Meetings.ChunkInterval <= 0 {
		return fmt.Errorf("meetings.chunk_interval must be positive")
	}
	if c.TTS.HealthInterval <= 0 {
		return fmt.Errorf("tts.health_interval must be positive")
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(dir, "murmur")
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
