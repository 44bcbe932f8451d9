// Package config loads the robox application configuration from a file,
// environment variables and defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/spf13/viper"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

const EnvPrefix = "ROBOX"

const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"

	BackendMiniaudio = "miniaudio"
	BackendPortaudio = "portaudio"
)

type Config struct {
	Speech    SpeechConfig    `mapstructure:"speech" json:"speech"`
	Listening ListeningConfig `mapstructure:"listening" json:"listening"`
	Reply     ReplyConfig     `mapstructure:"reply" json:"reply"`
	Audio     AudioConfig     `mapstructure:"audio" json:"audio"`
	Keys      KeysConfig      `mapstructure:"keys" json:"keys"`
	Log       LogConfig       `mapstructure:"log" json:"log"`
}

type SpeechConfig struct {
	Enabled   bool    `mapstructure:"enabled" json:"enabled" jsonschema:"description=Speak replies out loud"`
	AutoSpeak bool    `mapstructure:"auto_speak" json:"auto_speak" jsonschema:"description=Enqueue every completed reply for speech"`
	Rate      float64 `mapstructure:"rate" json:"rate" jsonschema:"minimum=0.5,maximum=2"`
	Pitch     float64 `mapstructure:"pitch" json:"pitch" jsonschema:"minimum=0.2,maximum=2"`
	VoiceID   string  `mapstructure:"voice_id" json:"voice_id,omitempty" jsonschema:"description=Deepgram voice model such as aura-2-thalia-en"`
}

type ListeningConfig struct {
	SilenceWindow time.Duration `mapstructure:"silence_window" json:"silence_window" jsonschema:"type=string,description=Quiet time after a final result before the utterance is committed such as 800ms"`
	MinFinalChars int           `mapstructure:"min_final_chars" json:"min_final_chars" jsonschema:"minimum=1"`
	Model         string        `mapstructure:"model" json:"model"`
	Language      string        `mapstructure:"language" json:"language"`
}

type ReplyConfig struct {
	Provider        string `mapstructure:"provider" json:"provider" jsonschema:"enum=openai,enum=groq"`
	Model           string `mapstructure:"model" json:"model,omitempty"`
	MaxMessages     int    `mapstructure:"max_messages" json:"max_messages" jsonschema:"minimum=1"`
	MaxOutputTokens int    `mapstructure:"max_output_tokens" json:"max_output_tokens,omitempty"`
	// Instructions replaces the built-in system prompt when set.
	Instructions string `mapstructure:"instructions" json:"instructions,omitempty"`
}

type AudioConfig struct {
	Backend string `mapstructure:"backend" json:"backend" jsonschema:"enum=miniaudio,enum=portaudio"`
	// BufferSize is the portaudio frames per buffer.
	BufferSize int `mapstructure:"buffer_size" json:"buffer_size" jsonschema:"minimum=1"`
}

type KeysConfig struct {
	Deepgram string `mapstructure:"deepgram" json:"deepgram,omitempty"`
	OpenAI   string `mapstructure:"openai" json:"openai,omitempty"`
	Groq     string `mapstructure:"groq" json:"groq,omitempty"`
}

type LogConfig struct {
	Level string `mapstructure:"level" json:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	File  string `mapstructure:"file" json:"file"`
}

func DefaultConfig() *Config {
	return &Config{
		Speech: SpeechConfig{
			Enabled:   true,
			AutoSpeak: true,
			Rate:      1,
			Pitch:     1,
		},
		Listening: ListeningConfig{
			SilenceWindow: 800 * time.Millisecond,
			MinFinalChars: 2,
			Model:         "nova-3",
			Language:      "en-US",
		},
		Reply: ReplyConfig{
			Provider:    ProviderOpenAI,
			MaxMessages: 50,
		},
		Audio: AudioConfig{
			Backend:    BackendMiniaudio,
			BufferSize: 1024,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(os.TempDir(), "robox.log"),
		},
	}
}

// Load reads the configuration. An empty path searches ./robox.yaml and
// $HOME/.config/robox/config.yaml; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("keys.deepgram", EnvPrefix+"_KEYS_DEEPGRAM", "DEEPGRAM_API_KEY")
	v.BindEnv("keys.openai", EnvPrefix+"_KEYS_OPENAI", "OPENAI_API_KEY")
	v.BindEnv("keys.groq", EnvPrefix+"_KEYS_GROQ", "GROQ_API_KEY")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("robox")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/robox")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Speech.Rate < 0.5 || c.Speech.Rate > 2 {
		errs = append(errs, fmt.Errorf("speech.rate %v must be between 0.5 and 2", c.Speech.Rate))
	}
	if c.Speech.Pitch < 0.2 || c.Speech.Pitch > 2 {
		errs = append(errs, fmt.Errorf("speech.pitch %v must be between 0.2 and 2", c.Speech.Pitch))
	}
	if c.Listening.SilenceWindow <= 0 {
		errs = append(errs, fmt.Errorf("listening.silence_window must be positive, got %s", c.Listening.SilenceWindow))
	}
	if c.Listening.MinFinalChars < 1 {
		errs = append(errs, fmt.Errorf("listening.min_final_chars must be at least 1, got %d", c.Listening.MinFinalChars))
	}
	switch c.Reply.Provider {
	case ProviderOpenAI, ProviderGroq:
	default:
		errs = append(errs, fmt.Errorf("reply.provider %q must be %s or %s", c.Reply.Provider, ProviderOpenAI, ProviderGroq))
	}
	switch c.Audio.Backend {
	case BackendMiniaudio, BackendPortaudio:
	default:
		errs = append(errs, fmt.Errorf("audio.backend %q must be %s or %s", c.Audio.Backend, BackendMiniaudio, BackendPortaudio))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	c.Keys.Deepgram = redact(c.Keys.Deepgram)
	c.Keys.OpenAI = redact(c.Keys.OpenAI)
	c.Keys.Groq = redact(c.Keys.Groq)
	return c
}

// Schema returns the JSON Schema of the configuration file.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(&Config{})
	schema.Title = "robox configuration"
	return json.MarshalIndent(schema, "", "  ")
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("speech.enabled", defaults.Speech.Enabled)
	v.SetDefault("speech.auto_speak", defaults.Speech.AutoSpeak)
	v.SetDefault("speech.rate", defaults.Speech.Rate)
	v.SetDefault("speech.pitch", defaults.Speech.Pitch)
	v.SetDefault("speech.voice_id", defaults.Speech.VoiceID)
	v.SetDefault("listening.silence_window", defaults.Listening.SilenceWindow)
	v.SetDefault("listening.min_final_chars", defaults.Listening.MinFinalChars)
	v.SetDefault("listening.model", defaults.Listening.Model)
	v.SetDefault("listening.language", defaults.Listening.Language)
	v.SetDefault("reply.provider", defaults.Reply.Provider)
	v.SetDefault("reply.model", defaults.Reply.Model)
	v.SetDefault("reply.max_messages", defaults.Reply.MaxMessages)
	v.SetDefault("reply.max_output_tokens", defaults.Reply.MaxOutputTokens)
	v.SetDefault("reply.instructions", defaults.Reply.Instructions)
	v.SetDefault("audio.backend", defaults.Audio.Backend)
	v.SetDefault("audio.buffer_size", defaults.Audio.BufferSize)
	v.SetDefault("keys.deepgram", "")
	v.SetDefault("keys.openai", "")
	v.SetDefault("keys.groq", "")
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.file", defaults.Log.File)
}
