package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/koscakluka/ema-voice/cmd/robox/display"
	orchestration "github.com/koscakluka/ema-voice/core"
	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/audio/miniaudio"
	"github.com/koscakluka/ema-voice/core/audio/portaudio"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/llms/groq"
	"github.com/koscakluka/ema-voice/core/llms/openai"
	"github.com/koscakluka/ema-voice/core/reply"
	"github.com/koscakluka/ema-voice/core/speechinput"
	recognition "github.com/koscakluka/ema-voice/core/speechinput/deepgram"
	"github.com/koscakluka/ema-voice/core/speechoutput"
	synthesis "github.com/koscakluka/ema-voice/core/speechoutput/deepgram"
	"github.com/koscakluka/ema-voice/core/status"
	"github.com/koscakluka/ema-voice/internal/config"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the kiosk",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		closeLog, err := setupLogging(cfg.Log)
		if err != nil {
			return err
		}
		defer closeLog()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, cfg)
	},
}

func run(ctx context.Context, cfg *config.Config) error {
	devices, err := openAudio(cfg.Audio)
	if err != nil {
		slog.Warn("audio devices unavailable, continuing text only", "error", err)
	} else {
		defer func() {
			if err := devices.Close(); err != nil {
				slog.Warn("failed to close audio devices", "error", err)
			}
		}()
	}

	conversation := reply.NewConversation(newStreamer(cfg), conversationOptions(cfg.Reply)...)
	defer conversation.Close()

	var outputEngine speechoutput.Engine
	var inputEngine speechinput.Engine
	if devices != nil {
		outputEngine = synthesis.NewEngine(devices, synthesis.WithAPIKey(cfg.Keys.Deepgram))
		inputEngine = recognition.NewEngine(devices,
			recognition.WithAPIKey(cfg.Keys.Deepgram),
			recognition.WithModel(cfg.Listening.Model),
			recognition.WithLanguage(cfg.Listening.Language),
		)
	}

	o := orchestration.NewOrchestrator(
		orchestration.WithSettings(orchestration.Settings{
			Voice: speechoutput.Voice{
				Rate:    cfg.Speech.Rate,
				Pitch:   cfg.Speech.Pitch,
				VoiceID: cfg.Speech.VoiceID,
			},
			AutoSpeak:     cfg.Speech.AutoSpeak,
			SilenceWindow: cfg.Listening.SilenceWindow,
			MinFinalChars: cfg.Listening.MinFinalChars,
		}),
		orchestration.WithSpeechOutputEngine(outputEngine),
		orchestration.WithSpeechInputEngine(inputEngine),
		orchestration.WithReplyChannel(conversation),
	)
	defer o.Close()

	outputEnabled := cfg.Speech.Enabled && outputEngine != nil
	ui := display.New(o, outputEnabled)

	unsubscribe := conversation.Subscribe(func(snapshot reply.Snapshot) {
		ui.Post(display.SnapshotMsg{Snapshot: snapshot})
	})
	defer unsubscribe()

	o.Orchestrate(ctx,
		orchestration.WithStatusChangedCallback(func(_, to status.ConversationStatus) {
			ui.Post(display.StatusMsg{Status: to})
		}),
		orchestration.WithInterimTranscriptCallback(func(transcript string) {
			ui.Post(display.InterimMsg{Text: transcript})
		}),
		orchestration.WithUtteranceCallback(func(update orchestration.UtteranceUpdate) {
			if update.Phase == orchestration.UtterancePhaseStart {
				ui.Post(display.SpeakingMsg{MessageID: update.UtteranceID})
				return
			}
			ui.Post(display.SpeakingMsg{})
		}),
		orchestration.WithNoticeCallback(func(notice events.Notice) {
			ui.Post(display.NoticeMsg{Text: notice.Message})
		}),
	)
	if !cfg.Speech.Enabled {
		o.SetOutputEnabled(false)
	}

	return ui.Run(ctx)
}

// audioDevices is one client serving both capture and playback.
type audioDevices interface {
	audio.Input
	audio.Output
	Close() error
}

func openAudio(cfg config.AudioConfig) (audioDevices, error) {
	switch cfg.Backend {
	case config.BackendPortaudio:
		client, err := portaudio.NewClient(cfg.BufferSize)
		if err != nil {
			return nil, fmt.Errorf("failed to open portaudio: %w", err)
		}
		return client, nil
	case config.BackendMiniaudio:
		client, err := miniaudio.NewClient()
		if err != nil {
			return nil, fmt.Errorf("failed to open miniaudio: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.Backend)
	}
}

func newStreamer(cfg *config.Config) reply.Streamer {
	switch cfg.Reply.Provider {
	case config.ProviderGroq:
		opts := []groq.ClientOption{}
		if cfg.Reply.Model != "" {
			opts = append(opts, groq.WithModel(cfg.Reply.Model))
		}
		return groq.NewClient(cfg.Keys.Groq, opts...)
	default:
		opts := []openai.ClientOption{}
		if cfg.Reply.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Reply.Model))
		}
		return openai.NewClient(cfg.Keys.OpenAI, opts...)
	}
}

func conversationOptions(cfg config.ReplyConfig) []reply.ConversationOption {
	opts := []reply.ConversationOption{reply.WithMaxMessages(cfg.MaxMessages)}
	if cfg.Instructions != "" {
		opts = append(opts, reply.WithInstructions(cfg.Instructions))
	}
	if cfg.MaxOutputTokens > 0 {
		opts = append(opts, reply.WithMaxOutputTokens(cfg.MaxOutputTokens))
	}
	return opts
}

func setupLogging(cfg config.LogConfig) (func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(file, &slog.HandlerOptions{Level: level})))

	return func() {
		if err := file.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "failed to close log file:", err)
		}
	}, nil
}
