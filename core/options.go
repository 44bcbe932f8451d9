package orchestration

import (
	"time"

	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/reply"
	"github.com/koscakluka/ema-voice/core/speechinput"
	"github.com/koscakluka/ema-voice/core/speechoutput"
	"github.com/koscakluka/ema-voice/core/status"
	"github.com/koscakluka/ema-voice/core/timers"
)

// Settings are the user adjustable parameters of the orchestrator.
type Settings struct {
	Voice speechoutput.Voice
	// AutoSpeak enqueues every completed reply for speech output.
	AutoSpeak bool
	// SilenceWindow is how long recognition has to stay quiet after a final
	// result before the utterance is committed.
	SilenceWindow time.Duration
	// MinFinalChars filters out spurious recognition results.
	MinFinalChars int
}

func DefaultSettings() Settings {
	return Settings{
		Voice:         speechoutput.DefaultVoice(),
		AutoSpeak:     true,
		SilenceWindow: speechinput.DefaultSilenceWindow,
		MinFinalChars: speechinput.DefaultMinFinalChars,
	}
}

func (s Settings) normalized() Settings {
	s.Voice = s.Voice.Clamped()
	if s.SilenceWindow <= 0 {
		s.SilenceWindow = speechinput.DefaultSilenceWindow
	}
	if s.MinFinalChars < 1 {
		s.MinFinalChars = speechinput.DefaultMinFinalChars
	}
	return s
}

type OrchestratorOption func(*Orchestrator)

func WithSettings(settings Settings) OrchestratorOption {
	return func(o *Orchestrator) {
		o.settings = settings.normalized()
	}
}

// WithSpeechOutputEngine leases engine to the orchestrator. Without one,
// speech output is disabled and a notice is shown once.
func WithSpeechOutputEngine(engine speechoutput.Engine) OrchestratorOption {
	return func(o *Orchestrator) {
		o.speechOutputEngine = engine
	}
}

// WithSpeechInputEngine leases engine to the orchestrator. Without one,
// listening reports a notice once and stays off.
func WithSpeechInputEngine(engine speechinput.Engine) OrchestratorOption {
	return func(o *Orchestrator) {
		o.speechInputEngine = engine
	}
}

func WithReplyChannel(channel reply.Channel) OrchestratorOption {
	return func(o *Orchestrator) {
		o.replyChannel = channel
	}
}

// WithScheduler replaces the timers behind the silence window and the retry
// backoff. Callbacks of a custom scheduler are expected to run on the loop.
func WithScheduler(scheduler timers.Scheduler) OrchestratorOption {
	return func(o *Orchestrator) {
		o.scheduler = scheduler
	}
}

func WithRetryBackoff(backoff time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.queueOptions = append(o.queueOptions, speechoutput.WithRetryBackoff(backoff))
	}
}

func WithMaxInterruptedRetries(retries int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.queueOptions = append(o.queueOptions, speechoutput.WithMaxInterruptedRetries(retries))
	}
}

type UtterancePhase string

const (
	UtterancePhaseStart UtterancePhase = "start"
	UtterancePhaseEnd   UtterancePhase = "end"
	UtterancePhaseError UtterancePhase = "error"
)

// UtteranceUpdate lets the UI highlight the message being spoken.
type UtteranceUpdate struct {
	UtteranceID string
	Phase       UtterancePhase
}

// OrchestrateOptions holds the callbacks. All of them run on the event loop
// and must not block or call [Orchestrator.Close].
type OrchestrateOptions struct {
	onStatusChanged     func(from, to status.ConversationStatus)
	onInterimTranscript func(transcript string)
	onTranscription     func(transcript string)
	onUtterance         func(update UtteranceUpdate)
	onNotice            func(notice events.Notice)
	onEvent             func(event events.Event)
}

type OrchestrateOption func(*OrchestrateOptions)

func WithStatusChangedCallback(callback func(from, to status.ConversationStatus)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onStatusChanged = callback
	}
}

// WithInterimTranscriptCallback registers a callback for the live transcript.
// It is called with an empty string once listening stops.
func WithInterimTranscriptCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onInterimTranscript = callback
	}
}

// WithTranscriptionCallback registers a callback for committed utterances.
// Text sent through [Orchestrator.SendText] does not trigger it.
func WithTranscriptionCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onTranscription = callback
	}
}

func WithUtteranceCallback(callback func(update UtteranceUpdate)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onUtterance = callback
	}
}

func WithNoticeCallback(callback func(notice events.Notice)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onNotice = callback
	}
}

// WithEventCallback receives every event, including the ones that also have a
// dedicated callback.
func WithEventCallback(callback func(event events.Event)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onEvent = callback
	}
}
