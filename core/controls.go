package orchestration

import (
	"errors"

	"github.com/koscakluka/ema-voice/core/speechinput"
	"github.com/koscakluka/ema-voice/core/speechoutput"
)

// ToggleListening starts a listening session, cutting off any speech output,
// or stops the running one and discards what was heard.
func (o *Orchestrator) ToggleListening() {
	o.do("toggle listening", func() {
		if o.session.Active() {
			if err := o.session.Stop(); err != nil {
				logger.Warn("failed to stop listening", "error", err)
			}
			return
		}

		if err := o.session.Start(o.baseContext); err != nil {
			switch {
			case errors.Is(err, speechinput.ErrUnavailable), errors.Is(err, speechinput.ErrClosed):
				logger.Debug("listening not started", "error", err)
			default:
				logger.Warn("failed to start listening", "error", err)
			}
		}
	})
}

// Speak queues text as a user request. A user request lifts a block left by
// a permission failure.
func (o *Orchestrator) Speak(text, id string) {
	o.do("speak", func() {
		o.queue.Enqueue(text, speechoutput.WithUtteranceID(id), speechoutput.UserInitiated())
	})
}

func (o *Orchestrator) StopSpeaking() {
	o.do("stop speaking", func() { o.queue.CancelAll() })
}

func (o *Orchestrator) SetOutputEnabled(enabled bool) {
	o.do("set output enabled", func() {
		if enabled && o.speechOutputEngine == nil {
			return
		}
		o.queue.SetEnabled(enabled)
	})
}

// SendText submits typed text as a new user turn. A running listening session
// is stopped first so it cannot commit a second turn.
func (o *Orchestrator) SendText(text string) {
	o.do("send text", func() {
		if err := o.session.Stop(); err != nil {
			logger.Debug("failed to stop listening before sending text", "error", err)
		}
		o.submit(text)
	})
}

// SetVoice changes the synthesis parameters for utterances started from now.
func (o *Orchestrator) SetVoice(voice speechoutput.Voice) {
	o.do("set voice", func() {
		o.settings.Voice = voice.Clamped()
		o.queue.SetVoice(voice)
	})
}

func (o *Orchestrator) SetAutoSpeak(autoSpeak bool) {
	o.do("set auto speak", func() { o.settings.AutoSpeak = autoSpeak })
}
