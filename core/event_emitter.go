package orchestration

import "github.com/koscakluka/ema-voice/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts OrchestrateOptions) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.UtteranceStarted:
			if opts.onUtterance != nil {
				opts.onUtterance(UtteranceUpdate{UtteranceID: typedEvent.UtteranceID, Phase: UtterancePhaseStart})
			}
		case events.UtteranceEnded:
			if opts.onUtterance != nil {
				opts.onUtterance(UtteranceUpdate{UtteranceID: typedEvent.UtteranceID, Phase: UtterancePhaseEnd})
			}
		case events.UtteranceFailed:
			if opts.onUtterance != nil {
				opts.onUtterance(UtteranceUpdate{UtteranceID: typedEvent.UtteranceID, Phase: UtterancePhaseError})
			}
		case events.UtteranceFinalized:
			if opts.onTranscription != nil {
				opts.onTranscription(typedEvent.Transcript)
			}
		case events.Notice:
			if opts.onNotice != nil {
				opts.onNotice(typedEvent)
			}
		}

		if opts.onEvent != nil {
			opts.onEvent(event)
		}
	}
}
