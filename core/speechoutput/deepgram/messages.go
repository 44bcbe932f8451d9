package deepgram

type websocketMessage struct {
	Type string `json:"type"`
}

type speakMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	clearMsg = websocketMessage{Type: "Clear"}
	closeMsg = websocketMessage{Type: "Close"}
)

func sendTextMsg(text string) speakMessage {
	return speakMessage{Type: "Speak", Text: text}
}

type incomingMessage struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	WarnMsg     string `json:"warn_msg,omitempty"`
}

const (
	incomingFlushed  = "Flushed"
	incomingCleared  = "Cleared"
	incomingMetadata = "Metadata"
	incomingWarning  = "Warning"
)
