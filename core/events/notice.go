package events

const KindNotice Kind = "notice.shown"

type NoticeCode string

const (
	NoticeSpeechOutputPermissionDenied NoticeCode = "speech_output.permission_denied"
	NoticeSpeechOutputUnavailable      NoticeCode = "speech_output.unavailable"
	NoticeSpeechInputUnavailable       NoticeCode = "speech_input.unavailable"
	NoticeSpeechInputPermissionDenied  NoticeCode = "speech_input.permission_denied"
)

// Notice is a one-shot message meant to be shown to the user.
type Notice struct {
	Base
	Code    NoticeCode
	Message string
}

func NewNotice(code NoticeCode, message string) Notice {
	return Notice{Base: NewBase(KindNotice), Code: code, Message: message}
}
