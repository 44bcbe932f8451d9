package llms

// Role describes who a message in the history is from.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry of the conversation history sent to the model.
type Message struct {
	Role    Role
	Content string
}
