package constant

// Workflow types. Exactly one analysis session may be active at a time,
// regardless of which workflow produced it.
const (
	WorkflowSec    = "sec"
	WorkflowUpload = "upload"
)

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
)
