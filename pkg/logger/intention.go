package logger

// Intention represents the semantic intent of a log line, orthogonal to level.
// It lets us keep emojis out of source while still emitting meaningful icons
// at the console and structured attributes in logs.
type Intention string

const (
	IntentionStatus  Intention = "status"
	IntentionResolve Intention = "resolve"
	IntentionNetwork Intention = "network"
	IntentionInject  Intention = "inject"
	IntentionSuccess Intention = "success"
	IntentionConfig  Intention = "config"
	IntentionDebug   Intention = "debug"
)

// iconFor returns a short emoji string for console output for the intention.
func iconFor(i Intention) string {
	switch i {
	case IntentionStatus:
		return "ℹ️"
	case IntentionResolve:
		return "🔍"
	case IntentionNetwork:
		return "🌐"
	case IntentionInject:
		return "✏️"
	case IntentionSuccess:
		return "✅"
	case IntentionConfig:
		return "⚙️"
	case IntentionDebug:
		return "🛠️"
	default:
		return "➤"
	}
}
