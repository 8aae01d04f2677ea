package logger

// Intention represents the semantic intent of a log line, orthogonal to level.
// The console handler turns it into an icon; file logs keep it as an attribute.
type Intention string

const (
	IntentionRelay       Intention = "relay"
	IntentionTranslate   Intention = "translate"
	IntentionPassthrough Intention = "passthrough"
	IntentionReaction    Intention = "reaction"
	IntentionLink        Intention = "link"
	IntentionDrop        Intention = "drop"
	IntentionStatistics  Intention = "statistics"
	IntentionStatus      Intention = "status"
	IntentionSuccess     Intention = "success"
	IntentionConfig      Intention = "config"
	IntentionDebug       Intention = "debug"
)

// iconFor returns a short emoji string for console output for the intention.
func iconFor(i Intention) string {
	switch i {
	case IntentionRelay:
		return "📨"
	case IntentionTranslate:
		return "🌐"
	case IntentionPassthrough:
		return "⏩"
	case IntentionReaction:
		return "👍"
	case IntentionLink:
		return "🔗"
	case IntentionDrop:
		return "🚫"
	case IntentionStatistics:
		return "📊"
	case IntentionStatus:
		return "ℹ️"
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
