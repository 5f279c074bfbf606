package chat

// TimestampLayout is the wire format for exchange timestamps. Second
// precision, matching the shape stored in Supabase.
const TimestampLayout = "2006-01-02 15:04:05"

// Exchange records one user-message/bot-response pair. Immutable once
// created; the timestamp is fixed at construction.
type Exchange struct {
	Timestamp   string `json:"timestamp"`
	UserMessage string `json:"user_message"`
	BotResponse string `json:"bot_response"`
}
