package fallback

// Reason describes why the AI answer could not be used
type Reason string

const (
	ReasonError       Reason = "error"
	ReasonTimeout     Reason = "timeout"
	ReasonCircuitOpen Reason = "circuit_open"
	ReasonEmpty       Reason = "empty"
)

// Texts shown to users when the AI provider cannot produce an answer
const (
	Summary = "I could not create a summary."
	Reply   = "I could not respond."

	NotConfigured    = "Chat service is not configured. Please set an AI provider API key."
	NoMessages       = "Please send a message."
	NoUserMessage    = "I didn't receive a user message."
	WalletLinkFailed = "Failed to link wallet. Please try again later."
)

// Response is a fallback text plus the reason it was chosen
type Response struct {
	Content string
	Reason  Reason
}

// SummaryResponse returns the summary fallback for a failure reason
func SummaryResponse(reason Reason) Response {
	return Response{Content: Summary, Reason: reason}
}

// ReplyResponse returns the free-text reply fallback for a failure reason
func ReplyResponse(reason Reason) Response {
	return Response{Content: Reply, Reason: reason}
}
