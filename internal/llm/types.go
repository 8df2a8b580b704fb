package llm

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Response is the response from an LLM provider.
type Response struct {
	Content    string `json:"content"`
	Usage      Usage  `json:"usage"`
	StopReason string `json:"stop_reason"`
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ChatRequest is the input for a chat completion.
type ChatRequest struct {
	Model        string    `json:"model"`
	Messages     []Message `json:"messages"`
	MaxTokens    int       `json:"max_tokens"`
	Temperature  float64   `json:"temperature"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
}

// ErrorType classifies LLM errors for fallback decisions.
type ErrorType int

const (
	ErrorUnknown      ErrorType = iota
	ErrorRateLimit              // 429
	ErrorAuth                   // 401/403
	ErrorInvalidInput           // 400
	ErrorServerError            // 500+
	ErrorTimeout                // context deadline exceeded
	ErrorNetwork                // connection refused, DNS, etc.
	ErrorUnavailable            // circuit open
)

func (t ErrorType) String() string {
	switch t {
	case ErrorRateLimit:
		return "rate_limit"
	case ErrorAuth:
		return "auth"
	case ErrorInvalidInput:
		return "invalid_input"
	case ErrorServerError:
		return "server_error"
	case ErrorTimeout:
		return "timeout"
	case ErrorNetwork:
		return "network"
	case ErrorUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}
