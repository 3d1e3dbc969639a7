package completion

// DefaultTemperature is used when a caller does not pick one.
const DefaultTemperature float32 = 0.7

// Tool describes a function the model may call.
type Tool struct {
	Name        string
	Description string
	// Parameters is a JSON schema object.
	Parameters map[string]any
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	Name      string
	Arguments string
}

// Request is a single chat completion call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	// Temperature nil leaves the backend default.
	Temperature *float32
	JSONMode    bool
	Tools       []Tool
}

// Response carries the assistant message.
type Response struct {
	Content   string
	ToolCalls []ToolCall
	Model     string
}

// Temperature returns a pointer usable in Request.
func Temperature(t float32) *float32 { return &t }
