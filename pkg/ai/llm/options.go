package llm

// ChatOptions contains options for generating chat completions
type ChatOptions struct {
	Model       string   // Model name/identifier
	Temperature *float32 // nil leaves the provider default
	MaxTokens   int      // Maximum number of tokens to generate, 0 for no limit
	Stop        []string // Stop sequences
	Tools       []Tool   // Available tools
	ToolChoice  string   // "auto", "none" or "required"
	User        string   // Identifier representing end-user
}

// Option is a function type to modify ChatOptions
type Option func(*ChatOptions)

func WithModel(model string) Option {
	return func(o *ChatOptions) {
		o.Model = model
	}
}

// WithTemperature sets the sampling temperature; 0 is honoured
func WithTemperature(temp float32) Option {
	return func(o *ChatOptions) {
		o.Temperature = &temp
	}
}

func WithMaxTokens(tokens int) Option {
	return func(o *ChatOptions) {
		o.MaxTokens = tokens
	}
}

func WithStop(stop []string) Option {
	return func(o *ChatOptions) {
		o.Stop = stop
	}
}

func WithTools(tools []Tool) Option {
	return func(o *ChatOptions) {
		o.Tools = tools
	}
}

// WithToolChoice forces "auto", "none" or "required"
func WithToolChoice(choice string) Option {
	return func(o *ChatOptions) {
		o.ToolChoice = choice
	}
}

func WithUser(user string) Option {
	return func(o *ChatOptions) {
		o.User = user
	}
}

// DefaultOptions returns the default options
func DefaultOptions() *ChatOptions {
	return &ChatOptions{}
}

// Apply folds opts over the defaults
func Apply(opts ...Option) *ChatOptions {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}
