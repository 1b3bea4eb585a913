package commandstructure

// Command is one step of the photo processing pipeline.
type Command interface {
	Name() string
	Execute(imageData []byte) ([]byte, error)
}

// CommandFactory creates a command from configuration parameters
type CommandFactory func(params map[string]any) (Command, error)

// CommandConfig names a registered command and its parameters
type CommandConfig struct {
	Name   string
	Params map[string]any
}
