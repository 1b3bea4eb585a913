package commandstructure

import (
	"fmt"
	"log/slog"
	"time"
)

// CommandInvoker runs a fixed sequence of commands over image data
type CommandInvoker struct {
	commands []Command
}

func NewCommandInvoker(commands []Command) *CommandInvoker {
	return &CommandInvoker{
		commands: commands,
	}
}

// NewCommandInvokerFromConfig builds the commands from the default registry.
func NewCommandInvokerFromConfig(configs []CommandConfig) (*CommandInvoker, error) {
	commands, err := DefaultRegistry.BuildCommands(configs)
	if err != nil {
		return nil, err
	}
	return NewCommandInvoker(commands), nil
}

// Names lists the pipeline steps in execution order
func (i *CommandInvoker) Names() []string {
	names := make([]string, 0, len(i.commands))
	for _, command := range i.commands {
		names = append(names, command.Name())
	}
	return names
}

// Execute applies all commands in sequence to the image data
func (i *CommandInvoker) Execute(imageData []byte) ([]byte, error) {
	start := time.Now()

	if len(i.commands) == 0 {
		slog.Debug("no commands to execute, returning original image")
		return imageData, nil
	}

	currentData := imageData
	for idx, command := range i.commands {
		commandStart := time.Now()

		processedData, err := command.Execute(currentData)
		if err != nil {
			slog.Error("command execution failed",
				"index", idx,
				"command_name", command.Name(),
				"error", err,
				"input_size_bytes", len(currentData))
			return nil, fmt.Errorf("command %s (index %d) failed: %w", command.Name(), idx, err)
		}

		slog.Debug("command completed",
			"index", idx,
			"command_name", command.Name(),
			"duration_ms", time.Since(commandStart).Milliseconds(),
			"input_size_bytes", len(currentData),
			"output_size_bytes", len(processedData))

		currentData = processedData
	}

	slog.Info("photo pipeline completed",
		"total_duration_ms", time.Since(start).Milliseconds(),
		"command_count", len(i.commands),
		"input_size_bytes", len(imageData),
		"final_size_bytes", len(currentData))

	return currentData, nil
}

// ExecuteCommands builds and runs the configured commands in one go
func ExecuteCommands(imageData []byte, commandConfigs []CommandConfig) ([]byte, error) {
	invoker, err := NewCommandInvokerFromConfig(commandConfigs)
	if err != nil {
		return nil, err
	}
	return invoker.Execute(imageData)
}
