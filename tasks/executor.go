package tasks

import (
	"context"

	"github.com/vinayprograms/browserkit/display"
	"github.com/vinayprograms/browserkit/llm"
)

// DisplayProvider readies the virtual display before a headful run.
// display.Supervisor satisfies this.
type DisplayProvider interface {
	Start(ctx context.Context) error
	Status(ctx context.Context) display.Status
}

// Environment is what a task execution gets to work with.
type Environment struct {
	// Display describes the virtual display chain, zero-valued when
	// the backend runs headless.
	Display display.Status

	// Provider is the chat backend driving the agent, nil when the
	// executor does not need one.
	Provider llm.Provider

	// MaxSteps bounds the agent's browser actions.
	MaxSteps int

	// OutputSchema names the structured-output schema the caller
	// requested, empty for free-form results.
	OutputSchema string
}

// Executor performs the actual browser automation for one task.
type Executor interface {
	Execute(ctx context.Context, env Environment, task Task) (*Result, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, env Environment, task Task) (*Result, error)

func (f ExecutorFunc) Execute(ctx context.Context, env Environment, task Task) (*Result, error) {
	return f(ctx, env, task)
}
