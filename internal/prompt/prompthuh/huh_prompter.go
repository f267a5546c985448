package prompthuh

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/frantjc/port-registry/internal/prompt"
)

var runInputPrompt = func(title string, input *string) error {
	return huh.NewInput().
		Title(title).
		Value(input).
		Run()
}

// Prompter implements prompt.Prompter with an interactive huh input field.
type Prompter struct{}

var _ prompt.Prompter = Prompter{}

// Prompt implements prompt.Prompter.
func (Prompter) Prompt(ctx context.Context, title string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var input string
	if err := runInputPrompt(strings.TrimSpace(title), &input); err != nil {
		return "", fmt.Errorf("prompt input: %w", err)
	}

	return strings.TrimSpace(input), nil
}
