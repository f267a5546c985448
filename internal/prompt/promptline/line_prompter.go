package promptline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/frantjc/port-registry/internal/prompt"
)

// Prompter implements prompt.Prompter by writing the title to Out
// and reading one line from In.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

var _ prompt.Prompter = &Prompter{}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{bufio.NewReader(in), out}
}

// Prompt implements prompt.Prompter. The returned line has surrounding
// whitespace trimmed. Reaching the end of input before anything was
// typed is an error.
func (p *Prompter) Prompt(ctx context.Context, title string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if _, err := io.WriteString(p.out, title); err != nil {
		return "", fmt.Errorf("prompt input: %w", err)
	}

	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}

		return "", fmt.Errorf("prompt input: %w", err)
	}

	return strings.TrimSpace(line), nil
}
