package prompt

import "context"

// Prompter asks the user for one line of free-form input.
type Prompter interface {
	Prompt(ctx context.Context, title string) (string, error)
}

// PrompterFunc is an adapter to allow the use of
// ordinary functions as Prompters.
type PrompterFunc func(context.Context, string) (string, error)

// Prompt implements Prompter.
func (f PrompterFunc) Prompt(ctx context.Context, title string) (string, error) {
	return f(ctx, title)
}
