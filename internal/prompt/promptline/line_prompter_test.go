package promptline_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/frantjc/port-registry/internal/prompt/promptline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompterReadsLines(t *testing.T) {
	var (
		out = new(strings.Builder)
		p   = promptline.NewPrompter(strings.NewReader(" 10.0.0.5 \n8080\r\nweb"), out)
		ctx = context.Background()
	)

	for _, want := range []string{"10.0.0.5", "8080", "web"} {
		got, err := p.Prompt(ctx, "> ")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	assert.Equal(t, "> > > ", out.String())
}

func TestPrompterEmptyLine(t *testing.T) {
	got, err := promptline.NewPrompter(strings.NewReader("\n"), io.Discard).Prompt(context.Background(), "Description: ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPrompterEOF(t *testing.T) {
	_, err := promptline.NewPrompter(strings.NewReader(""), io.Discard).Prompt(context.Background(), "Internal IP: ")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestPrompterCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := promptline.NewPrompter(strings.NewReader("1\n"), io.Discard).Prompt(ctx, "Internal IP: ")
	assert.ErrorIs(t, err, context.Canceled)
}
