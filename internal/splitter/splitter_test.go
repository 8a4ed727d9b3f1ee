package splitter

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfworks/model-dispatch/internal/contracts"
)

// recordingCaller echoes each chunk's text back as its "playbook" and its
// line count as "total_tokens", so tests can assert chunk boundaries and
// ordering without a real backend.
type recordingCaller struct {
	calls int
}

func (r *recordingCaller) Call(ctx context.Context, endpoint, model string, body map[string]interface{}) contracts.BackendResult {
	r.calls++
	commands, _ := body["commands"].(string)
	return contracts.BackendResult{
		Status: 200,
		Body: map[string]interface{}{
			"playbook":     commands,
			"elapsed":      1.5,
			"total_tokens": len(strings.Split(commands, "\n")),
		},
	}
}

func TestSplitAndProcessSmallInputSkipsSplitting(t *testing.T) {
	caller := &recordingCaller{}
	s := New(caller)

	result := s.SplitAndProcess(context.Background(), "13b", "line1\nline2")
	assert.Equal(t, 1, caller.calls)
	assert.Equal(t, "line1\nline2", result.Playbook())
}

func TestSplitAndProcessPreservesChunkOrder(t *testing.T) {
	caller := &recordingCaller{}
	s := New(caller)

	lines := make([]string, 25)
	for i := range lines {
		lines[i] = string(rune('a' + i))
	}
	text := strings.Join(lines, "\n")

	result := s.SplitAndProcess(context.Background(), "13b", text)
	assert.Equal(t, 3, caller.calls, "25 lines at chunk size 10 should split into 3 chunks")

	rebuilt := strings.ReplaceAll(result.Playbook(), separator, "\n")
	assert.Equal(t, text, rebuilt, "merged output must preserve original line order")
	assert.Equal(t, 3, result.Body["chunks_processed"])
}

func TestSplitAndProcessAggregatesMaxElapsedAndTotalTokens(t *testing.T) {
	caller := &recordingCaller{}
	s := New(caller)

	lines := make([]string, 15)
	for i := range lines {
		lines[i] = "x"
	}
	result := s.SplitAndProcess(context.Background(), "13b", strings.Join(lines, "\n"))

	require.Equal(t, 1.5, result.Elapsed())
	assert.Equal(t, 15, result.TotalTokens())
}
