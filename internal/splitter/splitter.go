// Package splitter implements the Splitter (C6): chunking long command
// input, fanning chunks out to the Proxy in parallel, and merging the
// results back into one response in the original chunk order.
package splitter

import (
	"context"
	"math"
	"net/http"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pfworks/model-dispatch/internal/contracts"
	"github.com/pfworks/model-dispatch/internal/metrics"
)

// defaultChunkSize is the specification's default chunk-size.
const defaultChunkSize = 10

const separator = "\n---\n"

var tracer = otel.Tracer("github.com/pfworks/model-dispatch/splitter")

// Caller is the subset of internal/proxy.Proxy the Splitter needs.
type Caller interface {
	Call(ctx context.Context, endpoint, model string, body map[string]interface{}) contracts.BackendResult
}

// Splitter chunks long input and dispatches each chunk through a Caller.
type Splitter struct {
	caller    Caller
	chunkSize int
}

// New builds a Splitter with the specification's default chunk size.
func New(caller Caller) *Splitter {
	return &Splitter{caller: caller, chunkSize: defaultChunkSize}
}

// indexedResult pairs a chunk's position with its proxied result, so
// the merge step can sort by index regardless of completion order.
type indexedResult struct {
	index  int
	result contracts.BackendResult
}

// SplitAndProcess implements §4.6: it trims text, splits on line
// terminators, and either proxies it directly (when it fits in one
// chunk) or partitions it into ordered chunks of at most chunkSize
// lines, dispatches each concurrently, and merges the results in
// original chunk order.
func (s *Splitter) SplitAndProcess(ctx context.Context, model, text string) contracts.BackendResult {
	ctx, span := tracer.Start(ctx, "splitter.SplitAndProcess")
	defer span.End()

	trimmed := strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	lines := strings.Split(trimmed, "\n")

	if len(lines) <= s.chunkSize {
		span.SetAttributes(attribute.Int("dispatch.chunks", 1))
		return s.caller.Call(ctx, "/generate", model, map[string]interface{}{
			"commands": trimmed,
			"model":    model,
		})
	}

	chunks := partition(lines, s.chunkSize)
	span.SetAttributes(attribute.Int("dispatch.chunks", len(chunks)))

	results := make([]indexedResult, len(chunks))
	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk string) {
			defer wg.Done()
			r := s.caller.Call(ctx, "/generate", model, map[string]interface{}{
				"commands": chunk,
				"model":    model,
			})
			results[i] = indexedResult{index: i, result: r}
			if r.Status >= 400 {
				metrics.IncSplitterChunk("error")
			} else {
				metrics.IncSplitterChunk("ok")
			}
		}(i, chunk)
	}
	wg.Wait()

	return merge(results)
}

// partition groups lines into contiguous slices of at most size lines,
// preserving order.
func partition(lines []string, size int) []string {
	chunks := make([]string, 0, (len(lines)+size-1)/size)
	for i := 0; i < len(lines); i += size {
		end := i + size
		if end > len(lines) {
			end = len(lines)
		}
		chunks = append(chunks, strings.Join(lines[i:end], "\n"))
	}
	return chunks
}

// merge combines per-chunk results in index order per §4.6 step 5.
func merge(results []indexedResult) contracts.BackendResult {
	playbooks := make([]string, len(results))
	var maxElapsed float64
	var totalTokens int

	for _, r := range results {
		playbooks[r.index] = r.result.Playbook()
		if e := r.result.Elapsed(); e > maxElapsed {
			maxElapsed = e
		}
		totalTokens += r.result.TotalTokens()
	}

	return contracts.BackendResult{
		Status: http.StatusOK,
		Body: map[string]interface{}{
			"playbook":         strings.Join(playbooks, separator),
			"elapsed":          round2(maxElapsed),
			"total_tokens":     totalTokens,
			"chunks_processed": len(results),
		},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
