// ABOUTME: Scripted completion service and embedder for tests
// ABOUTME: Replies are keyed by label schema name and recorded for assertions
package llmtest

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/harper/electionrag/internal/llm"
)

// Call records one request made to the fake
type Call struct {
	Schema   string
	Messages []llm.Message
}

// FakeCompletion answers structured calls from per-schema queues and free-text calls from Text
type FakeCompletion struct {
	mu     sync.Mutex
	labels map[string][]string
	texts  []string
	err    error
	calls  []Call
}

// NewFakeCompletion creates an empty fake
func NewFakeCompletion() *FakeCompletion {
	return &FakeCompletion{labels: make(map[string][]string)}
}

// Label queues replies for the named schema. The last reply repeats once the queue drains.
func (f *FakeCompletion) Label(schema string, replies ...string) *FakeCompletion {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labels[schema] = append(f.labels[schema], replies...)
	return f
}

// Text queues free-text replies. The last reply repeats once the queue drains.
func (f *FakeCompletion) Text(replies ...string) *FakeCompletion {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, replies...)
	return f
}

// Fail makes every call return err
func (f *FakeCompletion) Fail(err error) *FakeCompletion {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
	return f
}

// Calls returns a copy of the recorded calls
func (f *FakeCompletion) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Complete implements llm.CompletionService
func (f *FakeCompletion) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Messages: messages})
	if f.err != nil {
		return "", f.err
	}
	if len(f.texts) == 0 {
		return "", fmt.Errorf("llmtest: no text reply scripted")
	}
	return pop(&f.texts), nil
}

// CompleteStructured implements llm.CompletionService
func (f *FakeCompletion) CompleteStructured(ctx context.Context, messages []llm.Message, schema llm.LabelSchema) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Schema: schema.Name, Messages: messages})
	if f.err != nil {
		return "", f.err
	}
	queue := f.labels[schema.Name]
	if len(queue) == 0 {
		return "", fmt.Errorf("llmtest: no label scripted for %q", schema.Name)
	}
	reply := pop(&queue)
	f.labels[schema.Name] = queue
	return reply, nil
}

func pop(queue *[]string) string {
	q := *queue
	head := q[0]
	if len(q) > 1 {
		*queue = q[1:]
	}
	return head
}

// HashEmbedder produces deterministic vectors from text without a network call
type HashEmbedder struct {
	Dim int

	mu    sync.Mutex
	calls int
}

// Embed implements llm.Embedder
func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	h.mu.Lock()
	h.calls++
	h.mu.Unlock()

	dim := h.Dim
	if dim <= 0 {
		dim = 8
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, dim)
		for j := range v {
			hs := fnv.New32a()
			fmt.Fprintf(hs, "%d:%s", j, t)
			v[j] = float32(hs.Sum32()%1000) / 1000
		}
		out[i] = v
	}
	return out, nil
}

// Calls returns how many Embed calls were made
func (h *HashEmbedder) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}
