// ABOUTME: Shared fixtures for command tests
// ABOUTME: Points config at a temp sqlite file and swaps model services for scripted fakes
package commands

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/harper/electionrag/internal/app"
	"github.com/harper/electionrag/internal/config"
	"github.com/harper/electionrag/internal/llm"
	"github.com/harper/electionrag/internal/llm/llmtest"
	"github.com/harper/electionrag/internal/storage"
)

// useTestStore sets the environment so config.Load opens a fresh sqlite file,
// and replaces the embedder with a deterministic one
func useTestStore(t *testing.T) {
	t.Helper()
	t.Setenv("ELECTIONRAG_STORE", config.StoreSQLite)
	t.Setenv("ELECTIONRAG_DB_PATH", filepath.Join(t.TempDir(), "passages.db"))
	t.Setenv("ELECTIONRAG_LLM_PROVIDER", config.ProviderOpenAI)
	t.Setenv("ELECTIONRAG_SCOPES", config.DefaultScopes)

	origEmbedder := newEmbedder
	newEmbedder = func(cfg *config.Config, log *slog.Logger) (llm.Embedder, error) {
		return &llmtest.HashEmbedder{Dim: 8}, nil
	}
	t.Cleanup(func() { newEmbedder = origEmbedder })
}

// useTestApp makes newApp build the application over the test store and svc
func useTestApp(t *testing.T, svc *llmtest.FakeCompletion) {
	t.Helper()
	useTestStore(t)

	origApp := newApp
	newApp = func(ctx context.Context) (*app.App, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		store, err := storage.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return app.NewWithServices(cfg, store, svc, &llmtest.HashEmbedder{Dim: 8}, logger)
	}
	t.Cleanup(func() { newApp = origApp })
}

// execute runs the root command with args and returns combined output
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetErr(&output)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return output.String(), err
}
