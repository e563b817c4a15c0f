// ABOUTME: Sentinel errors for pipeline step failures
// ABOUTME: Each failure wraps the sentinel and the failing step name so errors.Is works
package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrClassification means a routing, scope or grading call failed or left its label set
	ErrClassification = errors.New("classification failed")

	// ErrRetrieval means the retriever or its backend failed
	ErrRetrieval = errors.New("retrieval failed")

	// ErrGeneration means answer generation or question rewriting failed
	ErrGeneration = errors.New("generation failed")
)

func stepError(sentinel error, step string, err error) error {
	return fmt.Errorf("%w: %s: %w", sentinel, step, err)
}
