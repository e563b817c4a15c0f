// ABOUTME: Concurrent passage grading on a shared bounded worker pool
// ABOUTME: Verdicts come back in retrieval order regardless of completion order
package pipeline

import (
	"context"

	"github.com/alitto/pond/v2"
	"github.com/harper/electionrag/internal/models"
)

const defaultGradeWorkers = 6

func newGradePool(workers int) pond.ResultPool[bool] {
	if workers <= 0 {
		workers = defaultGradeWorkers
	}
	return pond.NewResultPool[bool](workers)
}

// gradePassages grades every passage against question and keeps the relevant ones in their original order
func (c *Controller) gradePassages(ctx context.Context, question string, passages []models.Passage) ([]models.Passage, error) {
	if len(passages) == 0 {
		return []models.Passage{}, nil
	}

	group := c.pool.NewGroupContext(ctx)
	for _, p := range passages {
		group.SubmitErr(func() (bool, error) {
			callCtx, cancel := c.callContext(ctx)
			defer cancel()
			ok, err := c.classifier.GradePassage(callCtx, question, p)
			if err != nil {
				return false, err
			}
			c.recorder.ObserveClassification("passage_relevance", yesNo(ok))
			return ok, nil
		})
	}

	verdicts, err := group.Wait()
	if err != nil {
		return nil, err
	}

	relevant := make([]models.Passage, 0, len(passages))
	for i, ok := range verdicts {
		if ok {
			relevant = append(relevant, passages[i])
		}
	}
	return relevant, nil
}

func yesNo(ok bool) string {
	if ok {
		return models.LabelYes
	}
	return models.LabelNo
}
