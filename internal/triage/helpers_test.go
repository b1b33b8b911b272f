package triage

import (
	"context"

	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/inference"
	"github.com/rpggio/inboxtriage/internal/inference/inferencetest"
)

func taskPatch(desc string) task.Patch {
	return task.Patch{Description: &desc}
}

// cancelAfter cancels the run context once n completions have been served.
type cancelAfter struct {
	*inferencetest.Scripted
	n      int
	cancel context.CancelFunc
}

func (c *cancelAfter) Complete(ctx context.Context, req inference.Request) (string, error) {
	text, err := c.Scripted.Complete(ctx, req)
	if c.Scripted.Calls() >= c.n {
		c.cancel()
	}
	return text, err
}
