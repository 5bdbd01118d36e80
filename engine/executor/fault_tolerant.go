package executor

import (
	"fmt"
	"time"

	"github.com/tessera-db/tessera/engine/checkpoint"

	"github.com/tessera-db/tessera/engine/plan"
)

// FaultTolerantOperator wraps any operator with checkpointing and retry. It
// loads a prior checkpoint's progress before executing, retries the wrapped
// execution with exponential backoff on any error (permission and
// configuration errors excepted, those are fatal by contract), checkpoints
// progress every checkpoint_interval emitted rows, and on exhausting retries
// writes a final checkpoint, records the failure, and re-raises.
//
// Retry re-executes the wrapped subtree from scratch, so execution
// materializes output per attempt; callers should only wrap re-executable
// subtrees (e.g. scans over immutable snapshots).
type FaultTolerantOperator struct {
	baseOperator
	inner Operator
}

// NewFaultTolerant wraps inner with checkpoint/retry through
// ctx.Checkpoints and ctx.Failures.
func NewFaultTolerant(node *plan.Node, ctx *Context, inner Operator) *FaultTolerantOperator {
	return &FaultTolerantOperator{
		baseOperator: newBaseOperator(node, ctx, inner),
		inner:        inner,
	}
}

func (o *FaultTolerantOperator) Open() (RowIterator, error) {
	opts := o.ctx.Options

	var resumeFrom int64
	if prior, err := o.ctx.Checkpoints.Load(o.id); err == nil && prior != nil {
		resumeFrom = prior.RowCount
		o.ctx.debugf("fault_tolerant %s: resuming from checkpoint at row %d", o.node.Op, resumeFrom)
	}

	var lastErr error
	for retry := 0; retry <= opts.MaxRetries; retry++ {
		if retry > 0 {
			backoff := opts.RetryBackoff * time.Duration(1<<(retry-1))
			o.ctx.debugf("fault_tolerant %s: retry %d after %v", o.node.Op, retry, backoff)
			time.Sleep(backoff)
		}

		rows, err := o.attempt()
		if err == nil {
			return newSliceIterator(rows), nil
		}

		// Fatal classes are never retried.
		if IsConfigError(err) || IsPermissionError(err) {
			return nil, err
		}

		lastErr = err
		o.ctx.Failures.RecordFailure(o.id)
	}

	// Retries exhausted: persist final progress and re-raise.
	_ = o.ctx.Checkpoints.Save(checkpoint.Checkpoint{
		OperatorID: o.id,
		RowCount:   resumeFrom,
		State:      map[string]interface{}{"failed": true},
	})
	return nil, fmt.Errorf("fault_tolerant %s: retries exhausted: %w", o.node.Op, lastErr)
}

// attempt runs the wrapped operator once to completion, checkpointing
// progress as it goes.
func (o *FaultTolerantOperator) attempt() ([]Row, error) {
	it, err := o.inner.Open()
	if err != nil {
		return nil, err
	}
	defer it.Close()

	interval := o.ctx.Options.CheckpointInterval
	if interval <= 0 {
		interval = 1000
	}

	var rows []Row
	var count int64
	for it.Next() {
		rows = append(rows, it.Row())
		count++
		if count%int64(interval) == 0 {
			if err := o.ctx.Checkpoints.Save(checkpoint.Checkpoint{
				OperatorID: o.id,
				RowCount:   count,
			}); err != nil {
				return nil, err
			}
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// CleanupTree removes checkpoints and resets failure counters for the whole
// subtree rooted at op, after a successful top-level run.
func CleanupTree(ctx *Context, op Operator) error {
	if op == nil {
		return nil
	}
	if ctx.Checkpoints != nil {
		if err := ctx.Checkpoints.Clear(op.ID()); err != nil {
			return err
		}
	}
	if ctx.Failures != nil {
		ctx.Failures.Reset(op.ID())
	}
	for _, child := range op.Children() {
		if err := CleanupTree(ctx, child); err != nil {
			return err
		}
	}
	return nil
}
