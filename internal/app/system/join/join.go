// internal/app/system/join/join.go
package join

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Task is a named unit of work run concurrently with its siblings.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Outcome is the result of one task under Settle.
type Outcome struct {
	Name string
	Err  error
}

// OK reports whether the task succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// All runs every task concurrently and waits for them. The first failure
// cancels the context passed to the remaining tasks and is returned,
// annotated with the failing task's name.
func All(ctx context.Context, tasks ...Task) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			if err := t.Run(gctx); err != nil {
				return fmt.Errorf("%s: %w", t.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Settle runs every task concurrently and waits for all of them regardless
// of failures. Outcomes are returned in the order the tasks were given.
func Settle(ctx context.Context, tasks ...Task) []Outcome {
	out := make([]Outcome, len(tasks))
	var g errgroup.Group
	for i, t := range tasks {
		i, t := i, t
		out[i].Name = t.Name
		g.Go(func() error {
			out[i].Err = t.Run(ctx)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Err joins the errors of every failed outcome, each prefixed with its task
// name. It returns nil when all tasks succeeded.
func Err(outcomes []Outcome) error {
	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Name, o.Err))
		}
	}
	return errors.Join(errs...)
}
