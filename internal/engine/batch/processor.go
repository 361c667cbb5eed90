package batch

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Common batch processing errors.
var (
	ErrNilCallback = errors.New("batch callback cannot be nil")
	ErrEmptyItems  = errors.New("items slice cannot be empty")
)

// ItemCallback processes a single item. index is 0-based.
type ItemCallback[T any] func(ctx context.Context, item T, index int) error

// ProgressCallback is invoked before and after each item.
type ProgressCallback func(snapshot ProgressSnapshot)

// ItemError records the failure of one item.
type ItemError struct {
	Index int
	Label string
	Err   error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %d (%s): %v", e.Index, e.Label, e.Err)
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// Result summarizes a run.
type Result struct {
	Processed int
	Failed    []ItemError
	Elapsed   time.Duration
}

// Processor runs items sequentially.
type Processor[T any] struct {
	label      func(T) string
	onProgress ProgressCallback
	now        func() time.Time
}

// NewProcessor creates a processor. label names items in progress reports
// and errors; nil uses the item index.
func NewProcessor[T any](label func(T) string) *Processor[T] {
	return &Processor[T]{label: label, now: time.Now}
}

// WithProgressCallback sets a progress callback for the processor.
func (p *Processor[T]) WithProgressCallback(callback ProgressCallback) *Processor[T] {
	p.onProgress = callback
	return p
}

// WithClock overrides the time source used for elapsed times.
func (p *Processor[T]) WithClock(now func() time.Time) *Processor[T] {
	p.now = now
	return p
}

// Process calls callback for every item in order. Item errors are collected
// in the Result; the returned error is only set for invalid arguments or a
// canceled context, in which case the Result covers the items done so far.
func (p *Processor[T]) Process(ctx context.Context, items []T, callback ItemCallback[T]) (Result, error) {
	if len(items) == 0 {
		return Result{}, ErrEmptyItems
	}
	if callback == nil {
		return Result{}, ErrNilCallback
	}

	progress := NewProgress(len(items), p.now())
	var result Result

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			result.Elapsed = p.now().Sub(progress.StartTime)
			return result, err
		}

		name := p.itemLabel(item, i)
		progress.Start(i, name)
		p.notify(progress)

		if err := callback(ctx, item, i); err != nil {
			result.Failed = append(result.Failed, ItemError{Index: i, Label: name, Err: err})
			progress.Finish(false, p.now())
		} else {
			progress.Finish(true, p.now())
		}
		result.Processed++
		p.notify(progress)
	}

	result.Elapsed = p.now().Sub(progress.StartTime)
	return result, nil
}

func (p *Processor[T]) itemLabel(item T, index int) string {
	if p.label == nil {
		return fmt.Sprintf("#%d", index+1)
	}
	return p.label(item)
}

func (p *Processor[T]) notify(progress *Progress) {
	if p.onProgress != nil {
		p.onProgress(progress.Snapshot(p.now()))
	}
}
