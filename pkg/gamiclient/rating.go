package gamiclient

import (
	"context"
	"fmt"
	"sync"
)

// SubmitFunc submits a rating value to the server and reports acceptance.
type SubmitFunc func(ctx context.Context, value int) (bool, error)

// RatingReconciler implements optimistic rating submission for a single
// rating widget. The chosen value is shown immediately; the server confirms
// or rolls it back. Overlapping submissions are serialized by a generation
// counter so the last submitted value wins, not the last response to arrive.
type RatingReconciler struct {
	mu         sync.Mutex
	confirmed  *int
	optimistic *int
	pending    bool
	lastErr    error
	generation uint64

	submit SubmitFunc
}

// NewRatingReconciler creates a reconciler around a submit callback. The
// confirmed baseline starts empty; seed it with SetConfirmed after fetching
// the server's stored rating.
func NewRatingReconciler(submit SubmitFunc) *RatingReconciler {
	return &RatingReconciler{submit: submit}
}

// SetConfirmed seeds the confirmed baseline (the server's last known value).
func (r *RatingReconciler) SetConfirmed(value int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := value
	r.confirmed = &v
}

// Displayed returns the rating the UI should show: the optimistic value while
// one is staged, otherwise the confirmed baseline. ok is false when neither
// exists.
func (r *RatingReconciler) Displayed() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.optimistic != nil {
		return *r.optimistic, true
	}
	if r.confirmed != nil {
		return *r.confirmed, true
	}
	return 0, false
}

// Pending reports whether a submission is in flight.
func (r *RatingReconciler) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

// Err returns the error from the last resolved submission, nil after a
// success.
func (r *RatingReconciler) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Submit stages value optimistically and submits it. The optimistic value is
// visible before the submit callback runs. On acceptance the value becomes
// the confirmed baseline; on rejection or transport failure the display rolls
// back to the previous confirmed value and the error is both stored and
// returned. A submission that resolves after a newer Submit has been staged
// is discarded entirely.
func (r *RatingReconciler) Submit(ctx context.Context, value int) error {
	if value < 1 || value > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", value)
	}

	r.mu.Lock()
	v := value
	r.optimistic = &v
	r.pending = true
	r.lastErr = nil
	r.generation++
	gen := r.generation
	r.mu.Unlock()

	ok, err := r.submit(ctx, value)

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.generation {
		// A newer submission superseded this one; its resolution owns the state
		return nil
	}

	r.pending = false

	if err != nil || !ok {
		r.optimistic = nil
		if err == nil {
			err = fmt.Errorf("rating rejected by server")
		}
		r.lastErr = err
		return err
	}

	r.confirmed = &v
	r.optimistic = nil
	return nil
}
