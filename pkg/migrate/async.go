package migrate

import (
	"context"
	"fmt"
)

// ErrInterrupted is returned by Wait when the update channel closes without a
// final update. That happens only when the run's context ended while the
// channel buffer was full.
var ErrInterrupted = fmt.Errorf("migration interrupted before reporting a result: %w", context.Canceled)

// Update is one message on a Start channel. Intermediate updates carry a
// Status; the final update has Done set and carries the Result or Err.
type Update struct {
	Status Status
	Done   bool
	Result *Result
	Err    error
}

// Start runs the migration on its own goroutine and returns a channel of
// updates. The channel is closed after the final update. Callers must drain
// it or cancel ctx; once ctx is done, status updates are dropped, and the
// final update is still delivered whenever the buffer has room.
func (p *Pipeline) Start(ctx context.Context, req Request) <-chan Update {
	updates := make(chan Update, 8)

	go func() {
		defer close(updates)

		res, err := p.Run(ctx, req, func(s Status) {
			if ctx.Err() != nil {
				return
			}
			select {
			case updates <- Update{Status: s}:
			case <-ctx.Done():
			}
		})
		final := Update{Done: true, Result: res, Err: err}

		// Prefer delivery over ctx.Done when both are possible.
		select {
		case updates <- final:
			return
		default:
		}
		select {
		case updates <- final:
		case <-ctx.Done():
		}
	}()

	return updates
}

// Wait drains updates, calling onStatus for each intermediate status, and
// returns the outcome carried by the final update. A channel that closes
// without one yields ErrInterrupted.
func Wait(updates <-chan Update, onStatus func(Status)) (*Result, error) {
	var (
		res  *Result
		err  error
		done bool
	)
	for u := range updates {
		if u.Done {
			res, err, done = u.Result, u.Err, true
			continue
		}
		if onStatus != nil {
			onStatus(u.Status)
		}
	}
	if !done {
		return nil, ErrInterrupted
	}
	return res, err
}
