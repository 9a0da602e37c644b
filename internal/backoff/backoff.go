package backoff

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"

	"tg-forum-migrator/internal/types"
)

const (
	PaceMin = 15 * time.Second
	PaceMax = 20 * time.Second
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy wraps every outbound dispatch call: a rate-limited call is retried
// exactly once after the requested wait, and each successful call is followed by a pacing pause.
type Policy struct {
	Sleep Sleeper
	// Pace returns the pause after a successful call.
	Pace   func() time.Duration
	Logger *log.Logger
}

// NewPolicy returns a Policy using real sleeps and a uniform pause in [PaceMin, PaceMax].
func NewPolicy(logger *log.Logger) *Policy {
	return &Policy{Sleep: Sleep, Pace: UniformPace, Logger: logger}
}

// UniformPace draws a pause uniformly from [PaceMin, PaceMax].
func UniformPace() time.Duration {
	return PaceMin + time.Duration(rand.Int64N(int64(PaceMax-PaceMin)+1))
}

// Do runs fn once, and once more after the advertised wait if it was rate limited.
// The error of the last attempt is returned as is. A successful call reports nil
// even when the pacing pause after it is cut short by ctx.
func (p *Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	var rl *types.RateLimitError
	if errors.As(err, &rl) {
		p.Logger.Warn("rate limited, waiting", "op", op, "wait", rl.Wait)
		if serr := p.Sleep(ctx, rl.Wait); serr != nil {
			return serr
		}
		err = fn(ctx)
	}
	if err != nil {
		return err
	}
	if serr := p.Sleep(ctx, p.Pace()); serr != nil {
		p.Logger.Debug("pacing pause interrupted", "op", op, "err", serr)
	}
	return nil
}
