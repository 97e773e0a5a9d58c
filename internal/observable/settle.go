package observable

import (
	"context"
	"time"
)

// Settle forwards the last value read from in once no newer value has
// arrived for d. Values superseded inside the window are dropped. The output
// is closed when in is closed (after flushing a pending value) or ctx ends.
func Settle[T any](ctx context.Context, in <-chan T, d time.Duration) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		var (
			pending T
			have    bool
			timer   *time.Timer
			fire    <-chan time.Time
		)
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					if have {
						select {
						case out <- pending:
						case <-ctx.Done():
						}
					}
					return
				}
				pending, have = v, true
				if timer == nil {
					timer = time.NewTimer(d)
				} else {
					timer.Reset(d)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				if !have {
					continue
				}
				v := pending
				have = false
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
