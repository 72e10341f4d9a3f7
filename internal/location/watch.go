package location

import (
	"context"
	"time"

	"github.com/agentstation/listingmap/pkg/constants"
	"github.com/agentstation/listingmap/pkg/errors"
)

// Watch reads a fresh fix every interval and calls fn when the position
// leaves the previous fix's accuracy radius. It returns when ctx ends, or
// at once when permission is refused.
func (p *Provider) Watch(ctx context.Context, interval time.Duration, fn func(Fix)) error {
	granted, err := p.Permission(ctx)
	if err != nil {
		return err
	}
	if !granted {
		return errors.NewPermissionDeniedError(constants.LocationPermission)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *Fix
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		fix, err := p.platform.FreshFix(ctx, Balanced)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Debug().Err(err).Msg("Watch fix failed")
			continue
		}
		if last != nil && last.Covers(fix.Position) {
			continue
		}
		last = &fix
		fn(fix)
	}
}
