package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/gomultipart/internal/multipart/entity"
	"github.com/shandysiswandi/gomultipart/internal/pkg/pkgerror"
)

// Sweep fails uploads idle past the idle timeout, reclaiming their parts, and
// forgets terminal uploads older than the retention window.
func (u *Usecase) Sweep(ctx context.Context) (SweepResult, error) {
	var (
		res  SweepResult
		errs []error
	)

	now := u.clock.Now()
	for _, rec := range u.registry.List(ctx) {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		switch {
		case rec.Status == entity.StatusInProgress && u.cfg.IdleTimeout > 0:
			if now.Sub(rec.LastActivity) < u.cfg.IdleTimeout {
				continue
			}
			expired, err := u.expire(ctx, rec.ID)
			if err != nil {
				errs = append(errs, err)
			}
			if expired {
				res.Expired++
			}

		case rec.Status.Terminal() && u.cfg.Retention > 0:
			if now.Sub(rec.FinishedAt) < u.cfg.Retention {
				continue
			}
			err := u.registry.Delete(ctx, rec.ID)
			if err != nil && !errors.Is(err, pkgerror.ErrNotFound) {
				errs = append(errs, err)
				continue
			}
			res.Purged++
		}
	}

	if res.Expired > 0 || res.Purged > 0 {
		slog.InfoContext(ctx, "upload sweep finished", "expired", res.Expired, "purged", res.Purged)
	}

	return res, errors.Join(errs...)
}

// expire re-reads the record under the upload gate, since a part may have
// arrived since the listing.
func (u *Usecase) expire(ctx context.Context, uploadID string) (bool, error) {
	release := u.gates.Lock(uploadID)
	defer release()

	rec, err := u.registry.Get(ctx, uploadID)
	if errors.Is(err, pkgerror.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if rec.Status != entity.StatusInProgress || u.clock.Now().Sub(rec.LastActivity) < u.cfg.IdleTimeout {
		return false, nil
	}

	u.fail(ctx, rec, "expired", entity.EventExpired)

	return true, nil
}
