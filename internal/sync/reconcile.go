package sync

import (
	"context"
	"fmt"

	"github.com/denttrack/denttrack/internal/auth"
	"github.com/denttrack/denttrack/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// sessionKey identifies a session for reconciliation de-duplication.
func sessionKey(s *auth.Session) string {
	if s == nil {
		return ""
	}
	return s.UserID + "\x00" + s.AccessToken
}

// Reconcile replaces local state with the remote collections for the
// current session.
//
// All three collections are fetched in parallel. Only when every fetch
// succeeds are memory and cache overwritten; otherwise memory is reloaded
// from the cache unchanged. Fetch failures are logged, not returned. A
// session that already reconciled is not reconciled again; use Resync to
// force it.
func (c *Coordinator) Reconcile(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.reconcileLocked(ctx, false)
}

// Resync reconciles even if the current session already did.
func (c *Coordinator) Resync(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.reconcileLocked(ctx, true)
}

// reconcileLocked runs a reconciliation. Caller holds writeMu.
func (c *Coordinator) reconcileLocked(ctx context.Context, force bool) error {
	userID, gen, ok := c.remoteTarget()
	if !ok {
		return nil
	}

	c.mu.RLock()
	key := sessionKey(c.session)
	done := c.reconciled == key
	c.mu.RUnlock()
	if done && !force {
		c.logger.Debug("session already reconciled", zap.String("user_id", userID))
		return nil
	}

	var (
		fetched Collections
		err     error
	)
	c.track(func() {
		fetched, err = c.fetchAll(ctx, userID)
	})
	if err != nil {
		c.logger.Warn("remote fetch failed, using cached data", zap.Error(err))
		c.loadFromCache()
		c.notify(Change{Kind: ChangeReconciled, Degraded: true})
		return nil
	}
	if !c.sameSession(gen) {
		c.logger.Info("session ended during reconciliation, discarding fetched data")
		return nil
	}

	local := c.Collections()
	if c.opts.PushGuestDataOnSignIn {
		c.track(func() {
			fetched = c.pushGuestData(ctx, userID, local, fetched)
		})
	} else if u := FindUnsynced(local, fetched); u.Any() {
		c.logger.Warn("local data not present remotely will be replaced by the remote copy",
			zap.Int("treatments", len(u.Treatments)),
			zap.Int("dentists", len(u.Dentists)),
			zap.Int("teeth", len(u.Teeth)),
		)
	}

	fetched.TeethStatus = fetched.TeethStatus.Normalize()
	model.SortTreatments(fetched.Treatments)

	if err := c.persist(fetched); err != nil {
		c.logger.Warn("failed to write reconciled data to cache", zap.Error(err))
	}

	c.mu.Lock()
	c.col = fetched.clone()
	c.reconciled = key
	c.mu.Unlock()

	c.logger.Info("reconciled with remote store",
		zap.String("user_id", userID),
		zap.Int("treatments", len(fetched.Treatments)),
		zap.Int("dentists", len(fetched.Dentists)),
	)
	c.notify(Change{Kind: ChangeReconciled})
	return nil
}

// fetchAll fetches the three collections in parallel. The first failure
// cancels the others.
func (c *Coordinator) fetchAll(ctx context.Context, userID string) (Collections, error) {
	var out Collections
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ts, err := c.remote.FetchTreatments(gctx, userID)
		if err != nil {
			return err
		}
		out.Treatments = ts
		return nil
	})
	g.Go(func() error {
		ds, err := c.remote.FetchDentists(gctx, userID)
		if err != nil {
			return err
		}
		out.Dentists = ds
		return nil
	})
	g.Go(func() error {
		teeth, err := c.remote.FetchTeethStatus(gctx, userID)
		if err != nil {
			return err
		}
		out.TeethStatus = teeth
		return nil
	})

	if err := g.Wait(); err != nil {
		return Collections{}, err
	}
	if out.Treatments == nil {
		out.Treatments = []model.Treatment{}
	}
	if out.Dentists == nil {
		out.Dentists = []model.Dentist{}
	}
	return out, nil
}

// persist overwrites the three cached collections.
func (c *Coordinator) persist(col Collections) error {
	if err := c.cache.SetTreatments(col.Treatments); err != nil {
		return fmt.Errorf("failed to cache treatments: %w", err)
	}
	if err := c.cache.SetDentists(col.Dentists); err != nil {
		return fmt.Errorf("failed to cache dentists: %w", err)
	}
	if err := c.cache.SetTeethStatus(col.TeethStatus); err != nil {
		return fmt.Errorf("failed to cache teeth status: %w", err)
	}
	return nil
}

// Unsynced lists local records a reconciliation would discard.
type Unsynced struct {
	Treatments []model.Treatment
	Dentists   []model.Dentist
	Teeth      model.TeethStatus
}

// Any reports whether anything would be lost.
func (u Unsynced) Any() bool {
	return len(u.Treatments) > 0 || len(u.Dentists) > 0 || len(u.Teeth) > 0
}

// FindUnsynced compares local state with a remote snapshot. Records are
// matched by id; a tooth counts when it is not Healthy locally and the
// remote status differs.
func FindUnsynced(local, remote Collections) Unsynced {
	var u Unsynced

	remoteTreatments := make(map[string]bool, len(remote.Treatments))
	for _, t := range remote.Treatments {
		remoteTreatments[t.ID] = true
	}
	for _, t := range local.Treatments {
		if !remoteTreatments[t.ID] {
			u.Treatments = append(u.Treatments, t)
		}
	}

	remoteDentists := make(map[string]bool, len(remote.Dentists))
	for _, d := range remote.Dentists {
		remoteDentists[d.ID] = true
	}
	for _, d := range local.Dentists {
		if !remoteDentists[d.ID] {
			u.Dentists = append(u.Dentists, d)
		}
	}

	for tooth, status := range local.TeethStatus {
		if status != model.StatusHealthy && remote.TeethStatus.Status(tooth) != status {
			if u.Teeth == nil {
				u.Teeth = model.TeethStatus{}
			}
			u.Teeth[tooth] = status
		}
	}
	return u
}

// pushGuestData inserts unsynced local records remotely and folds the
// successful ones into fetched. Dentists go first so treatments can be
// re-pointed at their server ids. Records that fail to push are logged
// and dropped by the overwrite that follows.
func (c *Coordinator) pushGuestData(ctx context.Context, userID string, local, fetched Collections) Collections {
	u := FindUnsynced(local, fetched)
	if !u.Any() {
		return fetched
	}

	out := fetched.clone()
	if out.TeethStatus == nil {
		out.TeethStatus = model.TeethStatus{}
	}
	dentistIDs := make(map[string]string)
	failed := 0

	for _, d := range u.Dentists {
		id, err := c.remote.SaveDentist(ctx, userID, d)
		if err != nil {
			failed++
			c.logger.Warn("failed to push guest dentist", zap.String("id", d.ID), zap.Error(err))
			continue
		}
		dentistIDs[d.ID] = id
		d.ID = id
		d.IsVerified = false
		out.Dentists = append(out.Dentists, d)
	}
	model.SortDentists(out.Dentists)

	for _, t := range u.Treatments {
		t = t.Clone()
		if id, ok := dentistIDs[t.DentistID]; ok {
			t.DentistID = id
		}
		id, err := c.remote.SaveTreatment(ctx, userID, t, "")
		if err != nil {
			failed++
			c.logger.Warn("failed to push guest treatment", zap.String("id", t.ID), zap.Error(err))
			continue
		}
		t.ID = id
		out.Treatments = append(out.Treatments, t)
	}

	for tooth, status := range u.Teeth {
		if _, stored := out.TeethStatus[tooth]; stored {
			// The remote record wins for teeth it already tracks.
			continue
		}
		if err := c.remote.SaveToothStatus(ctx, userID, tooth, status); err != nil {
			failed++
			c.logger.Warn("failed to push guest tooth status", zap.Int("tooth", int(tooth)), zap.Error(err))
			continue
		}
		out.TeethStatus[tooth] = status
	}

	c.logger.Info("pushed guest data",
		zap.Int("dentists", len(u.Dentists)),
		zap.Int("treatments", len(u.Treatments)),
		zap.Int("failed", failed),
	)
	return out
}
