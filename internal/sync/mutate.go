package sync

import (
	"context"
	"fmt"

	"github.com/denttrack/denttrack/internal/model"
	"go.uber.org/zap"
)

// AddOrEditTreatment saves a treatment. With existingID set it edits that
// treatment in place, otherwise it adds a new one.
//
// When a session and remote store are available the remote write happens
// first. A remote failure is logged and the save continues locally; a new
// treatment then keeps a client-generated id. The local apply always
// happens and the cache is rewritten. If the treatment's kind implies a
// tooth status, that status is written the same way.
//
// Only validation and cache failures are returned.
func (c *Coordinator) AddOrEditTreatment(ctx context.Context, data model.Treatment, existingID string) (model.Treatment, error) {
	if err := data.Validate(); err != nil {
		return model.Treatment{}, err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if existingID != "" && c.treatmentIndex(existingID) < 0 {
		return model.Treatment{}, fmt.Errorf("%w: %s", ErrTreatmentNotFound, existingID)
	}

	t := data.Clone()
	t.ID = existingID

	if userID, gen, ok := c.remoteTarget(); ok {
		var (
			id  string
			err error
		)
		c.track(func() {
			id, err = c.remote.SaveTreatment(ctx, userID, t, existingID)
		})
		switch {
		case err != nil:
			c.logger.Warn("remote save failed, keeping local copy",
				zap.String("id", existingID), zap.Error(err))
		case !c.sameSession(gen):
			c.logger.Info("session ended during remote save; result not adopted", zap.String("remote_id", id))
		case existingID == "":
			t.ID = id
		}
	}
	if t.ID == "" {
		t.ID = model.NewID()
	}

	c.mu.Lock()
	if i := c.treatmentIndexLocked(existingID); existingID != "" && i >= 0 {
		c.col.Treatments[i] = t.Clone()
	} else {
		c.col.Treatments = append(c.col.Treatments, t.Clone())
	}
	model.SortTreatments(c.col.Treatments)
	snapshot := model.CloneTreatments(c.col.Treatments)
	c.mu.Unlock()

	cacheErr := c.cache.SetTreatments(snapshot)
	if cacheErr != nil {
		cacheErr = fmt.Errorf("failed to cache treatments: %w", cacheErr)
	}
	c.notify(Change{Kind: ChangeTreatments, ID: t.ID})

	if t.ToothID != nil {
		if status, ok := model.StatusForKind(t.Kind); ok {
			if err := c.applyToothStatus(ctx, *t.ToothID, status); err != nil && cacheErr == nil {
				cacheErr = err
			}
		}
	}

	return t, cacheErr
}

// DeleteTreatment removes a treatment, remotely first when possible. Tooth
// statuses are left as they are.
func (c *Coordinator) DeleteTreatment(ctx context.Context, id string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.treatmentIndex(id) < 0 {
		return fmt.Errorf("%w: %s", ErrTreatmentNotFound, id)
	}

	if userID, _, ok := c.remoteTarget(); ok {
		c.track(func() {
			if err := c.remote.DeleteTreatment(ctx, userID, id); err != nil {
				c.logger.Warn("remote delete failed, deleting locally", zap.String("id", id), zap.Error(err))
			}
		})
	}

	c.mu.Lock()
	kept := make([]model.Treatment, 0, len(c.col.Treatments))
	for _, t := range c.col.Treatments {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	c.col.Treatments = kept
	snapshot := model.CloneTreatments(kept)
	c.mu.Unlock()

	err := c.cache.SetTreatments(snapshot)
	c.notify(Change{Kind: ChangeTreatments, ID: id})
	if err != nil {
		return fmt.Errorf("failed to cache treatments: %w", err)
	}
	return nil
}

// AddDentist adds a dentist. The verification flag is always cleared.
func (c *Coordinator) AddDentist(ctx context.Context, data model.Dentist) (model.Dentist, error) {
	if err := data.Validate(); err != nil {
		return model.Dentist{}, err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	d := data
	d.ID = ""
	d.IsVerified = false

	if userID, gen, ok := c.remoteTarget(); ok {
		var (
			id  string
			err error
		)
		c.track(func() {
			id, err = c.remote.SaveDentist(ctx, userID, d)
		})
		switch {
		case err != nil:
			c.logger.Warn("remote dentist insert failed, keeping local copy", zap.Error(err))
		case !c.sameSession(gen):
			c.logger.Info("session ended during remote insert; result not adopted", zap.String("remote_id", id))
		default:
			d.ID = id
		}
	}
	if d.ID == "" {
		d.ID = model.NewID()
	}

	c.mu.Lock()
	c.col.Dentists = append(c.col.Dentists, d)
	model.SortDentists(c.col.Dentists)
	snapshot := model.CloneDentists(c.col.Dentists)
	c.mu.Unlock()

	err := c.cache.SetDentists(snapshot)
	c.notify(Change{Kind: ChangeDentists, ID: d.ID})
	if err != nil {
		return d, fmt.Errorf("failed to cache dentists: %w", err)
	}
	return d, nil
}

// SetToothStatus records a status for one tooth, for example to flag it
// as needing attention.
func (c *Coordinator) SetToothStatus(ctx context.Context, tooth model.ToothID, status model.ToothStatus) error {
	if !tooth.Valid() {
		return fmt.Errorf("invalid tooth id %d", int(tooth))
	}
	if !status.IsValid() {
		return fmt.Errorf("invalid tooth status %q", status)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.applyToothStatus(ctx, tooth, status)
}

// applyToothStatus writes a status remotely (best-effort) and then
// locally. Caller holds writeMu.
func (c *Coordinator) applyToothStatus(ctx context.Context, tooth model.ToothID, status model.ToothStatus) error {
	if userID, _, ok := c.remoteTarget(); ok {
		c.track(func() {
			if err := c.remote.SaveToothStatus(ctx, userID, tooth, status); err != nil {
				c.logger.Warn("remote tooth status failed, keeping local copy",
					zap.Int("tooth", int(tooth)), zap.Error(err))
			}
		})
	}

	c.mu.Lock()
	c.col.TeethStatus[tooth] = status
	snapshot := c.col.TeethStatus.Clone()
	c.mu.Unlock()

	err := c.cache.SetTeethStatus(snapshot)
	c.notify(Change{Kind: ChangeTeeth, ID: tooth.String()})
	if err != nil {
		return fmt.Errorf("failed to cache teeth status: %w", err)
	}
	return nil
}

// ClearCache wipes the cached collections and resets memory to an empty
// record with every tooth Healthy. The session is untouched.
func (c *Coordinator) ClearCache() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.cache.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	c.mu.Lock()
	c.col = Collections{
		Treatments:  []model.Treatment{},
		Dentists:    []model.Dentist{},
		TeethStatus: model.DefaultTeethStatus(),
	}
	c.reconciled = ""
	c.mu.Unlock()

	c.notify(Change{Kind: ChangeCleared})
	return nil
}

func (c *Coordinator) treatmentIndex(id string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.treatmentIndexLocked(id)
}

func (c *Coordinator) treatmentIndexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, t := range c.col.Treatments {
		if t.ID == id {
			return i
		}
	}
	return -1
}
