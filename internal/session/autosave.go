package session

import (
	"context"
	"encoding/json"

	"github.com/stemsi/exstem-player/internal/config"
	"github.com/stemsi/exstem-player/internal/model"
	"github.com/stemsi/exstem-player/internal/monitoring"
)

// markDirtyLocked flags the state as unsaved and arms the debounce. User
// edits pass restart=true and push the write back; ticks only arm a timer
// when none is pending, otherwise a running countdown would postpone the
// write forever.
func (c *Controller) markDirtyLocked(restart bool) {
	if c.status != model.SessionStatusActive {
		return
	}
	c.autosave = model.AutosaveSaving
	if c.saveTimer != nil {
		if !restart {
			return
		}
		c.saveTimer.Stop()
	}
	c.saveGen++
	gen := c.saveGen
	c.saveTimer = c.clock.AfterFunc(c.debounce, func() { c.flush(gen) })
}

// stopSaveLocked cancels any pending write and invalidates one already firing.
func (c *Controller) stopSaveLocked() {
	if c.saveTimer != nil {
		c.saveTimer.Stop()
		c.saveTimer = nil
	}
	c.saveGen++
}

// flush writes the snapshot for debounce generation gen. Storage errors are
// logged and otherwise ignored.
func (c *Controller) flush(gen uint64) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	if gen != c.saveGen {
		c.mu.Unlock()
		return
	}
	// The timer has fired; a later markDirtyLocked must arm a fresh one.
	c.saveTimer = nil
	if c.status != model.SessionStatusActive {
		c.mu.Unlock()
		return
	}
	data, err := json.Marshal(c.snapshotLocked())
	quizID := c.quizID
	c.mu.Unlock()

	if err != nil {
		c.log.Debug().Err(err).Str("quiz_id", quizID).Msg("Autosave failed")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	_ = c.writeSnapshot(ctx, gen, quizID, data)
}

// Flush writes a pending debounced snapshot now instead of waiting for the
// timer. Nothing happens when no write is pending.
func (c *Controller) Flush(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	if c.saveTimer == nil || c.status != model.SessionStatusActive {
		c.mu.Unlock()
		return nil
	}
	c.stopSaveLocked()
	gen := c.saveGen
	data, err := json.Marshal(c.snapshotLocked())
	quizID := c.quizID
	c.mu.Unlock()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return c.writeSnapshot(ctx, gen, quizID, data)
}

// writeSnapshot stores data and, unless a newer edit arrived meanwhile, marks
// the state saved. Callers hold persistMu.
func (c *Controller) writeSnapshot(ctx context.Context, gen uint64, quizID string, data []byte) error {
	err := c.store.Set(ctx, config.CacheKey.QuizProgressKey(quizID), data)
	if err != nil {
		monitoring.AutosaveWrites.WithLabelValues("error").Inc()
		c.log.Debug().Err(err).Str("quiz_id", quizID).Msg("Autosave failed")
	} else {
		monitoring.AutosaveWrites.WithLabelValues("ok").Inc()
	}

	c.mu.Lock()
	// A newer edit keeps the status at saving under its own timer.
	if gen == c.saveGen && c.status == model.SessionStatusActive {
		c.autosave = model.AutosaveSaved
	}
	c.mu.Unlock()
	c.publish()
	return err
}

// removeSnapshot clears stored progress. Callers hold persistMu.
func (c *Controller) removeSnapshot(quizID string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := c.store.Remove(ctx, config.CacheKey.QuizProgressKey(quizID)); err != nil {
		c.log.Debug().Err(err).Str("quiz_id", quizID).Msg("Failed to clear snapshot")
	}
}
