// Package progress holds the pure transition logic for per-unit mission
// progress. Every function returns a new slice; entries other than the one
// being touched are carried over unchanged.
package progress

import (
	"time"

	"github.com/vduarte/missions-api/internal/models"
)

// Actor identifies who is making a progress change.
type Actor struct {
	ID   string
	Name string
}

// ForUnits builds the initial progress list for a new mission: one Pendente
// entry per target unit.
func ForUnits(unitIDs []string, now time.Time) []models.UnitMissionProgress {
	entries := make([]models.UnitMissionProgress, 0, len(unitIDs))
	for _, id := range unitIDs {
		entries = append(entries, models.UnitMissionProgress{
			UnitID:    id,
			Status:    models.StatusPendente,
			UpdatedAt: now,
		})
	}
	return entries
}

// WithStatus replaces the entry for unitID with one carrying the new status.
// SubmittedAt is sticky: it is set only on the first transition into
// Cumprida and preserved on every later update.
func WithStatus(entries []models.UnitMissionProgress, unitID, status string, actor Actor, now time.Time) []models.UnitMissionProgress {
	return replace(entries, unitID, func(e models.UnitMissionProgress) models.UnitMissionProgress {
		e.Status = status
		if status == models.StatusCumprida && e.SubmittedAt == nil {
			t := now
			e.SubmittedAt = &t
		}
		e.LastUpdatedByID = actor.ID
		e.LastUpdatedByName = actor.Name
		e.UpdatedAt = now
		return e
	})
}

// WithFile attaches a file submission to the entry for unitID and forces its
// status to Cumprida. Unlike WithStatus, SubmittedAt is overwritten
// unconditionally on every upload.
func WithFile(entries []models.UnitMissionProgress, unitID string, file models.SubmittedFile, actor Actor, now time.Time) []models.UnitMissionProgress {
	return replace(entries, unitID, func(e models.UnitMissionProgress) models.UnitMissionProgress {
		f := file
		e.Status = models.StatusCumprida
		e.SubmittedFile = &f
		t := now
		e.SubmittedAt = &t
		e.LastUpdatedByID = actor.ID
		e.LastUpdatedByName = actor.Name
		e.UpdatedAt = now
		return e
	})
}

// WithoutFile removes the file submission from the entry for unitID and
// resets its status to Pendente. SubmittedAt is left as-is.
func WithoutFile(entries []models.UnitMissionProgress, unitID string, actor Actor, now time.Time) []models.UnitMissionProgress {
	return replace(entries, unitID, func(e models.UnitMissionProgress) models.UnitMissionProgress {
		e.Status = models.StatusPendente
		e.SubmittedFile = nil
		e.LastUpdatedByID = actor.ID
		e.LastUpdatedByName = actor.Name
		e.UpdatedAt = now
		return e
	})
}

// Reconcile aligns a progress list with an edited set of target units:
// units gaining coverage get a fresh Pendente entry, entries for units no
// longer targeted are dropped. Entries for surviving units are untouched.
func Reconcile(entries []models.UnitMissionProgress, unitIDs []string, now time.Time) []models.UnitMissionProgress {
	targeted := make(map[string]bool, len(unitIDs))
	for _, id := range unitIDs {
		targeted[id] = true
	}

	out := make([]models.UnitMissionProgress, 0, len(unitIDs))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !targeted[e.UnitID] {
			continue
		}
		out = append(out, e)
		seen[e.UnitID] = true
	}
	for _, id := range unitIDs {
		if !seen[id] {
			out = append(out, models.UnitMissionProgress{
				UnitID:    id,
				Status:    models.StatusPendente,
				UpdatedAt: now,
			})
		}
	}
	return out
}

// replace returns a copy of entries with the unitID entry passed through fn.
// Entries without a match come back unchanged.
func replace(entries []models.UnitMissionProgress, unitID string, fn func(models.UnitMissionProgress) models.UnitMissionProgress) []models.UnitMissionProgress {
	out := make([]models.UnitMissionProgress, len(entries))
	for i, e := range entries {
		if e.UnitID == unitID {
			out[i] = fn(e)
		} else {
			out[i] = e
		}
	}
	return out
}
