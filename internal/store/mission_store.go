// Package store persists missions. It is the only writer of the missions
// table; everything above it works with models.Mission and never sees rows.
package store

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/vduarte/missions-api/internal/models"
)

type MissionStore struct {
	db *gorm.DB
}

func NewMissionStore(db *gorm.DB) *MissionStore {
	return &MissionStore{db: db}
}

// Save upserts a mission. A missing row is the normal insert path; an
// existing row is updated with the immutable provenance columns (id,
// created_by, created_by_name, creation_date) left out of the payload.
// Updates carry a revision guard: if the stored revision no longer matches
// the one the mission was read at, Save returns ErrStaleWrite and commits
// nothing. The acting user is stamped as the row's last writer.
func (s *MissionStore) Save(m *models.Mission, actorID, actorName string) error {
	row, err := models.RowFromMission(m, actorID, actorName)
	if err != nil {
		return fmt.Errorf("encode mission %s: %w", m.ID, err)
	}

	var existing models.MissionRow
	err = s.db.Select("id").Where("id = ?", m.ID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := s.db.Create(row).Error; err != nil {
			return fmt.Errorf("insert mission %s: %w", m.ID, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("mission existence check %s: %w", m.ID, err)
	}

	res := s.db.Model(&models.MissionRow{}).
		Where("id = ? AND revision = ?", m.ID, m.Revision).
		Updates(map[string]interface{}{
			"title":                    row.Title,
			"description":              row.Description,
			"day_of_week":              row.DayOfWeek,
			"target_unit_ids":          row.TargetUnitIDs,
			"unit_progress":            row.UnitProgress,
			"requires_file_submission": row.RequiresFileSubmission,
			"last_updated_by_id":       row.LastUpdatedByID,
			"last_updated_by_name":     row.LastUpdatedByName,
			"updated_at":               row.UpdatedAt,
			"revision":                 row.Revision + 1,
		})
	if res.Error != nil {
		return fmt.Errorf("update mission %s: %w", m.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		log.Printf("store: stale write rejected for mission %s (revision %d)", m.ID, m.Revision)
		return ErrStaleWrite
	}
	m.Revision++
	return nil
}

// GetByID returns the mission with the given id, or ErrNotFound.
func (s *MissionStore) GetByID(id string) (*models.Mission, error) {
	var row models.MissionRow
	err := s.db.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query mission %s: %w", id, err)
	}
	return models.MissionFromRow(&row), nil
}

// GetAll returns every mission, newest creation first.
func (s *MissionStore) GetAll() ([]*models.Mission, error) {
	var rows []models.MissionRow
	if err := s.db.Order("creation_date DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query missions: %w", err)
	}
	missions := make([]*models.Mission, len(rows))
	for i := range rows {
		missions[i] = models.MissionFromRow(&rows[i])
	}
	return missions, nil
}

// Delete removes the mission row entirely. There is no soft delete for
// missions; a deleted mission is gone.
func (s *MissionStore) Delete(id string) error {
	res := s.db.Where("id = ?", id).Delete(&models.MissionRow{})
	if res.Error != nil {
		return fmt.Errorf("delete mission %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
