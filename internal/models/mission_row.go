package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// MissionRow is the persisted shape of a mission: flat snake_case columns
// with the arrays stored as JSON. The mapper below is the only code that
// translates between MissionRow and Mission.
type MissionRow struct {
	ID                     string         `gorm:"primaryKey;column:id"`
	Title                  string         `gorm:"column:title;not null"`
	Description            string         `gorm:"column:description"`
	DayOfWeek              string         `gorm:"column:day_of_week;not null;index"`
	TargetUnitIDs          datatypes.JSON `gorm:"column:target_unit_ids;type:jsonb"`
	UnitProgress           datatypes.JSON `gorm:"column:unit_progress;type:jsonb"`
	RequiresFileSubmission *bool          `gorm:"column:requires_file_submission"`
	CreatedBy              string         `gorm:"column:created_by"`
	CreatedByName          string         `gorm:"column:created_by_name"`
	CreationDate           time.Time      `gorm:"column:creation_date;index"`
	LastUpdatedByID        string         `gorm:"column:last_updated_by_id"`
	LastUpdatedByName      string         `gorm:"column:last_updated_by_name"`
	UpdatedAt              time.Time      `gorm:"column:updated_at"`
	Revision               int64          `gorm:"column:revision;not null;default:0"`
}

func (MissionRow) TableName() string { return "missions" }

// RowFromMission flattens a mission for persistence. The writer identity is
// passed explicitly so every save states who is making the change; it is
// never read off the mission itself.
func RowFromMission(m *Mission, actorID, actorName string) (*MissionRow, error) {
	unitIDs := m.TargetUnitIDs
	if unitIDs == nil {
		unitIDs = []string{}
	}
	rawIDs, err := json.Marshal(unitIDs)
	if err != nil {
		return nil, err
	}

	progress := m.UnitProgress
	if progress == nil {
		progress = []UnitMissionProgress{}
	}
	rawProgress, err := json.Marshal(progress)
	if err != nil {
		return nil, err
	}

	requires := m.RequiresFileSubmission
	return &MissionRow{
		ID:                     m.ID,
		Title:                  m.Title,
		Description:            m.Description,
		DayOfWeek:              m.DayOfWeek,
		TargetUnitIDs:          datatypes.JSON(rawIDs),
		UnitProgress:           datatypes.JSON(rawProgress),
		RequiresFileSubmission: &requires,
		CreatedBy:              m.CreatedBy,
		CreatedByName:          m.CreatedByName,
		CreationDate:           m.CreationDate,
		LastUpdatedByID:        actorID,
		LastUpdatedByName:      actorName,
		UpdatedAt:              m.UpdatedAt,
		Revision:               m.Revision,
	}, nil
}

// MissionFromRow rebuilds the nested mission from its row. Missing array
// columns come back as empty slices, never nil. Rows written before the
// requires_file_submission column existed read as true.
func MissionFromRow(r *MissionRow) *Mission {
	unitIDs := []string{}
	if len(r.TargetUnitIDs) > 0 {
		if err := json.Unmarshal(r.TargetUnitIDs, &unitIDs); err != nil || unitIDs == nil {
			unitIDs = []string{}
		}
	}

	progress := []UnitMissionProgress{}
	if len(r.UnitProgress) > 0 {
		if err := json.Unmarshal(r.UnitProgress, &progress); err != nil || progress == nil {
			progress = []UnitMissionProgress{}
		}
	}

	requires := true
	if r.RequiresFileSubmission != nil {
		requires = *r.RequiresFileSubmission
	}

	return &Mission{
		ID:                     r.ID,
		Title:                  r.Title,
		Description:            r.Description,
		DayOfWeek:              r.DayOfWeek,
		TargetUnitIDs:          unitIDs,
		UnitProgress:           progress,
		RequiresFileSubmission: requires,
		CreatedBy:              r.CreatedBy,
		CreatedByName:          r.CreatedByName,
		CreationDate:           r.CreationDate,
		LastUpdatedByID:        r.LastUpdatedByID,
		LastUpdatedByName:      r.LastUpdatedByName,
		UpdatedAt:              r.UpdatedAt,
		Revision:               r.Revision,
	}
}
