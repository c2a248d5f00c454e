package models

import (
	"time"
)

// Unit progress status values. These are the literal values stored in the
// unit_progress column and exchanged with clients.
const (
	StatusPendente    = "Pendente"
	StatusCumprida    = "Cumprida"
	StatusNaoCumprida = "Não Cumprida"
	StatusAtrasada    = "Atrasada"
)

// Weekday labels a mission can be scheduled on.
const (
	DiaSegunda = "Segunda-feira"
	DiaTerca   = "Terça-feira"
	DiaQuarta  = "Quarta-feira"
	DiaQuinta  = "Quinta-feira"
	DiaSexta   = "Sexta-feira"
	DiaSabado  = "Sábado"
	DiaDomingo = "Domingo"
)

// ValidStatus reports whether s is one of the four progress statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPendente, StatusCumprida, StatusNaoCumprida, StatusAtrasada:
		return true
	}
	return false
}

// ValidDayOfWeek reports whether d is one of the seven weekday labels.
func ValidDayOfWeek(d string) bool {
	switch d {
	case DiaSegunda, DiaTerca, DiaQuarta, DiaQuinta, DiaSexta, DiaSabado, DiaDomingo:
		return true
	}
	return false
}

// SubmittedFile is the metadata kept for a unit's file submission. The file
// bytes themselves live wherever the upload handler put them; only the
// metadata travels with the mission.
type SubmittedFile struct {
	Name           string    `json:"name"`
	ContentType    string    `json:"contentType"`
	Size           int64     `json:"size"`
	URL            string    `json:"url,omitempty"`
	UploadedByID   string    `json:"uploadedById"`
	UploadedByName string    `json:"uploadedByName"`
	UploadedAt     time.Time `json:"uploadedAt"`
}

// UnitMissionProgress is one unit's completion record for one mission.
// UnitID is unique within a mission's progress list.
type UnitMissionProgress struct {
	UnitID            string         `json:"unitId"`
	Status            string         `json:"status"`
	SubmittedFile     *SubmittedFile `json:"submittedFile,omitempty"`
	SubmittedAt       *time.Time     `json:"submittedAt,omitempty"`
	LastUpdatedByID   string         `json:"lastUpdatedById,omitempty"`
	LastUpdatedByName string         `json:"lastUpdatedByName,omitempty"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// Mission is a recurring weekly task tracked per organizational unit.
type Mission struct {
	ID                     string                `json:"id"`
	Title                  string                `json:"title"`
	Description            string                `json:"description"`
	DayOfWeek              string                `json:"dayOfWeek"`
	TargetUnitIDs          []string              `json:"targetUnitIds"`
	UnitProgress           []UnitMissionProgress `json:"unitProgress"`
	RequiresFileSubmission bool                  `json:"requiresFileSubmission"`
	CreatedBy              string                `json:"createdBy"`
	CreatedByName          string                `json:"createdByName"`
	CreationDate           time.Time             `json:"creationDate"`
	LastUpdatedByID        string                `json:"lastUpdatedById,omitempty"`
	LastUpdatedByName      string                `json:"lastUpdatedByName,omitempty"`
	UpdatedAt              time.Time             `json:"updatedAt"`
	Revision               int64                 `json:"revision"`
}

// ProgressFor returns the progress entry for unitID, or nil.
func (m *Mission) ProgressFor(unitID string) *UnitMissionProgress {
	for i := range m.UnitProgress {
		if m.UnitProgress[i].UnitID == unitID {
			return &m.UnitProgress[i]
		}
	}
	return nil
}

// Targets reports whether unitID is one of the mission's target units.
func (m *Mission) Targets(unitID string) bool {
	for _, id := range m.TargetUnitIDs {
		if id == unitID {
			return true
		}
	}
	return false
}

// Mission DTOs
type CreateMissionRequest struct {
	Title                  string   `json:"title" validate:"required"`
	Description            string   `json:"description"`
	DayOfWeek              string   `json:"dayOfWeek" validate:"required"`
	TargetUnitIDs          []string `json:"targetUnitIds" validate:"required,min=1"`
	RequiresFileSubmission *bool    `json:"requiresFileSubmission"`
}

type UpdateMissionRequest struct {
	Title                  *string   `json:"title"`
	Description            *string   `json:"description"`
	DayOfWeek              *string   `json:"dayOfWeek"`
	TargetUnitIDs          *[]string `json:"targetUnitIds"`
	RequiresFileSubmission *bool     `json:"requiresFileSubmission"`
}

type UpdateUnitStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
