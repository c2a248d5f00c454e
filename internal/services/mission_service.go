// Package services holds the mission state container: the single in-memory
// source of truth for the running process. Mutations go store-first; the
// cache itself is only ever changed by events arriving on the realtime
// feed, including the echo of this process's own writes.
package services

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vduarte/missions-api/internal/models"
	"github.com/vduarte/missions-api/internal/progress"
	"github.com/vduarte/missions-api/internal/realtime"
	"github.com/vduarte/missions-api/internal/store"
)

var (
	// ErrNotAuthenticated is returned when a mutation is attempted without
	// an acting user.
	ErrNotAuthenticated = errors.New("no authenticated user for mutation")

	// ErrInvalidStatus is returned for a status outside the four known values.
	ErrInvalidStatus = errors.New("invalid unit progress status")
)

// Actor is the authenticated user a mutation is performed as.
type Actor = progress.Actor

type MissionService struct {
	store *store.MissionStore
	feed  *realtime.Feed

	mu       sync.RWMutex
	missions []*models.Mission // sorted by CreationDate descending
	byID     map[string]*models.Mission

	cancel func()
	now    func() time.Time
}

func NewMissionService(st *store.MissionStore, feed *realtime.Feed) *MissionService {
	return &MissionService{
		store: st,
		feed:  feed,
		byID:  make(map[string]*models.Mission),
		now:   time.Now,
	}
}

// Start subscribes to the realtime feed and hydrates the cache from the
// store. Subscription comes first so no event published during hydration is
// missed; the merge rules make the two paths converge regardless of order.
func (s *MissionService) Start() error {
	ch, cancel := s.feed.Subscribe(64)
	s.cancel = cancel
	go func() {
		for e := range ch {
			s.apply(e)
		}
	}()

	missions, err := s.store.GetAll()
	if err != nil {
		cancel()
		return err
	}
	s.mu.Lock()
	for _, m := range missions {
		if _, ok := s.byID[m.ID]; ok {
			continue // an event got here first; it is newer than our read
		}
		s.byID[m.ID] = m
		s.missions = append(s.missions, m)
	}
	s.resort()
	s.mu.Unlock()
	return nil
}

// Stop tears down the feed subscription.
func (s *MissionService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// apply merges one feed event into the cache. Merges are idempotent and
// safe against duplicate or reordered delivery.
func (s *MissionService) apply(e realtime.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e.Type {
	case realtime.EventInsert:
		if e.Mission == nil {
			log.Printf("missions: INSERT event without payload, skipping")
			return
		}
		if _, ok := s.byID[e.Mission.ID]; ok {
			return // duplicate delivery
		}
		s.byID[e.Mission.ID] = e.Mission
		s.missions = append(s.missions, e.Mission)
		s.resort()

	case realtime.EventUpdate:
		if e.Mission == nil {
			log.Printf("missions: UPDATE event without payload, skipping")
			return
		}
		// Append-or-replace: an UPDATE arriving before its INSERT still
		// lands in the cache.
		if _, ok := s.byID[e.Mission.ID]; ok {
			s.byID[e.Mission.ID] = e.Mission
			for i := range s.missions {
				if s.missions[i].ID == e.Mission.ID {
					s.missions[i] = e.Mission
					break
				}
			}
		} else {
			s.byID[e.Mission.ID] = e.Mission
			s.missions = append(s.missions, e.Mission)
		}
		s.resort()

	case realtime.EventDelete:
		if e.MissionID == "" {
			log.Printf("missions: DELETE event without mission id, skipping")
			return
		}
		if _, ok := s.byID[e.MissionID]; !ok {
			return
		}
		delete(s.byID, e.MissionID)
		for i := range s.missions {
			if s.missions[i].ID == e.MissionID {
				s.missions = append(s.missions[:i], s.missions[i+1:]...)
				break
			}
		}
	}
}

// resort keeps the list newest-creation-first. Callers hold s.mu.
func (s *MissionService) resort() {
	sort.SliceStable(s.missions, func(i, j int) bool {
		return s.missions[i].CreationDate.After(s.missions[j].CreationDate)
	})
}

// AddMission creates a mission with one Pendente progress entry per target
// unit and persists it. The cache picks it up via the INSERT echo.
func (s *MissionService) AddMission(req models.CreateMissionRequest, actor Actor) (*models.Mission, error) {
	if actor.ID == "" {
		log.Printf("missions: add rejected, no acting user")
		return nil, ErrNotAuthenticated
	}

	now := s.now()
	requires := true
	if req.RequiresFileSubmission != nil {
		requires = *req.RequiresFileSubmission
	}

	m := &models.Mission{
		ID:                     uuid.New().String(),
		Title:                  req.Title,
		Description:            req.Description,
		DayOfWeek:              req.DayOfWeek,
		TargetUnitIDs:          append([]string{}, req.TargetUnitIDs...),
		UnitProgress:           progress.ForUnits(req.TargetUnitIDs, now),
		RequiresFileSubmission: requires,
		CreatedBy:              actor.ID,
		CreatedByName:          actor.Name,
		CreationDate:           now,
		LastUpdatedByID:        actor.ID,
		LastUpdatedByName:      actor.Name,
		UpdatedAt:              now,
	}

	if err := s.store.Save(m, actor.ID, actor.Name); err != nil {
		return nil, err
	}
	s.feed.Publish(realtime.Event{Type: realtime.EventInsert, MissionID: m.ID, Mission: m})
	return m, nil
}

// UpdateMission merges partial fields onto the cached mission and persists
// the result. A mission that is not in the cache cannot be updated. When the
// target units change, the progress list is reconciled: new units get a
// Pendente entry, removed units lose theirs.
func (s *MissionService) UpdateMission(id string, req models.UpdateMissionRequest, actor Actor) (*models.Mission, error) {
	if actor.ID == "" {
		log.Printf("missions: update rejected, no acting user")
		return nil, ErrNotAuthenticated
	}

	cached, err := s.snapshot(id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	m := *cached
	if req.Title != nil {
		m.Title = *req.Title
	}
	if req.Description != nil {
		m.Description = *req.Description
	}
	if req.DayOfWeek != nil {
		m.DayOfWeek = *req.DayOfWeek
	}
	if req.RequiresFileSubmission != nil {
		m.RequiresFileSubmission = *req.RequiresFileSubmission
	}
	if req.TargetUnitIDs != nil {
		m.TargetUnitIDs = append([]string{}, (*req.TargetUnitIDs)...)
		m.UnitProgress = progress.Reconcile(cached.UnitProgress, m.TargetUnitIDs, now)
	}
	m.LastUpdatedByID = actor.ID
	m.LastUpdatedByName = actor.Name
	m.UpdatedAt = now

	if err := s.store.Save(&m, actor.ID, actor.Name); err != nil {
		return nil, err
	}
	s.feed.Publish(realtime.Event{Type: realtime.EventUpdate, MissionID: m.ID, Mission: &m})
	return &m, nil
}

// UpdateUnitStatus sets the progress status of one unit. The first
// transition into Cumprida stamps SubmittedAt; later transitions keep it.
func (s *MissionService) UpdateUnitStatus(missionID, unitID, status string, actor Actor) (*models.Mission, error) {
	if actor.ID == "" {
		log.Printf("missions: status change rejected, no acting user")
		return nil, ErrNotAuthenticated
	}
	if !models.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	cached, err := s.snapshot(missionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	m := *cached
	m.UnitProgress = progress.WithStatus(cached.UnitProgress, unitID, status, actor, now)
	m.LastUpdatedByID = actor.ID
	m.LastUpdatedByName = actor.Name
	m.UpdatedAt = now

	if err := s.store.Save(&m, actor.ID, actor.Name); err != nil {
		return nil, err
	}
	s.feed.Publish(realtime.Event{Type: realtime.EventUpdate, MissionID: m.ID, Mission: &m})
	return &m, nil
}

// SetUnitFile records a file submission for one unit and forces its status
// to Cumprida. SubmittedAt is overwritten on every upload.
func (s *MissionService) SetUnitFile(missionID, unitID string, file models.SubmittedFile, actor Actor) (*models.Mission, error) {
	if actor.ID == "" {
		log.Printf("missions: file submission rejected, no acting user")
		return nil, ErrNotAuthenticated
	}

	cached, err := s.snapshot(missionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	file.UploadedByID = actor.ID
	file.UploadedByName = actor.Name
	if file.UploadedAt.IsZero() {
		file.UploadedAt = now
	}

	m := *cached
	m.UnitProgress = progress.WithFile(cached.UnitProgress, unitID, file, actor, now)
	m.LastUpdatedByID = actor.ID
	m.LastUpdatedByName = actor.Name
	m.UpdatedAt = now

	if err := s.store.Save(&m, actor.ID, actor.Name); err != nil {
		return nil, err
	}
	s.feed.Publish(realtime.Event{Type: realtime.EventUpdate, MissionID: m.ID, Mission: &m})
	return &m, nil
}

// ClearUnitFile removes a unit's file submission and resets it to Pendente.
func (s *MissionService) ClearUnitFile(missionID, unitID string, actor Actor) (*models.Mission, error) {
	if actor.ID == "" {
		log.Printf("missions: file clear rejected, no acting user")
		return nil, ErrNotAuthenticated
	}

	cached, err := s.snapshot(missionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	m := *cached
	m.UnitProgress = progress.WithoutFile(cached.UnitProgress, unitID, actor, now)
	m.LastUpdatedByID = actor.ID
	m.LastUpdatedByName = actor.Name
	m.UpdatedAt = now

	if err := s.store.Save(&m, actor.ID, actor.Name); err != nil {
		return nil, err
	}
	s.feed.Publish(realtime.Event{Type: realtime.EventUpdate, MissionID: m.ID, Mission: &m})
	return &m, nil
}

// DeleteMission removes the mission remotely. The cache entry goes away
// when the DELETE echo arrives, not here.
func (s *MissionService) DeleteMission(id string, actor Actor) error {
	if actor.ID == "" {
		log.Printf("missions: delete rejected, no acting user")
		return ErrNotAuthenticated
	}
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.feed.Publish(realtime.Event{Type: realtime.EventDelete, MissionID: id})
	return nil
}

// GetMissionByID reads the cache only; it never touches the store.
func (s *MissionService) GetMissionByID(id string) (*models.Mission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[id]
	return m, ok
}

// GetAllMissions returns a snapshot of the cached list, newest first.
func (s *MissionService) GetAllMissions() []*models.Mission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Mission, len(s.missions))
	copy(out, s.missions)
	return out
}

// GetMissionsByUnitID returns cached missions targeting the given unit.
func (s *MissionService) GetMissionsByUnitID(unitID string) []*models.Mission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Mission
	for _, m := range s.missions {
		if m.Targets(unitID) {
			out = append(out, m)
		}
	}
	return out
}

// GetMissionsByDay returns cached missions scheduled on the given weekday.
func (s *MissionService) GetMissionsByDay(day string) []*models.Mission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Mission
	for _, m := range s.missions {
		if m.DayOfWeek == day {
			out = append(out, m)
		}
	}
	return out
}

// snapshot returns the cached mission for a mutation to build on. Cached
// missions are treated as immutable; mutations copy before changing.
func (s *MissionService) snapshot(id string) (*models.Mission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[id]
	if !ok {
		log.Printf("missions: %s not in cache, cannot mutate", id)
		return nil, store.ErrNotFound
	}
	return m, nil
}
