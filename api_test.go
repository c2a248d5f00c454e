package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vduarte/missions-api/internal/database"
	"github.com/vduarte/missions-api/internal/handlers"
	"github.com/vduarte/missions-api/internal/models"
	"github.com/vduarte/missions-api/internal/realtime"
	"github.com/vduarte/missions-api/internal/routes"
	"github.com/vduarte/missions-api/internal/services"
	"github.com/vduarte/missions-api/internal/store"
)

type apiEnv struct {
	app *fiber.App
	svc *services.MissionService

	adminToken string
	userToken  string
}

func setupAPI(t *testing.T) *apiEnv {
	t.Helper()

	if os.Getenv("JWT_SECRET") == "" {
		_ = os.Setenv("JWT_SECRET", "test-secret")
	}

	dsn := fmt.Sprintf("file:api_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	database.DB = db
	if err := database.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	feed := realtime.NewFeed()
	svc := services.NewMissionService(store.NewMissionStore(db), feed)
	if err := svc.Start(); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)

	hub := handlers.NewHub()
	t.Cleanup(hub.Run(feed))

	app := fiber.New()
	routes.Setup(app, handlers.NewMissionHandler(svc), hub)

	env := &apiEnv{app: app, svc: svc}

	// The first admin is seeded directly; registration never grants admin.
	env.adminToken = env.register(t, "admin@qg.mil.br", "Comando", true)
	env.userToken = env.register(t, "sgt@qg.mil.br", "Sargento Silva", false)
	return env
}

func (e *apiEnv) register(t *testing.T, email, name string, admin bool) string {
	t.Helper()

	resp := e.request(t, "POST", "/api/auth/register", map[string]interface{}{
		"email": email, "password": "pass1234", "name": name,
	}, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d", email, resp.StatusCode)
	}

	var auth models.AuthResponse
	decode(t, resp, &auth)

	if admin {
		if err := database.DB.Model(&models.User{}).
			Where("id = ?", auth.User.ID).Update("is_admin", true).Error; err != nil {
			t.Fatalf("promote admin: %v", err)
		}
		// Re-login so the token carries the admin claim.
		resp = e.request(t, "POST", "/api/auth/login", map[string]interface{}{
			"email": email, "password": "pass1234",
		}, "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("login %s: status %d", email, resp.StatusCode)
		}
		decode(t, resp, &auth)
	}
	return auth.Token
}

func (e *apiEnv) request(t *testing.T, method, path string, body interface{}, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func (e *apiEnv) createMission(t *testing.T, units []string) models.Mission {
	t.Helper()

	resp := e.request(t, "POST", "/api/missions", map[string]interface{}{
		"title":         "Relatório semanal",
		"description":   "Enviar até o fim do expediente",
		"dayOfWeek":     models.DiaSegunda,
		"targetUnitIds": units,
	}, e.adminToken)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create mission: status %d", resp.StatusCode)
	}

	var m models.Mission
	decode(t, resp, &m)
	waitForCached(t, e.svc, m.ID)
	return m
}

// waitForCached blocks until the mission's echo lands in the cache. The
// write path returns before the cache merge happens.
func waitForCached(t *testing.T, svc *services.MissionService, id string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := svc.GetMissionByID(id); ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("mission %s never reached the cache", id)
}

// waitForGone blocks until the mission's DELETE echo empties the cache.
func waitForGone(t *testing.T, svc *services.MissionService, id string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := svc.GetMissionByID(id); !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("mission %s never left the cache", id)
}

func TestMissionLifecycle(t *testing.T) {
	env := setupAPI(t)
	m := env.createMission(t, []string{"u1", "u2"})

	if len(m.UnitProgress) != 2 {
		t.Fatalf("expected 2 progress entries, got %d", len(m.UnitProgress))
	}
	for _, p := range m.UnitProgress {
		if p.Status != models.StatusPendente {
			t.Errorf("unit %s must start Pendente, got %s", p.UnitID, p.Status)
		}
	}

	// Listing requires auth.
	resp := env.request(t, "GET", "/api/missions", nil, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated list: status %d", resp.StatusCode)
	}

	resp = env.request(t, "GET", "/api/missions", nil, env.userToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list missions: status %d", resp.StatusCode)
	}
	var listed []models.Mission
	decode(t, resp, &listed)
	if len(listed) != 1 || listed[0].ID != m.ID {
		t.Fatalf("listed %d missions", len(listed))
	}

	// Non-admins cannot create missions.
	resp = env.request(t, "POST", "/api/missions", map[string]interface{}{
		"title": "x", "dayOfWeek": models.DiaTerca, "targetUnitIds": []string{"u1"},
	}, env.userToken)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-admin create: status %d", resp.StatusCode)
	}

	// A normal user can report their unit's status.
	resp = env.request(t, "PUT", "/api/missions/"+m.ID+"/units/u1/status", map[string]interface{}{
		"status": models.StatusCumprida,
	}, env.userToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status: status %d", resp.StatusCode)
	}
	var updated models.Mission
	decode(t, resp, &updated)
	p := updated.ProgressFor("u1")
	if p.Status != models.StatusCumprida || p.SubmittedAt == nil {
		t.Errorf("u1 progress after fulfillment: %+v", p)
	}
	if p.SubmittedFile != nil {
		t.Errorf("status-only fulfillment must not carry a file")
	}

	// Delete is admin-only and removes the mission everywhere.
	resp = env.request(t, "DELETE", "/api/missions/"+m.ID, nil, env.adminToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}
	waitForGone(t, env.svc, m.ID)
	resp = env.request(t, "GET", "/api/missions/"+m.ID, nil, env.userToken)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleted mission still served: status %d", resp.StatusCode)
	}
}

func TestMissionValidation(t *testing.T) {
	env := setupAPI(t)

	// Unknown weekday label.
	resp := env.request(t, "POST", "/api/missions", map[string]interface{}{
		"title": "x", "dayOfWeek": "Someday", "targetUnitIds": []string{"u1"},
	}, env.adminToken)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad weekday: status %d", resp.StatusCode)
	}

	// Missing target units.
	resp = env.request(t, "POST", "/api/missions", map[string]interface{}{
		"title": "x", "dayOfWeek": models.DiaSegunda,
	}, env.adminToken)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("no units: status %d", resp.StatusCode)
	}

	// Unknown status value.
	m := env.createMission(t, []string{"u1"})
	resp = env.request(t, "PUT", "/api/missions/"+m.ID+"/units/u1/status", map[string]interface{}{
		"status": "Done",
	}, env.userToken)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad status: status %d", resp.StatusCode)
	}
}

func TestUnitMissionFileSubmission(t *testing.T) {
	env := setupAPI(t)
	tmp := t.TempDir()
	_ = os.Setenv("UPLOADS_DIR", tmp)
	defer os.Unsetenv("UPLOADS_DIR")

	m := env.createMission(t, []string{"u1"})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "relatorio.pdf")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write([]byte("%PDF-1.4 fake"))
	_ = w.Close()

	req := httptest.NewRequest("POST", "/api/missions/"+m.ID+"/units/u1/file", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+env.userToken)

	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("submit file: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit file: status %d", resp.StatusCode)
	}

	var updated models.Mission
	decode(t, resp, &updated)
	p := updated.ProgressFor("u1")
	if p.Status != models.StatusCumprida {
		t.Errorf("upload must force Cumprida, got %s", p.Status)
	}
	if p.SubmittedFile == nil || p.SubmittedFile.Name != "relatorio.pdf" {
		t.Fatalf("file metadata missing: %+v", p.SubmittedFile)
	}
	if p.SubmittedFile.UploadedByName != "Sargento Silva" {
		t.Errorf("uploader name = %q", p.SubmittedFile.UploadedByName)
	}

	// Wait for the UPDATE echo so the clear builds on the new revision.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c, ok := env.svc.GetMissionByID(m.ID); ok && c.ProgressFor("u1").SubmittedFile != nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Clearing the submission resets the unit.
	resp = env.request(t, "DELETE", "/api/missions/"+m.ID+"/units/u1/file", nil, env.userToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("clear file: status %d", resp.StatusCode)
	}
	// Decode into a fresh value: reusing `updated` would leave the stale
	// SubmittedFile pointer in place, since the cleared response omits the
	// field and json.Unmarshal does not zero reused slice elements.
	var cleared models.Mission
	decode(t, resp, &cleared)
	p = cleared.ProgressFor("u1")
	if p.Status != models.StatusPendente || p.SubmittedFile != nil {
		t.Errorf("clear must reset unit: %+v", p)
	}
}

func TestUnitsEndpoints(t *testing.T) {
	env := setupAPI(t)

	resp := env.request(t, "POST", "/api/units", map[string]interface{}{
		"name": "1ª Companhia",
	}, env.adminToken)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create unit: status %d", resp.StatusCode)
	}
	var unit models.Unit
	decode(t, resp, &unit)
	if unit.ID == "" || unit.Name != "1ª Companhia" {
		t.Fatalf("unit = %+v", unit)
	}

	// Name resolution by id.
	resp = env.request(t, "GET", "/api/units/"+unit.ID, nil, env.userToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get unit: status %d", resp.StatusCode)
	}

	// Missions filtered by unit.
	m := env.createMission(t, []string{unit.ID, "other"})
	resp = env.request(t, "GET", "/api/units/"+unit.ID+"/missions", nil, env.userToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unit missions: status %d", resp.StatusCode)
	}
	var missions []models.Mission
	decode(t, resp, &missions)
	if len(missions) != 1 || missions[0].ID != m.ID {
		t.Errorf("expected the mission targeting the unit, got %d", len(missions))
	}
}
