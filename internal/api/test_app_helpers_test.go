package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/roomdesk/internal/db"
	"github.com/terraincognita07/roomdesk/internal/logging"
	"github.com/terraincognita07/roomdesk/internal/services"
)

const testPassword = "Passw0rdOk"

var apiTestNow = time.Date(2030, time.June, 1, 9, 0, 0, 0, time.UTC)

type testApp struct {
	app          *fiber.App
	repositories *db.Repositories
}

func newTestApp(t *testing.T, rooms int) testApp {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "roomdesk-api-test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("open sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	now := func() time.Time { return apiTestNow }
	logger := logging.Discard()
	repositories := db.NewRepositories(database)

	auth := services.NewAuthService(repositories.Users, nil, services.AuthOptions{
		SecretKey:     []byte("0123456789abcdef0123456789abcdef"),
		PublicBaseURL: "http://localhost:8080",
	}, now, logger)
	reservations := services.NewReservationService(
		repositories.Reservations,
		services.NewAllocator(rooms),
		services.DefaultReservationLeadTime,
		time.UTC,
		now,
		logger,
	)

	handler, err := NewHandler(auth, reservations, Options{RequestTimeout: 5 * time.Second, Logger: logger, Now: now})
	if err != nil {
		t.Fatalf("init handler: %v", err)
	}

	app := fiber.New()
	RegisterRoutes(app, handler)
	return testApp{app: app, repositories: repositories}
}

func (ta testApp) do(t *testing.T, method string, path string, body any, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := ta.app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() {
		_ = response.Body.Close()
	})
	return response
}

// registerAndLogin creates an account and returns its bearer token.
func (ta testApp) registerAndLogin(t *testing.T, username string) string {
	t.Helper()

	response := ta.do(t, http.MethodPost, "/api/auth/register", fiber.Map{
		"username":         username,
		"email":            username + "@example.com",
		"password":         testPassword,
		"confirm_password": testPassword,
	}, "")
	if response.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d", username, response.StatusCode)
	}

	response = ta.do(t, http.MethodPost, "/api/auth/login", fiber.Map{"login": username, "password": testPassword}, "")
	if response.StatusCode != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d", username, response.StatusCode)
	}
	session := sessionView{}
	decodeBody(t, response, &session)
	if session.Token == "" {
		t.Fatalf("login %s: expected token", username)
	}
	return session.Token
}

func (ta testApp) userID(t *testing.T, login string) uint {
	t.Helper()
	user, err := ta.repositories.Users.FindByLogin(context.Background(), login)
	if err != nil {
		t.Fatalf("find user %s: %v", login, err)
	}
	return user.ID
}

func decodeBody(t *testing.T, response *http.Response, target any) {
	t.Helper()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	if err := json.Unmarshal(payload, target); err != nil {
		t.Fatalf("decode response body %q: %v", payload, err)
	}
}

func readAPIError(t *testing.T, response *http.Response) string {
	t.Helper()

	payload := map[string]string{}
	decodeBody(t, response, &payload)
	return payload["error"]
}

func responseCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func reservationBody(date string, start string, end string) fiber.Map {
	return fiber.Map{"date": date, "start_time": start, "end_time": end}
}
