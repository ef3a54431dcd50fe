package handlers_test

import (
	"context"
	"testing"
)

func TestLoginSuccess(t *testing.T) {
	ts := newTestServer()
	ts.registerUser(t)

	status, body := doJSON(t, ts.app, "POST", "/api/v1/login", "",
		`{"session":{"email":"staff@example.com","password":"password123"}}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	decoded := decodeBody(t, body)
	statusObj, ok := decoded["status"].(map[string]any)
	if !ok {
		t.Fatalf("missing status object: %s", body)
	}
	if statusObj["message"] != "Logged in successfully." {
		t.Fatalf("unexpected status message: %v", statusObj["message"])
	}
	token, ok := decoded["token"].(string)
	if !ok || token == "" {
		t.Fatalf("expected a token in the response: %s", body)
	}
	data, ok := decoded["data"].(map[string]any)
	if !ok || data["email"] != "staff@example.com" {
		t.Fatalf("unexpected data: %s", body)
	}

	// The issued token must pass the gate.
	if _, err := ts.auth.Authenticate(context.Background(), token); err != nil {
		t.Fatalf("issued token rejected: %v", err)
	}
}

func TestLoginAcceptsFlatPayload(t *testing.T) {
	ts := newTestServer()
	ts.registerUser(t)

	status, body := doJSON(t, ts.app, "POST", "/api/v1/login", "",
		`{"email":"staff@example.com","password":"password123"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
}

func TestLoginFailuresShareOneBody(t *testing.T) {
	ts := newTestServer()
	ts.registerUser(t)

	wrongStatus, wrongBody := doJSON(t, ts.app, "POST", "/api/v1/login", "",
		`{"session":{"email":"staff@example.com","password":"bad-password"}}`)
	unknownStatus, unknownBody := doJSON(t, ts.app, "POST", "/api/v1/login", "",
		`{"session":{"email":"nobody@example.com","password":"password123"}}`)

	if wrongStatus != 401 || unknownStatus != 401 {
		t.Fatalf("expected 401 for both, got %d and %d", wrongStatus, unknownStatus)
	}
	if wrongBody != unknownBody {
		t.Fatalf("failure bodies must match: %s vs %s", wrongBody, unknownBody)
	}
	if wrongBody != `{"error":"Invalid email or password."}` {
		t.Fatalf("unexpected body: %s", wrongBody)
	}
}

func TestRegisterEndpoint(t *testing.T) {
	ts := newTestServer()

	status, body := doJSON(t, ts.app, "POST", "/api/v1/register", "",
		`{"user":{"email":"new@example.com","password":"password123"}}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	decoded := decodeBody(t, body)
	statusObj, ok := decoded["status"].(map[string]any)
	if !ok || statusObj["message"] != "Signed up successfully." {
		t.Fatalf("unexpected status: %s", body)
	}
	if token, ok := decoded["token"].(string); !ok || token == "" {
		t.Fatalf("expected a token: %s", body)
	}
}

func TestRegisterValidationFailure(t *testing.T) {
	ts := newTestServer()

	status, body := doJSON(t, ts.app, "POST", "/api/v1/register", "",
		`{"user":{"email":"","password":"password123"}}`)
	if status != 422 {
		t.Fatalf("expected 422, got %d: %s", status, body)
	}
	if body != `{"status":{"message":"Email can't be blank"}}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ts := newTestServer()
	ts.registerUser(t)

	status, body := doJSON(t, ts.app, "POST", "/api/v1/register", "",
		`{"user":{"email":"staff@example.com","password":"password123"}}`)
	if status != 422 {
		t.Fatalf("expected 422, got %d: %s", status, body)
	}
	if body != `{"status":{"message":"Email has already been taken"}}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestLogoutWithActiveSession(t *testing.T) {
	ts := newTestServer()
	token := ts.registerUser(t)

	status, body := doJSON(t, ts.app, "DELETE", "/api/v1/logout", token, "")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	if body != `{"message":"Logged out successfully.","status":200}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestLogoutWithoutSession(t *testing.T) {
	ts := newTestServer()

	status, body := doJSON(t, ts.app, "DELETE", "/api/v1/logout", "", "")
	if status != 401 {
		t.Fatalf("expected 401, got %d: %s", status, body)
	}
	if body != `{"message":"Couldn't find an active session.","status":401}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestLogoutWithGarbageToken(t *testing.T) {
	ts := newTestServer()

	status, body := doJSON(t, ts.app, "DELETE", "/api/v1/logout", "not-a-token", "")
	if status != 401 {
		t.Fatalf("expected 401, got %d: %s", status, body)
	}
	if body != `{"message":"Couldn't find an active session.","status":401}` {
		t.Fatalf("unexpected body: %s", body)
	}
}
