package profile

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Login(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type: %s", r.Header.Get("Content-Type"))
		}

		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "ada@example.com" || body["password"] != "secret" {
			t.Errorf("unexpected body: %+v", body)
		}

		w.Write([]byte(`{"data":{"access_token":"tok-123"}}`))
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL + "/"))
	token, err := c.Login(context.Background(), "ada@example.com", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token != "tok-123" {
		t.Errorf("token = %q, want tok-123", token)
	}
}

func TestClient_Login_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":{"message":"Invalid credentials"}}}`))
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))
	_, err := c.Login(context.Background(), "ada@example.com", "wrong")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Login() error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized || apiErr.Message != "Invalid credentials" {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestClient_ErrorFallbackMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))
	err := c.Register(context.Background(), RegisterRequest{Email: "x@example.com"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Register() error = %v, want *APIError", err)
	}
	if apiErr.Message != "Signup failed" {
		t.Errorf("Message = %q, want Signup failed", apiErr.Message)
	}
}

func TestClient_RegisterForcesUserRole(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Role.Name != "user" {
			t.Errorf("role = %q, want user", req.Role.Name)
		}
		if r.URL.Path != "/auth/register" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"u1"}}`))
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))
	err := c.Register(context.Background(), RegisterRequest{
		FirstName: "Ada",
		Email:     "ada@example.com",
		Password:  "secret",
		Role:      Role{Name: "admin"},
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
}

func TestClient_Profile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"data":{"id":"u1","firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","role":{"name":"user"}}}`))
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL), WithTimeout(5*time.Second))
	u, err := c.Profile(context.Background(), "tok-123")
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if u.ID != "u1" || u.DisplayName() != "Ada Lovelace" {
		t.Errorf("user = %+v", u)
	}
}

func TestClient_ProfileWithoutEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"u2","email":"grace@example.com"}`))
	}))
	defer server.Close()

	u, err := NewClient(WithBaseURL(server.URL)).Profile(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if u.ID != "u2" || u.DisplayName() != "grace@example.com" {
		t.Errorf("user = %+v", u)
	}
}

func TestClient_ProfileNeedsToken(t *testing.T) {
	_, err := NewClient().Profile(context.Background(), "")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Profile(\"\") error = %v, want ErrUnauthenticated", err)
	}
}
