package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// run executes the CLI against a SQLite file and returns stdout.
func run(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--store", "sqlite", "--db", db, "--offline"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// runOnline executes the CLI with the profile service at baseURL.
func runOnline(t *testing.T, baseURL, db, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LEARN_PROFILE_ENABLED", "true")
	t.Setenv("LEARN_PROFILE_BASE_URL", baseURL)

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--store", "sqlite", "--db", db}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// newProfileServer fakes the account service with one account.
func newProfileServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email string `json:"email"`
			Role  struct {
				Name string `json:"name"`
			} `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Role.Name != "user" {
			t.Errorf("unexpected register body: %+v, %v", body, err)
		}
		w.Write([]byte(`{"data":{}}`))
	})
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":{"message":"Invalid credentials"}}}`))
			return
		}
		w.Write([]byte(`{"data":{"access_token":"tok-123"}}`))
	})
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data":{"id":"u1","firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","role":{"name":"user"}}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginWhoAmILogout(t *testing.T) {
	srv := newProfileServer(t)
	db := filepath.Join(t.TempDir(), "learn.db")

	_, err := runOnline(t, srv.URL, db, "", "login", "--email", "ada@example.com", "--password", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid credentials")

	out, err := runOnline(t, srv.URL, db, "secret\n", "login", "--email", "ada@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Ada Lovelace")

	// The stored token restores the session on the next run.
	out, err = runOnline(t, srv.URL, db, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Lovelace <ada@example.com>")

	out, err = runOnline(t, srv.URL, db, "", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Learner:           Ada Lovelace")

	out, err = runOnline(t, srv.URL, db, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out.")

	_, err = runOnline(t, srv.URL, db, "", "whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in")
}

func TestSignUp(t *testing.T) {
	srv := newProfileServer(t)
	db := filepath.Join(t.TempDir(), "learn.db")

	out, err := runOnline(t, srv.URL, db, "",
		"signup", "--first-name", "Ada", "--last-name", "Lovelace",
		"--email", "ada@example.com", "--password", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome, Ada Lovelace")
}

func TestLogin_Offline(t *testing.T) {
	db := filepath.Join(t.TempDir(), "learn.db")

	_, err := run(t, db, "login", "--email", "ada@example.com", "--password", "secret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile service is disabled")
}

func TestLessonAndQuizFlow(t *testing.T) {
	db := filepath.Join(t.TempDir(), "learn.db")

	out, err := run(t, db, "quiz", "submit", "1", "--answer", "1=15")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
	assert.Empty(t, out)

	for _, lesson := range []string{"1", "2", "3"} {
		out, err := run(t, db, "lesson", "complete", "mathematics", "1", lesson, "--minutes", "40")
		require.NoError(t, err)
		assert.Contains(t, out, "Completed lesson "+lesson)
	}

	out, err = run(t, db, "lesson", "complete", "mathematics", "1", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "already completed")

	out, err = run(t, db, "quiz", "submit", "1", "--answer", "1=15", "--answer", "2=Mean", "--answer", "3=7")
	require.NoError(t, err)
	assert.Contains(t, out, "Passed: 75/100 points (75%)")
	assert.Contains(t, out, "+50 XP")

	out, err = run(t, db, "quiz", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "75%")

	out, err = run(t, db, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total XP:          50")
	assert.Contains(t, out, "Lessons completed: 3")
	assert.Contains(t, out, "Hours learned:     2.0")
}

func TestLockedLesson(t *testing.T) {
	db := filepath.Join(t.TempDir(), "learn.db")

	_, err := run(t, db, "lesson", "complete", "mathematics", "1", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")

	_, err = run(t, db, "lesson", "read", "mathematics", "1", "2")
	require.Error(t, err)

	out, err := run(t, db, "lesson", "read", "mathematics", "1", "1")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestTopicCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "learn.db")

	out, err := run(t, db, "topic", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "mathematics-1")
	assert.Contains(t, out, "english-1")

	out, err = run(t, db, "topic", "show", "english", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Proper Nouns")
	assert.Contains(t, out, "(locked)")
	assert.Contains(t, out, "Resume at lesson 1")
}

func TestCheckInCertificateAndReset(t *testing.T) {
	db := filepath.Join(t.TempDir(), "learn.db")

	_, err := run(t, db, "checkin")
	require.NoError(t, err)

	out, err := run(t, db, "certificate")
	require.NoError(t, err)
	assert.Contains(t, out, "Certificates earned: 1")

	_, err = run(t, db, "reset")
	require.Error(t, err)

	out, err = run(t, db, "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Progress reset.")

	out, err = run(t, db, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Certificates:      0")
}

func TestOnboard(t *testing.T) {
	db := filepath.Join(t.TempDir(), "learn.db")

	out, err := run(t, db, "onboard")
	require.NoError(t, err)
	assert.Contains(t, out, "Onboarding complete.")

	out, err = run(t, db, "onboard", "--reset")
	require.NoError(t, err)
	assert.Contains(t, out, "show again")
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "learn.db")
	path := filepath.Join(dir, "report.xlsx")

	out, err := run(t, db, "export", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Summary")
}

func TestParseAnswers(t *testing.T) {
	got, err := parseAnswers([]string{"1=15", " 2 =Mean", "3=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "15", 2: "Mean", 3: "a=b"}, got)

	_, err = parseAnswers([]string{"nope"})
	assert.Error(t, err)

	_, err = parseAnswers([]string{"x=1"})
	assert.Error(t, err)
}
