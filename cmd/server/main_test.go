package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := rootCmd()
	want := map[string]bool{"serve": false, "migrate": false, "user": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestMigrateAndCreateUser_SQLite(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("ENV", "test")

	root := rootCmd()
	root.SetArgs([]string{"migrate"})
	if err := root.Execute(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	create := func() error {
		root := rootCmd()
		root.SetArgs([]string{"user", "create", "--role", "doctor", "--name", "Dr. Lee",
			"--email", "lee@clinic.test", "--password", "pw123", "--specialization", "Dentistry"})
		return root.Execute()
	}
	if err := create(); err != nil {
		t.Fatalf("user create: %v", err)
	}
	err := create()
	if err == nil || !strings.Contains(err.Error(), "already") {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
}

func TestNewEcho_PanicIsLogged(t *testing.T) {
	var buf bytes.Buffer
	e := newEcho(zerolog.New(&buf))
	e.GET("/boom", func(echo.Context) error { panic("boom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), `"message":"request"`) || !strings.Contains(buf.String(), `"status":500`) {
		t.Fatalf("expected a 500 access-log line, got %q", buf.String())
	}
}

func TestNewEcho_RealIPIgnoresForwardedFor(t *testing.T) {
	e := newEcho(zerolog.Nop())
	var seen string
	e.GET("/ip", func(c echo.Context) error {
		seen = c.RealIP()
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set(echo.HeaderXForwardedFor, "198.51.100.7")
	e.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "10.0.0.1" {
		t.Fatalf("expected direct peer 10.0.0.1, got %q", seen)
	}
}
