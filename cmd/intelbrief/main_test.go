package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_MissingConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	err := run(ctx, Opts{Config: "non-existent-config.yml"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to load config")
}

func TestRun_InvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("invalid: yaml: content: ["), 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	err := run(ctx, Opts{Config: cfgPath})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to load config")
}

// govUKServer serves one search result and its content api document
func govUKServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/search.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "home-office", r.URL.Query().Get("filter_organisations"))
		_, _ = fmt.Fprint(w, `{"results":[
			{"title":"Visa fees update","link":"/guidance/visa-fees","description":"Immigration fee changes",
			 "public_timestamp":"2025-06-01T09:00:00Z"},
			{"title":"Office canteen menu","link":"/guidance/canteen","description":"Lunch",
			 "public_timestamp":"2025-06-01T09:00:00Z"}]}`)
	})
	mux.HandleFunc("GET /api/content/guidance/visa-fees", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"title":"Visa fees update","description":"Immigration fee changes",
			"updated_at":"2025-06-01T10:00:00Z","details":{"body":"<p>Visa fees rise by <b>10%</b>.</p>"}}`)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func writeConfig(t *testing.T, govUK, statePath, extra string) string {
	t.Helper()
	cfg := fmt.Sprintf(`
timezone: Europe/London
always_send: false
keywords: [visa, immigration]
sources:
  govuk:
    base_url: %s
    organisations: [home-office]
    document_types: []
  feeds: []
  timeout: 5s
extraction:
  timeout: 5s
llm:
  api_key: ""
state:
  backend: file
  path: %s
smtp:
  host: ""
  mailing_list: ""
`, govUK, statePath) + extra
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func TestRun_ManualRun(t *testing.T) {
	ts := govUKServer(t)
	statePath := filepath.Join(t.TempDir(), "state", "state.json")
	cfgPath := writeConfig(t, ts.URL, statePath, "")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, run(ctx, Opts{Config: cfgPath, EnvFile: filepath.Join(t.TempDir(), "missing.env")}))

	data, err := os.ReadFile(statePath)
	require.NoError(t, err)
	var doc struct {
		Items map[string]struct {
			LastTitle string `json:"last_title"`
			Hint      string `json:"last_modified_hint"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Items, 1, "only the relevant item is recorded")
	for key, rec := range doc.Items {
		assert.Equal(t, ts.URL+"/guidance/visa-fees", key)
		assert.Equal(t, "Visa fees update", rec.LastTitle)
		assert.Equal(t, "2025-06-01T10:00:00Z", rec.Hint)
	}
}

func TestRun_DryRunKeepsState(t *testing.T) {
	ts := govUKServer(t)
	statePath := filepath.Join(t.TempDir(), "state.json")
	cfgPath := writeConfig(t, ts.URL, statePath, "")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, run(ctx, Opts{Config: cfgPath, DryRun: true}))
	_, err := os.Stat(statePath)
	assert.True(t, os.IsNotExist(err), "dry run must not write state")
}

func TestRun_ScheduledFromGithubEvent(t *testing.T) {
	ts := govUKServer(t)
	statePath := filepath.Join(t.TempDir(), "state.json")
	// a scheduled run outside the send window does nothing, so pick an hour that is not the current one
	hour := (time.Now().In(mustLoc(t, "Europe/London")).Hour() + 12) % 24
	cfgPath := writeConfig(t, ts.URL, statePath, fmt.Sprintf("send_hour_local: %d\n", hour))

	t.Setenv("GITHUB_EVENT_NAME", "schedule")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, run(ctx, Opts{Config: cfgPath}))
	_, err := os.Stat(statePath)
	assert.True(t, os.IsNotExist(err), "skipped run must not touch state")
}

func TestRun_ServeStartStop(t *testing.T) {
	ts := govUKServer(t)
	statePath := filepath.Join(t.TempDir(), "state.json")
	ln := freeAddr(t)
	cfgPath := writeConfig(t, ts.URL, statePath, fmt.Sprintf("server:\n  listen: %s\n  trigger_interval: 20m\n", ln))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, Opts{Config: cfgPath, Serve: true}) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln + "/api/v1/status")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		require.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))
		require.NoError(t, loadEnvFile(""))
	})

	t.Run("loads without overriding", func(t *testing.T) {
		path := filepath.Join(dir, ".env")
		require.NoError(t, os.WriteFile(path, []byte("INTELBRIEF_TEST_A=from-file\nINTELBRIEF_TEST_B=from-file\n"), 0o600))
		t.Setenv("INTELBRIEF_TEST_B", "from-env")
		t.Cleanup(func() { _ = os.Unsetenv("INTELBRIEF_TEST_A") })

		require.NoError(t, loadEnvFile(path))
		assert.Equal(t, "from-file", os.Getenv("INTELBRIEF_TEST_A"))
		assert.Equal(t, "from-env", os.Getenv("INTELBRIEF_TEST_B"))
	})
}

func TestSetupLog(t *testing.T) {
	assert.NotPanics(t, func() { setupLog(false, true) })
	assert.NotPanics(t, func() { setupLog(true, false, "secret", "") })
}

func freeAddr(t *testing.T) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	return addr
}

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}
