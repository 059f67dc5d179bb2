package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/domain"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/pipeline"
	"github.com/draftcoreservices-svg/immigration-intel-brief/server/mocks"
)

func testParams() Params {
	return Params{Listen: ":8080", Timeout: 30 * time.Second, Version: "1.2.3"}
}

func emptyPipeline() *mocks.PipelineMock {
	return &mocks.PipelineMock{
		LastResultFunc: func() *pipeline.Result { return nil },
		LastDigestFunc: func() (domain.Digest, bool) { return domain.Digest{}, false },
		RecordsFunc:    func(context.Context) domain.Records { return domain.Records{} },
	}
}

func TestServer_New(t *testing.T) {
	srv := New(emptyPipeline(), testParams())
	assert.NotNil(t, srv)
	assert.Equal(t, "1.2.3", srv.version)
	assert.Equal(t, ":8080", srv.listen)
	assert.False(t, srv.debug)
}

func TestServer_Run(t *testing.T) {
	// find free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	params := testParams()
	params.Listen = fmt.Sprintf("127.0.0.1:%d", port)
	srv := New(emptyPipeline(), params)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/ping", port))
		return err == nil
	}, time.Second, 10*time.Millisecond)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))
	assert.Equal(t, "intelbrief", resp.Header.Get("App-Name"))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_statusHandler(t *testing.T) {
	t.Run("before first run", func(t *testing.T) {
		srv := New(emptyPipeline(), testParams())
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/status", http.NoBody))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		var status map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.Equal(t, "ok", status["status"])
		assert.Equal(t, "1.2.3", status["version"])
		assert.NotEmpty(t, status["time"])
		assert.NotContains(t, status, "last_run")
	})

	t.Run("with last run", func(t *testing.T) {
		p := emptyPipeline()
		p.LastResultFunc = func() *pipeline.Result {
			return &pipeline.Result{
				Trigger:   pipeline.TriggerScheduled,
				StartedAt: time.Date(2025, 6, 2, 6, 5, 0, 0, time.UTC),
				Digest:    domain.Digest{Date: "2025-06-02"},
				Stats:     domain.Stats{Fetched: 10, Candidates: 4, New: 2, Updated: 1, Unchanged: 1},
				Delivered: true,
				SaveErr:   errors.New("disk full"),
			}
		}
		srv := New(p, testParams())
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/status", http.NoBody))
		require.Equal(t, http.StatusOK, w.Code)

		var status struct {
			LastRun struct {
				Trigger   string       `json:"trigger"`
				Date      string       `json:"date"`
				Stats     domain.Stats `json:"stats"`
				Delivered bool         `json:"delivered"`
				SaveError string       `json:"save_error"`
			} `json:"last_run"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.Equal(t, "scheduled", status.LastRun.Trigger)
		assert.Equal(t, "2025-06-02", status.LastRun.Date)
		assert.Equal(t, 2, status.LastRun.Stats.New)
		assert.True(t, status.LastRun.Delivered)
		assert.Equal(t, "disk full", status.LastRun.SaveError)
	})
}

func TestServer_stateHandler(t *testing.T) {
	p := emptyPipeline()
	p.RecordsFunc = func(context.Context) domain.Records {
		return domain.Records{"https://www.gov.uk/a": {FirstSeen: "2025-06-01", LastSeen: "2025-06-02",
			LastContentFingerprint: "abc", LastTitle: "A", LastSource: "GOV.UK (home-office)"}}
	}
	srv := New(p, testParams())
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/state", http.NoBody))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count int                           `json:"count"`
		Items map[string]domain.StateRecord `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "2025-06-02", resp.Items["https://www.gov.uk/a"].LastSeen)
	assert.NotContains(t, w.Body.String(), "last_modified_hint")
}

func TestServer_runHandler(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		p := emptyPipeline()
		p.RunFunc = func(ctx context.Context, trigger pipeline.Trigger) (pipeline.Result, error) {
			return pipeline.Result{Trigger: trigger, Digest: domain.Digest{Date: "2025-06-02"},
				Stats: domain.Stats{New: 3}}, nil
		}
		srv := New(p, testParams())
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/run", http.NoBody))
		require.Equal(t, http.StatusOK, w.Code)

		require.Len(t, p.RunCalls(), 1)
		assert.Equal(t, pipeline.TriggerManual, p.RunCalls()[0].Trigger)
		assert.Contains(t, w.Body.String(), `"date":"2025-06-02"`)
		assert.Contains(t, w.Body.String(), `"new":3`)
	})

	t.Run("busy", func(t *testing.T) {
		p := emptyPipeline()
		p.RunFunc = func(context.Context, pipeline.Trigger) (pipeline.Result, error) {
			return pipeline.Result{}, pipeline.ErrBusy
		}
		srv := New(p, testParams())
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/run", http.NoBody))
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.JSONEq(t, `{"error":"run already in progress"}`, w.Body.String())
	})

	t.Run("failed", func(t *testing.T) {
		p := emptyPipeline()
		p.RunFunc = func(context.Context, pipeline.Trigger) (pipeline.Result, error) {
			return pipeline.Result{}, errors.New("run interrupted: context canceled")
		}
		srv := New(p, testParams())
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/run", http.NoBody))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "run interrupted")
	})
}

func TestServer_rssHandler(t *testing.T) {
	t.Run("latest digest", func(t *testing.T) {
		p := emptyPipeline()
		p.LastDigestFunc = func() (domain.Digest, bool) {
			link := "https://www.gov.uk/guidance/visa-fees"
			return domain.Digest{Date: "2025-06-02", New: []domain.DigestEntry{{
				Change: domain.Change{
					Candidate: domain.Candidate{
						Item:  domain.Item{Source: "GOV.UK (home-office)", Title: "Visa fees", URL: link},
						Key:   domain.CanonicalKey{ID: link, URL: link},
						Score: 4,
					},
					Status: domain.StatusNew,
				},
				Summary: domain.Summary{Text: "- fees rise"},
			}}}, true
		}
		p.LastResultFunc = func() *pipeline.Result {
			return &pipeline.Result{StartedAt: time.Date(2025, 6, 2, 6, 5, 0, 0, time.UTC)}
		}
		srv := New(p, testParams())

		req := httptest.NewRequest("GET", "/rss", http.NoBody)
		req.Host = "brief.example.com"
		req.Header.Set("X-Forwarded-Proto", "https")
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/rss+xml; charset=utf-8", w.Header().Get("Content-Type"))
		body := w.Body.String()
		assert.Contains(t, body, `<title>Immigration Intelligence Brief — 2025-06-02</title>`)
		assert.Contains(t, body, `<title>[NEW] Visa fees</title>`)
		assert.Contains(t, body, `href="https://brief.example.com/rss"`)
		assert.Contains(t, body, `<lastBuildDate>Mon, 02 Jun 2025 06:05:00 +0000</lastBuildDate>`)
	})

	t.Run("before first run", func(t *testing.T) {
		srv := New(emptyPipeline(), testParams())
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, httptest.NewRequest("GET", "/rss", http.NoBody))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.HasPrefix(w.Body.String(), "<?xml"))
		assert.NotContains(t, w.Body.String(), "<item>")
	})
}

func TestRenderJSON(t *testing.T) {
	data := map[string]string{
		"message": "test",
		"status":  "ok",
	}

	req := httptest.NewRequest("GET", "/test", http.NoBody)
	w := httptest.NewRecorder()

	RenderJSON(w, req, http.StatusOK, data)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, data, result)
}

func TestRenderError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		want string
	}{
		{name: "with error", err: errors.New("boom"), code: http.StatusBadRequest, want: `{"error":"boom"}`},
		{name: "nil error", err: nil, code: http.StatusInternalServerError, want: `{"error":"unknown error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RenderError(w, httptest.NewRequest("GET", "/", http.NoBody), tt.err, tt.code)
			assert.Equal(t, tt.code, w.Code)
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}
}
