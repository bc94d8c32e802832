package schedule

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingObserver struct {
	mu      sync.Mutex
	results []bool
}

func (o *recordingObserver) SunsetLookup(_ time.Duration, success bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, success)
}

// newSunsetServer serves a canned response and returns a getter for the last query
func newSunsetServer(t *testing.T, status int, body string) (*httptest.Server, func() url.Values) {
	t.Helper()
	var mu sync.Mutex
	var query url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		query = r.URL.Query()
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, func() url.Values {
		mu.Lock()
		defer mu.Unlock()
		return query
	}
}

func TestSunsetClient_Sunset(t *testing.T) {
	body := `{"results":{"sunrise":"2024-06-01T10:30:12+00:00","sunset":"2024-06-01T23:35:40+00:00"},"status":"OK"}`
	srv, lastQuery := newSunsetServer(t, http.StatusOK, body)

	loc := time.FixedZone("JMT", -5*3600)
	obs := &recordingObserver{}
	client := NewSunsetClient(SunsetConfig{URL: srv.URL, Location: loc, Observer: obs}, zerolog.Nop())

	day := time.Date(2024, 6, 1, 9, 0, 0, 0, loc)
	got, err := client.Sunset(context.Background(), DefaultLatitude, DefaultLongitude, day)
	if err != nil {
		t.Fatalf("Sunset failed: %v", err)
	}
	if got.String() != "18:35:40" {
		t.Errorf("Sunset() = %s, want 18:35:40", got)
	}

	q := lastQuery()
	if q.Get("lat") != "18.16" || q.Get("lng") != "-77.03" {
		t.Errorf("coordinates = %s,%s", q.Get("lat"), q.Get("lng"))
	}
	if q.Get("formatted") != "0" {
		t.Errorf("formatted = %q, want 0", q.Get("formatted"))
	}
	if q.Get("date") != "2024-06-01" {
		t.Errorf("date = %q, want 2024-06-01", q.Get("date"))
	}
	if len(obs.results) != 1 || !obs.results[0] {
		t.Errorf("observer results = %v, want [true]", obs.results)
	}
}

func TestSunsetClient_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{}`},
		{"bad request", http.StatusBadRequest, `{"status":"INVALID_REQUEST"}`},
		{"not json", http.StatusOK, `<html>`},
		{"bad sunset", http.StatusOK, `{"results":{"sunset":"later"},"status":"OK"}`},
		{"service status", http.StatusOK, `{"results":{"sunset":"2024-06-01T23:35:40+00:00"},"status":"INVALID_DATE"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newSunsetServer(t, tt.status, tt.body)
			obs := &recordingObserver{}
			client := NewSunsetClient(SunsetConfig{URL: srv.URL, Location: time.UTC, Observer: obs}, zerolog.Nop())

			_, err := client.Sunset(context.Background(), 1, 2, time.Now())
			if !errors.Is(err, ErrUpstreamUnavailable) {
				t.Errorf("error = %v, want ErrUpstreamUnavailable", err)
			}
			if len(obs.results) != 1 || obs.results[0] {
				t.Errorf("observer results = %v, want [false]", obs.results)
			}
		})
	}
}

func TestSunsetClient_SingleAttempt(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewSunsetClient(SunsetConfig{URL: srv.URL, Location: time.UTC}, zerolog.Nop())
	if _, err := client.Sunset(context.Background(), 1, 2, time.Now()); err == nil {
		t.Fatal("expected error")
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1", calls)
	}
}

func TestSunsetClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	client := NewSunsetClient(SunsetConfig{URL: addr, Timeout: time.Second, Location: time.UTC}, zerolog.Nop())
	_, err := client.Sunset(context.Background(), 1, 2, time.Now())
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("error = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestSunsetClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewSunsetClient(SunsetConfig{URL: srv.URL, Timeout: 50 * time.Millisecond, Location: time.UTC}, zerolog.Nop())

	start := time.Now()
	_, err := client.Sunset(context.Background(), 1, 2, time.Now())
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("error = %v, want ErrUpstreamUnavailable", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("lookup took %v, timeout not applied", time.Since(start))
	}
}
