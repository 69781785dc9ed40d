package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/qwertdvert/qwertdvert/internal/daemon"
)

type fakeController struct {
	mu      sync.Mutex
	enabled bool
}

func (c *fakeController) Status() daemon.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return daemon.Status{
		Enabled:        c.enabled,
		DevicesGrabbed: 1,
		Devices:        []string{"AT Translated Set 2 keyboard"},
		State:          daemon.StateRunning,
	}
}

func (c *fakeController) SetEnabled(enabled bool) daemon.Status {
	c.mu.Lock()
	c.enabled = enabled
	c.mu.Unlock()
	return c.Status()
}

func TestSplitAddr(t *testing.T) {
	tests := []struct {
		addr    string
		network string
		address string
		wantErr bool
	}{
		{"unix:///run/user/1000/qwertdvert/control.sock", "unix", "/run/user/1000/qwertdvert/control.sock", false},
		{"tcp://127.0.0.1:8765", "tcp", "127.0.0.1:8765", false},
		{"127.0.0.1:8765", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		network, address, err := SplitAddr(tt.addr)
		if (err != nil) != tt.wantErr {
			t.Errorf("SplitAddr(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			continue
		}
		if network != tt.network || address != tt.address {
			t.Errorf("SplitAddr(%q) = (%q, %q), want (%q, %q)", tt.addr, network, address, tt.network, tt.address)
		}
	}
}

func TestStatusEndpoint(t *testing.T) {
	ctrl := &fakeController{enabled: true}
	s := NewServer(ctrl, zap.NewNop().Sugar())

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code %d", rec.Code)
	}
	var st daemon.Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !st.Enabled || st.DevicesGrabbed != 1 || st.State != daemon.StateRunning {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestToggleEndpoints(t *testing.T) {
	ctrl := &fakeController{enabled: true}
	s := NewServer(ctrl, zap.NewNop().Sugar())
	mux := s.routes()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/remap/disable", nil))
	var st daemon.Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Enabled {
		t.Error("disable did not report disabled")
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/remap/enable", nil))
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !st.Enabled {
		t.Error("enable did not report enabled")
	}
}

func TestToggleRequiresPost(t *testing.T) {
	s := NewServer(&fakeController{}, zap.NewNop().Sugar())

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/remap/enable", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET on toggle returned %d, want 405", rec.Code)
	}
}

func TestIndexPage(t *testing.T) {
	s := NewServer(&fakeController{enabled: true}, zap.NewNop().Sugar())

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status code %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"QwertDvert", "enabled", "AT Translated Set 2 keyboard"} {
		if !strings.Contains(body, want) {
			t.Errorf("index page missing %q", want)
		}
	}
}

// The client and server speak over a real unix socket end to end.
func TestClientOverUnixSocket(t *testing.T) {
	ctrl := &fakeController{enabled: true}
	s := NewServer(ctrl, zap.NewNop().Sugar())

	addr := "unix://" + filepath.Join(t.TempDir(), "control.sock")
	if err := s.Listen(addr); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	go s.Serve()
	defer s.Shutdown(t.Context())

	client, err := NewClient(addr)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	st, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Enabled {
		t.Error("expected enabled status")
	}

	st, err = client.SetEnabled(false)
	if err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if st.Enabled {
		t.Error("SetEnabled(false) did not take effect")
	}
}
