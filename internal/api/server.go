// Package api is the control surface: a small HTTP endpoint, normally on a
// per-user unix socket, through which the tray (or anything else) toggles
// remapping and reads status.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/qwertdvert/qwertdvert/internal/daemon"
)

// Controller is the slice of the daemon the control surface drives. Both
// calls go through the event loop, so a toggle applies exactly between two
// events and never retroactively.
type Controller interface {
	Status() daemon.Status
	SetEnabled(enabled bool) daemon.Status
}

type Server struct {
	ctrl       Controller
	log        *zap.SugaredLogger
	httpServer *http.Server
	listener   net.Listener
	socketPath string
}

func NewServer(ctrl Controller, log *zap.SugaredLogger) *Server {
	return &Server{ctrl: ctrl, log: log}
}

// Listen binds the control endpoint; addr is "unix:///path" or
// "tcp://host:port". A stale socket left by an unclean previous run is
// removed first; the service supervisor guarantees a single instance.
func (s *Server) Listen(addr string) error {
	network, address, err := SplitAddr(addr)
	if err != nil {
		return err
	}

	if network == "unix" {
		if err := os.MkdirAll(filepath.Dir(address), 0700); err != nil {
			return fmt.Errorf("create socket directory: %w", err)
		}
		if err := os.Remove(address); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale control socket: %w", err)
		}
		s.socketPath = address
	}

	ln, err := net.Listen(network, address)
	if err != nil {
		return fmt.Errorf("bind control endpoint %s: %w", addr, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{Handler: s.routes()}
	return nil
}

// Serve blocks until Shutdown.
func (s *Server) Serve() error {
	s.log.Infof("control endpoint listening on %s", s.listener.Addr())
	if err := s.httpServer.Serve(s.listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.socketPath != "" {
		_ = os.Remove(s.socketPath)
	}
	return err
}

// SplitAddr parses a control address into a net.Listen network/address pair.
func SplitAddr(addr string) (network, address string, err error) {
	switch {
	case strings.HasPrefix(addr, "unix://"):
		return "unix", strings.TrimPrefix(addr, "unix://"), nil
	case strings.HasPrefix(addr, "tcp://"):
		return "tcp", strings.TrimPrefix(addr, "tcp://"), nil
	}
	return "", "", fmt.Errorf("control address %q must start with unix:// or tcp://", addr)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
