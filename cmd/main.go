package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	sd "github.com/coreos/go-systemd/v22/daemon"
	"github.com/pkg/browser"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/qwertdvert/qwertdvert/internal/api"
	"github.com/qwertdvert/qwertdvert/internal/config"
	"github.com/qwertdvert/qwertdvert/internal/daemon"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("error: %+v", err)
	}
}

func run() error {
	configPath := flag.StringP("config", "c", config.DefaultConfigPath(), "config file location")
	debug := flag.BoolP("debug", "d", false, "enable debug logging")
	showStatus := flag.Bool("status", false, "print a running daemon's status and exit")
	enable := flag.Bool("enable", false, "tell a running daemon to enable remapping and exit")
	disable := flag.Bool("disable", false, "tell a running daemon to disable remapping and exit")
	open := flag.Bool("open", false, "open the status page in a browser (tcp control endpoint only)")
	flag.Parse()

	logger, err := newLogger(*debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Warnw("falling back to default configuration", "path", *configPath, "error", err)
	}

	if *showStatus || *enable || *disable {
		return runClient(cfg, *enable, *disable)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := daemon.New(cfg, logger)
	if err != nil {
		return err
	}

	// Unlike device acquisition, failing to bind the control channel is
	// fatal: without it the daemon cannot be toggled or queried.
	server := api.NewServer(d, logger)
	addr := cfg.Control.Address()
	if err := server.Listen(addr); err != nil {
		return err
	}

	daemonErr := make(chan error, 1)
	go func() { daemonErr <- d.Run(ctx) }()

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve() }()

	go func() {
		if err := systemdNotifyLoop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warnw("systemd notifications stopped", "error", err)
		}
	}()

	if *open {
		openStatusPage(logger, addr)
	}

	var runErr error
	select {
	case runErr = <-daemonErr:
	case err := <-serveErr:
		stop()
		dErr := <-daemonErr
		if err != nil {
			runErr = fmt.Errorf("control endpoint: %w", err)
		} else {
			runErr = dErr
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	_, _ = sd.SdNotify(false, sd.SdNotifyStopping)

	if errors.Is(runErr, context.Canceled) {
		logger.Infof("stopped")
		return nil
	}
	return runErr
}

// runClient drives a running daemon over its control socket.
func runClient(cfg *config.Config, enable, disable bool) error {
	client, err := api.NewClient(cfg.Control.Address())
	if err != nil {
		return err
	}

	var st daemon.Status
	switch {
	case enable:
		st, err = client.SetEnabled(true)
	case disable:
		st, err = client.SetEnabled(false)
	default:
		st, err = client.Status()
	}
	if err != nil {
		return err
	}

	fmt.Printf("state: %s\n", st.State)
	if st.Enabled {
		fmt.Println("remapping: enabled")
	} else {
		fmt.Println("remapping: disabled")
	}
	fmt.Printf("keyboards grabbed: %d\n", st.DevicesGrabbed)
	for _, name := range st.Devices {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}

func openStatusPage(logger *zap.SugaredLogger, addr string) {
	if !strings.HasPrefix(addr, "tcp://") {
		logger.Warnf("--open needs a tcp:// control endpoint, have %s", addr)
		return
	}
	url := "http://" + strings.TrimPrefix(addr, "tcp://") + "/"
	if err := browser.OpenURL(url); err != nil {
		logger.Warnw("cannot open status page", "url", url, "error", err)
	}
}

func systemdNotifyLoop(ctx context.Context) error {
	supported, err := sd.SdNotify(false, sd.SdNotifyReady)
	if err != nil {
		return fmt.Errorf("notify systemd: %w", err)
	}
	if !supported {
		return nil
	}

	_, _ = sd.SdNotify(false, "STATUS=Remapping QWERTY to Dvorak")

	t, err := sd.SdWatchdogEnabled(false)
	if err != nil {
		return fmt.Errorf("check watchdog: %w", err)
	}
	if t == 0 {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-time.After(t / 2):
			if _, err := sd.SdNotify(false, sd.SdNotifyWatchdog); err != nil {
				return fmt.Errorf("notify watchdog: %w", err)
			}
		}
	}
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.OutputPaths = []string{"stdout"}
	loggerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if !debug {
		loggerConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger.Sugar(), nil
}
