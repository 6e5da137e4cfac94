// Command scootermon is a terminal dashboard over one authenticated
// session.Session: it polls battery, motor and range telemetry on an
// interval and renders it with lipgloss, in the style of the teacher's
// Bubble Tea CLI (internal/cli/ui/ui.go) — a single Model driven by
// tea.Tick polling, styled panels, and a host resource footer from
// gopsutil.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"scooterble/internal/config"
	"scooterble/internal/demoscooter"
	"scooterble/internal/handshake"
)

var demo = flag.Bool("demo", false, "run against an in-memory simulated scooter instead of a real transport")

func main() {
	flag.Parse()
	logger := log.New(os.Stderr, "scootermon: ", log.LstdFlags)

	if !*demo {
		fmt.Fprintln(os.Stderr, "no platform transport.Transport linked into this binary; fork main() to wire "+
			"your BLE library's implementation of transport.Transport in place of demoscooter.New, or pass "+
			"-demo to exercise the dashboard against a simulated scooter")
		os.Exit(1)
	}

	cfg := config.Load()
	tp, sim := demoscooter.New(cfg, logger)
	defer sim.Stop()

	ctx := context.Background()
	reg := handshake.NewRegistrar(tp, cfg, logger)
	token, err := reg.Register(ctx)
	if err != nil {
		logger.Fatalf("register: %v", err)
	}
	auth := handshake.NewAuthenticator(tp, cfg, logger)
	sess, err := auth.Login(ctx, token)
	if err != nil {
		logger.Fatalf("login: %v", err)
	}

	p := tea.NewProgram(newModel(sess, token), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
