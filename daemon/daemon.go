// daemon/daemon.go
package daemon

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dalemusser/bodylimit/app"
	"github.com/kardianos/service"
)

// Program runs app.Run under a service manager (systemd, launchd or the
// Windows SCM).
type Program struct {
	Hooks app.Hooks

	// StopTimeout bounds how long Stop waits for Run to return.
	StopTimeout time.Duration

	cancel context.CancelFunc
	done   chan error
}

// Start launches app.Run in the background and returns at once, as service
// managers expect.
func (p *Program) Start(service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() { p.done <- app.Run(ctx, p.Hooks) }()
	return nil
}

// Stop cancels the run context and waits for the graceful shutdown to
// finish.
func (p *Program) Stop(service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()

	timeout := p.StopTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	select {
	case err := <-p.done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("daemon: shutdown did not finish within %s", timeout)
	}
}

// Config describes the installed service.
type Config struct {
	Name        string
	DisplayName string
	Description string

	// Arguments are passed to the binary when the manager starts it.
	Arguments []string
}

// Actions lists the verbs accepted by Control besides "run".
var Actions = service.ControlAction[:]

// Control performs action on the service described by cfg. "run" runs it in
// the foreground under the service manager; the rest are
// service.ControlAction verbs (install, uninstall, start, stop, restart).
func Control(cfg Config, prg *Program, action string) error {
	if action != "run" && !slices.Contains(Actions, action) {
		return fmt.Errorf("daemon: unknown action %q (want run or one of %v)", action, Actions)
	}
	s, err := service.New(prg, &service.Config{
		Name:        cfg.Name,
		DisplayName: cfg.DisplayName,
		Description: cfg.Description,
		Arguments:   cfg.Arguments,
	})
	if err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	if action == "run" {
		return s.Run()
	}
	return service.Control(s, action)
}
