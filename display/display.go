package display

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vinayprograms/browserkit/autoerr"
	"github.com/vinayprograms/browserkit/logging"
)

// StageState tracks a stage through its lifecycle.
type StageState int

const (
	StateNotStarted StageState = iota
	StateStarting
	StateLive
	StateStopping
	StateDead
)

func (s StageState) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateStarting:
		return "starting"
	case StateLive:
		return "live"
	case StateStopping:
		return "stopping"
	case StateDead:
		return "dead"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Dependency classifies how a stage failure affects the chain.
type Dependency int

const (
	// Hard stages abort the chain when they fail to start.
	Hard Dependency = iota
	// Soft stages log a warning and let the chain continue.
	Soft
)

// Process is a handle on a spawned stage process.
type Process interface {
	// PID returns the process id.
	PID() int

	// Alive reports whether the process is still running.
	Alive() bool

	// Terminate asks the process to exit (SIGTERM on unix).
	Terminate() error

	// Kill forcibly ends the process and its process group.
	Kill() error

	// Wait blocks until the process exits or the timeout elapses.
	// Returns false on timeout.
	Wait(timeout time.Duration) bool
}

// Stage is one link of the display chain.
type Stage struct {
	// Name identifies the stage in logs and status output.
	Name string

	// Executable is the process name used for orphan matching.
	Executable string

	// Kind decides whether a start failure aborts the chain.
	Kind Dependency

	// Spawn launches the stage process.
	Spawn func(ctx context.Context) (Process, error)

	// Probe reports whether the stage is already serving. It must
	// return false on any failure, never an error.
	Probe func(ctx context.Context) bool

	// StartupDelay is how long to wait after spawning before the
	// process is checked for liveness.
	StartupDelay time.Duration
}

// Config holds supervisor settings.
type Config struct {
	// Display is the X display id, e.g. ":1".
	Display string

	// VNCPort is the remote frame server port.
	VNCPort int

	// WebPort is the web bridge port.
	WebPort int

	// Password protects remote frame connections.
	Password string

	// StopGrace is how long a stage gets to exit after Terminate
	// before it is killed.
	StopGrace time.Duration

	// SettleDelay is the pause between Stop and Start on Restart.
	SettleDelay time.Duration
}

// DefaultConfig returns the conventional single-display setup.
func DefaultConfig() Config {
	return Config{
		Display:     ":1",
		VNCPort:     5901,
		WebPort:     6080,
		Password:    "automation",
		StopGrace:   5 * time.Second,
		SettleDelay: 2 * time.Second,
	}
}

// Status is a snapshot of the chain, cheap to poll.
type Status struct {
	Running bool            `json:"running"`
	Display string          `json:"display"`
	VNCPort int             `json:"vnc_port"`
	WebPort int             `json:"web_port"`
	VNCURL  string          `json:"vnc_url"`
	WebURL  string          `json:"web_url"`
	Stages  map[string]bool `json:"stages"`
}

// Clock abstracts sleeps for tests.
type Clock interface {
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// Supervisor owns the display chain. All methods are safe for
// concurrent use; operations serialize on an internal mutex.
type Supervisor struct {
	cfg     Config
	stages  []*Stage
	scanner ProcessScanner
	clock   Clock
	log     *logging.Logger

	mu     sync.Mutex
	procs  map[string]Process
	states map[string]StageState
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(s *Supervisor) { s.log = log }
}

// WithClock replaces the sleep source, for tests.
func WithClock(c Clock) Option {
	return func(s *Supervisor) { s.clock = c }
}

// WithScanner replaces the process-table scanner.
func WithScanner(sc ProcessScanner) Option {
	return func(s *Supervisor) { s.scanner = sc }
}

// WithStages replaces the default stage chain.
func WithStages(stages []*Stage) Option {
	return func(s *Supervisor) { s.stages = stages }
}

// NewSupervisor creates a supervisor over the default Xvfb/fluxbox/
// x11vnc/websockify chain unless WithStages overrides it.
func NewSupervisor(cfg Config, opts ...Option) *Supervisor {
	if cfg.Display == "" {
		cfg = DefaultConfig()
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = 5 * time.Second
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 2 * time.Second
	}

	s := &Supervisor{
		cfg:     cfg,
		scanner: &procScanner{},
		clock:   realClock{},
		log:     logging.Nop(),
		procs:   make(map[string]Process),
		states:  make(map[string]StageState),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stages == nil {
		s.stages = defaultStages(cfg, s.scanner)
	}
	for _, st := range s.stages {
		s.states[st.Name] = StateNotStarted
	}
	return s
}

// Start brings up the chain in order. A stage that already answers its
// probe is left alone. A hard stage that fails to come up aborts the
// chain; a soft stage failure is logged and skipped.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range s.stages {
		if err := ctx.Err(); err != nil {
			return autoerr.Wrap(err, "display start")
		}

		if st.Probe != nil && st.Probe(ctx) {
			s.log.StageSkipped(st.Name)
			s.states[st.Name] = StateLive
			continue
		}

		s.states[st.Name] = StateStarting
		s.log.StageStarted(st.Name)

		proc, err := st.Spawn(ctx)
		if err == nil {
			if st.StartupDelay > 0 {
				s.clock.Sleep(st.StartupDelay)
			}
			if !proc.Alive() {
				err = fmt.Errorf("%s exited during startup", st.Name)
			}
		}

		if err != nil {
			s.states[st.Name] = StateDead
			s.log.StageFailed(st.Name, err)
			if st.Kind == Hard {
				return autoerr.New(autoerr.CodeProcessStart,
					fmt.Sprintf("failed to start %s", st.Name),
					autoerr.WithCause(err))
			}
			continue
		}

		s.procs[st.Name] = proc
		s.states[st.Name] = StateLive
	}
	return nil
}

// Stop brings the chain down in reverse start order, then sweeps for
// orphaned stage processes bound to this display.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked(ctx)
}

func (s *Supervisor) stopLocked(ctx context.Context) error {
	for i := len(s.stages) - 1; i >= 0; i-- {
		st := s.stages[i]
		proc, ok := s.procs[st.Name]
		if !ok || !proc.Alive() {
			s.states[st.Name] = StateDead
			delete(s.procs, st.Name)
			continue
		}

		s.states[st.Name] = StateStopping
		forced := false
		if err := proc.Terminate(); err != nil || !proc.Wait(s.cfg.StopGrace) {
			_ = proc.Kill()
			forced = true
		}
		s.log.StageStopped(st.Name, forced)
		s.states[st.Name] = StateDead
		delete(s.procs, st.Name)
	}

	s.sweepOrphans()
	return ctx.Err()
}

// sweepOrphans kills stage processes left over from earlier runs that
// still reference this display.
func (s *Supervisor) sweepOrphans() {
	procs, err := s.scanner.Processes()
	if err != nil {
		s.log.Warn("orphan sweep failed", map[string]interface{}{"error": err.Error()})
		return
	}

	names := make(map[string]bool, len(s.stages))
	for _, st := range s.stages {
		if st.Executable != "" {
			names[strings.ToLower(st.Executable)] = true
		}
	}

	for _, p := range procs {
		if !names[strings.ToLower(p.Name)] {
			continue
		}
		if !strings.Contains(p.Cmdline, s.cfg.Display) {
			continue
		}
		if err := s.scanner.Kill(p.PID); err == nil {
			s.log.Info("killed orphan process", map[string]interface{}{
				"name": p.Name,
				"pid":  p.PID,
			})
		}
	}
}

// Restart stops the chain, waits for it to settle, and starts it again.
func (s *Supervisor) Restart(ctx context.Context) error {
	s.mu.Lock()
	if err := s.stopLocked(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.clock.Sleep(s.cfg.SettleDelay)
	return s.Start(ctx)
}

// Status probes every stage and reports chain health. Running reflects
// the remote frame server, the stage browsers actually connect to.
func (s *Supervisor) Status(ctx context.Context) Status {
	st := Status{
		Display: s.cfg.Display,
		VNCPort: s.cfg.VNCPort,
		WebPort: s.cfg.WebPort,
		VNCURL:  fmt.Sprintf("vnc://localhost:%d", s.cfg.VNCPort),
		WebURL:  fmt.Sprintf("http://localhost:%d", s.cfg.WebPort),
		Stages:  make(map[string]bool, len(s.stages)),
	}
	for _, stage := range s.stages {
		alive := false
		if stage.Probe != nil {
			alive = stage.Probe(ctx)
		}
		st.Stages[stage.Name] = alive
		if stage.Name == StageFrameServer {
			st.Running = alive
		}
	}
	return st
}

// State returns the supervisor's view of one stage.
func (s *Supervisor) State(name string) StageState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[name]
}
