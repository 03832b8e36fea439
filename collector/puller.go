// Package collector pulls files produced by a test run and routes them to
// per-key processors.
//
// A Puller moves through IDLE -> COLLECTING (TestRunStarted) ->
// DRAINING (TestRunEnded) -> IDLE. While draining it lists the Bridge,
// pulls every entry whose key matches a registered pattern and hands the
// local copy to the first matching Processor. Pulled copies belong to the
// processor; the puller never deletes them.
package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sync"

	"github.com/justapithecus/hostside/log"
	"github.com/justapithecus/hostside/metrics"
	"github.com/justapithecus/hostside/store"
)

// Sentinel errors for puller misuse.
var (
	// ErrInvalidState indicates a lifecycle call out of order.
	ErrInvalidState = errors.New("invalid puller state")
	// ErrInvalidPattern indicates a key pattern that does not compile.
	ErrInvalidPattern = errors.New("invalid key pattern")
)

// State is the puller lifecycle state.
type State int

// Puller states.
const (
	StateIdle State = iota
	StateCollecting
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateCollecting:
		return "COLLECTING"
	case StateDraining:
		return "DRAINING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Processor consumes pulled entries. Implementations own the local copy
// and are responsible for removing it.
type Processor interface {
	// ProcessMetricFile handles a pulled file.
	ProcessMetricFile(ctx context.Context, key, localPath string, data *RunData) error
	// ProcessMetricDirectory handles a pulled directory.
	ProcessMetricDirectory(ctx context.Context, key, localDir string, data *RunData) error
}

// PullSpec binds a compiled key pattern to its processor.
type PullSpec struct {
	Pattern   *regexp.Regexp
	Processor Processor
}

// Config configures a Puller.
type Config struct {
	// Bridge lists and pulls produced entries (required).
	Bridge Bridge
	// StagingDir is where each run's pulled copies are written
	// (default os.TempDir()). A fresh subdirectory is created per run.
	StagingDir string
	// Logger receives pull events (default: no-op).
	Logger *log.Logger
	// Metrics receives pull counters (optional).
	Metrics *metrics.Collector
}

// Puller is the collect/drain state machine.
// Lifecycle calls are serialized; callbacks run sequentially.
type Puller struct {
	bridge     Bridge
	stagingDir string
	logger     *log.Logger
	metrics    *metrics.Collector

	mu      sync.Mutex
	state   State
	specs   []PullSpec
	runName string
	data    *RunData
}

// NewPuller creates an idle puller.
func NewPuller(cfg Config) (*Puller, error) {
	if cfg.Bridge == nil {
		return nil, errors.New("puller requires a bridge")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	return &Puller{
		bridge:     cfg.Bridge,
		stagingDir: cfg.StagingDir,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}, nil
}

// Register adds a key pattern and its processor. Patterns are tried in
// registration order. Registration is only allowed while idle.
func (p *Puller) Register(pattern string, proc Processor) error {
	if proc == nil {
		return fmt.Errorf("register %q: nil processor", pattern)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateIdle {
		return fmt.Errorf("%w: register while %s", ErrInvalidState, p.state)
	}
	p.specs = append(p.specs, PullSpec{Pattern: re, Processor: proc})
	return nil
}

// State returns the current lifecycle state.
func (p *Puller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// TestRunStarted begins collecting for a run.
func (p *Puller) TestRunStarted(_ context.Context, runName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateIdle {
		return fmt.Errorf("%w: run started while %s", ErrInvalidState, p.state)
	}
	p.state = StateCollecting
	p.runName = runName
	p.data = NewRunData()
	p.logger.Info("collection started", map[string]any{
		"run":      runName,
		"patterns": len(p.specs),
	})
	return nil
}

// TestRunEnded drains the bridge and returns to idle.
//
// Every matched entry is pulled and processed even if earlier entries
// fail; all failures are joined into the returned error. The run's data
// is returned in either case.
func (p *Puller) TestRunEnded(ctx context.Context) (*RunData, error) {
	p.mu.Lock()
	if p.state != StateCollecting {
		state := p.state
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: run ended while %s", ErrInvalidState, state)
	}
	p.state = StateDraining
	specs := p.specs
	data := p.data
	runName := p.runName
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.state = StateIdle
		p.data = nil
		p.runName = ""
		p.mu.Unlock()
	}()

	err := p.drain(ctx, specs, data)
	p.logger.Info("collection drained", map[string]any{
		"run":       runName,
		"artifacts": len(data.Artifacts()),
		"failed":    err != nil,
	})
	return data, err
}

func (p *Puller) drain(ctx context.Context, specs []PullSpec, data *RunData) error {
	if len(specs) == 0 {
		return nil
	}

	entries, err := p.bridge.List(ctx)
	if err != nil {
		p.metrics.IncPullFailure()
		return fmt.Errorf("list entries: %w", store.Wrap(err, "list", ""))
	}

	staging, err := os.MkdirTemp(p.stagingDir, "pull-")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	data.setStagingDir(staging)

	var errs []error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		spec, ok := match(specs, entry.Key)
		if !ok {
			continue
		}
		if err := p.pull(ctx, spec, entry, staging, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// match returns the first spec whose pattern matches key.
func match(specs []PullSpec, key string) (PullSpec, bool) {
	for _, s := range specs {
		if s.Pattern.MatchString(key) {
			return s, true
		}
	}
	return PullSpec{}, false
}

func (p *Puller) pull(ctx context.Context, spec PullSpec, entry Entry, staging string, data *RunData) error {
	fields := map[string]any{
		"key":     entry.Key,
		"is_dir":  entry.IsDir,
		"pattern": spec.Pattern.String(),
	}

	var local string
	var err error
	if entry.IsDir {
		local, err = p.bridge.PullDir(ctx, entry.Key, staging)
	} else {
		local, err = p.bridge.PullFile(ctx, entry.Key, staging)
	}
	if err != nil {
		p.metrics.IncPullFailure()
		fields["error"] = err.Error()
		fields["class"] = store.ClassName(err)
		p.logger.Warn("pull failed", fields)
		return fmt.Errorf("pull %s: %w", entry.Key, err)
	}

	if entry.IsDir {
		p.metrics.IncDirectoryPulled()
		err = spec.Processor.ProcessMetricDirectory(ctx, entry.Key, local, data)
	} else {
		p.metrics.IncFilePulled()
		err = spec.Processor.ProcessMetricFile(ctx, entry.Key, local, data)
	}
	if err != nil {
		p.metrics.IncCallbackFailure()
		fields["error"] = err.Error()
		p.logger.Warn("processor failed", fields)
		return fmt.Errorf("process %s: %w", entry.Key, err)
	}

	fields["path"] = local
	p.logger.Debug("entry processed", fields)
	return nil
}
