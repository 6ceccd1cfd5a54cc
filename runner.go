package p4utils

//
// Run sequencing
//

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// RunState is a state of the [Runner]'s linear state machine. States
// only advance; there are no backward transitions.
type RunState int

const (
	// StateInitialized is the state before the topology is built.
	StateInitialized = RunState(iota)

	// StateTopologyBuilt means the topology was validated and the
	// addresses were planned.
	StateTopologyBuilt

	// StateNetworkStarted means the backend reported the network up.
	StateNetworkStarted

	// StateHostsProvisioned means every host was provisioned.
	StateHostsProvisioned

	// StateSwitchesProvisioned means control-plane loading finished.
	StateSwitchesProvisioned

	// StateTopologySaved means the snapshot was persisted.
	StateTopologySaved

	// StateSessionActive means the session hook is running.
	StateSessionActive

	// StateStopped means the network was torn down.
	StateStopped
)

// String implements fmt.Stringer.
func (s RunState) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateTopologyBuilt:
		return "topology-built"
	case StateNetworkStarted:
		return "network-started"
	case StateHostsProvisioned:
		return "hosts-provisioned"
	case StateSwitchesProvisioned:
		return "switches-provisioned"
	case StateTopologySaved:
		return "topology-saved"
	case StateSessionActive:
		return "session-active"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown state %d", int(s))
	}
}

// DefaultSettleDelay is the wait inserted after asynchronous backend
// transitions (network start, switch programming) so that dependent
// steps observe stable state.
const DefaultSettleDelay = time.Second

// RunnerConfig contains config for creating a [Runner]. Make sure you
// initialize the fields marked as MANDATORY.
type RunnerConfig struct {
	// Config is the MANDATORY parsed topology description.
	Config *AppConfig

	// Backend is the MANDATORY emulator backend.
	Backend Backend

	// Logger is the MANDATORY logger.
	Logger Logger

	// LogDir is the OPTIONAL directory for transcript files, used
	// when the description enables logging.
	LogDir string

	// SnapshotPath is the OPTIONAL destination of the topology
	// snapshot; [DefaultSnapshotPath] when empty.
	SnapshotPath string

	// SettleDelay is the OPTIONAL settle delay overriding
	// [DefaultSettleDelay].
	SettleDelay time.Duration

	// Session is the OPTIONAL interactive or automated session to
	// hand control to after provisioning. When nil, the network is
	// stopped immediately after the snapshot is saved.
	Session func(ctx context.Context) error
}

// RunSummary reports the non-fatal failures of a finished run. A run
// that started the network successfully completes even when individual
// hosts or switches failed to configure; those failures end up here.
type RunSummary struct {
	// Provisioning are the per-host provisioning failures.
	Provisioning []*StepFailure

	// ControlPlane are the per-switch control-plane failures.
	ControlPlane []*StepFailure
}

// Failed tells whether the run recorded any non-fatal failure.
func (s *RunSummary) Failed() bool {
	return len(s.Provisioning) > 0 || len(s.ControlPlane) > 0
}

// Runner sequences a whole run: build topology, start the emulated
// network, provision hosts, load control-plane state, persist the
// topology snapshot, hand off to the session, and tear down. The zero
// value is invalid; construct using [NewRunner]. A Runner is good for a
// single Run call.
type Runner struct {
	// config is the runner configuration.
	config *RunnerConfig

	// state is the current run state.
	state RunState
}

// NewRunner creates a new [Runner] and validates the configuration.
func NewRunner(config *RunnerConfig) (*Runner, error) {
	if config.Config == nil {
		return nil, fmt.Errorf("%w: missing topology description", ErrConfiguration)
	}
	if err := config.Config.check(); err != nil {
		return nil, err
	}
	if config.Backend == nil {
		return nil, fmt.Errorf("%w: missing backend", ErrConfiguration)
	}
	if config.Logger == nil {
		config.Logger = &NullLogger{}
	}
	if config.SnapshotPath == "" {
		config.SnapshotPath = DefaultSnapshotPath
	}
	if config.SettleDelay <= 0 {
		config.SettleDelay = DefaultSettleDelay
	}
	return &Runner{
		config: config,
		state:  StateInitialized,
	}, nil
}

// State returns the current run state.
func (r *Runner) State() RunState {
	return r.state
}

// setState advances the state machine.
func (r *Runner) setState(state RunState) {
	r.config.Logger.Debugf("p4utils: run state %s -> %s", r.state, state)
	r.state = state
}

// Run executes the whole sequence. Configuration and topology errors
// abort before the network is started; backend errors abort after a
// best-effort stop. Per-node provisioning and control-plane failures do
// not abort the run and are reported through the [RunSummary]. The
// network is always stopped before Run returns, whatever happened
// earlier in the sequence.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	config := r.config.Config
	logger := r.config.Logger
	backend := r.config.Backend
	summary := &RunSummary{}

	// fail fast: no partial network is ever started from an invalid
	// topology description
	logger.Info("p4utils: building topology")
	topo, err := NewTopology(config.Topology)
	if err != nil {
		return summary, err
	}
	plan, err := PlanAddresses(topo)
	if err != nil {
		return summary, err
	}
	r.setState(StateTopologyBuilt)

	logger.Info("p4utils: starting emulated network")
	startErr := backend.Start(ctx, topo)

	// stop unconditionally, even when earlier steps failed, so that
	// emulator resources are always released
	defer func() {
		if err := backend.Stop(context.Background()); err != nil {
			logger.Warnf("p4utils: stop: %s", err.Error())
		}
		r.setState(StateStopped)
	}()

	if startErr != nil {
		return summary, backendError(startErr)
	}
	r.setState(StateNetworkStarted)

	// interface and link establishment is asynchronous relative to
	// the started signal
	r.settle(ctx)

	logger.Info("p4utils: provisioning hosts")
	provisioner := NewProvisioner(backend, logger)
	summary.Provisioning = provisioner.ProvisionHosts(ctx, topo, plan)
	r.setState(StateHostsProvisioned)

	logger.Info("p4utils: programming switches")
	if config.EnableLog && r.config.LogDir != "" {
		if err := os.MkdirAll(r.config.LogDir, 0755); err != nil {
			return summary, fmt.Errorf("%w: %s", ErrConfiguration, err.Error())
		}
	}
	loader := NewLoader(backend, logger)
	loader.EnableLog = config.EnableLog
	loader.LogDir = r.config.LogDir
	summary.ControlPlane = loader.ProgramSwitches(ctx, topo)
	r.setState(StateSwitchesProvisioned)

	logger.Infof("p4utils: saving topology to %s", r.config.SnapshotPath)
	db, err := SnapshotNetwork(topo, backend, plan)
	if err != nil {
		return summary, backendError(err)
	}
	if err := db.Save(r.config.SnapshotPath); err != nil {
		return summary, fmt.Errorf("%w: save snapshot: %s", ErrConfiguration, err.Error())
	}
	r.setState(StateTopologySaved)
	r.settle(ctx)

	r.describeNodes(topo)

	if r.config.Session != nil {
		r.setState(StateSessionActive)
		if err := r.config.Session(ctx); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// describeNodes logs a descriptive dump of every programmable switch
// and every host of the started network.
func (r *Runner) describeNodes(topo *Topology) {
	logger := r.config.Logger
	for _, name := range topo.Switches() {
		if !topo.IsP4Switch(name) {
			continue
		}
		node, err := r.config.Backend.Switch(name)
		if err != nil {
			logger.Warnf("p4utils: describe %s: %s", name, err.Error())
			continue
		}
		logger.Info(node.Describe())
	}
	for _, name := range topo.Hosts() {
		node, err := r.config.Backend.Host(name)
		if err != nil {
			logger.Warnf("p4utils: describe %s: %s", name, err.Error())
			continue
		}
		logger.Info(node.Describe())
	}
}

// settle waits for asynchronous backend state to stabilize.
func (r *Runner) settle(ctx context.Context) {
	timer := time.NewTimer(r.config.SettleDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// backendError ensures an error is classified as [ErrBackend].
func backendError(err error) error {
	if errors.Is(err, ErrBackend) {
		return err
	}
	return fmt.Errorf("%w: %s", ErrBackend, err.Error())
}
