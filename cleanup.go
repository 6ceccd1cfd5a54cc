package p4utils

//
// Previous-run cleanup
//

import (
	"context"
	"os"
	"os/exec"
)

// ProcessManager kills stray processes left behind by a previous run.
type ProcessManager interface {
	// KillAll terminates every process with the given name. A name
	// matching no process is not an error.
	KillAll(ctx context.Context, name string) error
}

// ExecProcessManager is a [ProcessManager] that shells out to killall.
type ExecProcessManager struct{}

var _ ProcessManager = &ExecProcessManager{}

// KillAll implements [ProcessManager]
func (pm *ExecProcessManager) KillAll(ctx context.Context, name string) error {
	// -q suppresses the exit status for "no process found"
	return exec.CommandContext(ctx, "killall", "-q", name).Run()
}

// Cleaner removes the leftovers of a previous run before a new network
// is started. The zero value is invalid; construct using [NewCleaner].
type Cleaner struct {
	// processes is the injected process-management capability.
	processes ProcessManager

	// logger is the logger to use.
	logger Logger
}

// NewCleaner creates a new [Cleaner].
func NewCleaner(processes ProcessManager, logger Logger) *Cleaner {
	return &Cleaner{
		processes: processes,
		logger:    logger,
	}
}

// KillPreviousSwitches terminates switch processes surviving from a
// previous run, which would otherwise hold the control-plane ports the
// new run needs.
func (c *Cleaner) KillPreviousSwitches(ctx context.Context, switchBinary string) error {
	c.logger.Infof("p4utils: killing stray %s processes", switchBinary)
	return c.processes.KillAll(ctx, switchBinary)
}

// RemoveRunArtifacts deletes the on-disk artifacts of a previous run:
// the log directory, the pcap directory, and the topology snapshot.
// Missing artifacts are ignored.
func RemoveRunArtifacts(logDir, pcapDir, snapshotPath string) error {
	for _, dir := range []string{logDir, pcapDir} {
		if dir == "" {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	if snapshotPath != "" {
		if err := os.Remove(snapshotPath); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
