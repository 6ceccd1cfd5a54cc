package p4utils

//
// Control-plane loading
//

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ReadEntries reads a control-plane command file into an ordered
// sequence of entries, preserving file order. Blank lines and comment
// lines starting with `#` are skipped; everything else is an entry.
func ReadEntries(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrControlPlane, err.Error())
	}
	defer file.Close()

	var entries []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrControlPlane, path, err.Error())
	}
	return entries, nil
}

// Loader pushes control-plane entries into the switches that declare a
// command file. The zero value is invalid; construct using [NewLoader].
type Loader struct {
	// DialContext optionally overrides how the loader reaches a
	// switch's control-plane endpoint. When nil, a [net.Dialer]
	// connects to 127.0.0.1 at the switch's runtime-assigned port.
	DialContext func(ctx context.Context, network, address string) (net.Conn, error)

	// LogDir is the directory for per-switch transcript files; only
	// used when EnableLog is true.
	LogDir string

	// EnableLog enables transcript capture.
	EnableLog bool

	// backend is the emulator backend.
	backend Backend

	// logger is the logger to use.
	logger Logger
}

// NewLoader creates a new [Loader].
func NewLoader(backend Backend, logger Logger) *Loader {
	return &Loader{
		backend: backend,
		logger:  logger,
	}
}

// ProgramSwitches applies the command file of every switch that declares
// one, in sorted switch order. A switch without a command file is left
// unconfigured. Failures are recorded per switch and wrap
// [ErrControlPlane]; they never abort loading of subsequent switches.
func (l *Loader) ProgramSwitches(ctx context.Context, topo *Topology) []*StepFailure {
	var failures []*StepFailure
	for _, name := range topo.Switches() {
		config := topo.SwitchConfig(name)
		if config == nil || config.CLIInput == "" {
			continue
		}
		l.logger.Infof("p4utils: configuring switch %s with file %s", name, config.CLIInput)
		failures = append(failures, l.programSwitch(ctx, name, config.CLIInput)...)
	}
	return failures
}

// programSwitch applies one switch's command file.
func (l *Loader) programSwitch(ctx context.Context, name, cliInput string) []*StepFailure {
	entries, err := ReadEntries(cliInput)
	if err != nil {
		return []*StepFailure{{Node: name, Err: err}}
	}

	node, err := l.backend.Switch(name)
	if err != nil {
		return []*StepFailure{{
			Node: name,
			Err:  fmt.Errorf("%w: %s", ErrControlPlane, err.Error()),
		}}
	}

	transcript, closeTranscript, err := l.openTranscript(name)
	if err != nil {
		return []*StepFailure{{Node: name, Err: err}}
	}
	defer closeTranscript()

	return l.addEntries(ctx, name, node.ControlPlanePort(), entries, transcript)
}

// openTranscript opens the transcript sink for a switch. When logging
// is disabled, or no log directory is configured, the transcript is
// discarded.
func (l *Loader) openTranscript(name string) (io.Writer, func(), error) {
	if !l.EnableLog || l.LogDir == "" {
		return io.Discard, func() {}, nil
	}
	path := filepath.Join(l.LogDir, fmt.Sprintf("%s_cli_output.log", name))
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrControlPlane, err.Error())
	}
	return file, func() { file.Close() }, nil
}

// addEntries connects to a switch's control-plane endpoint and applies
// the entries in order, reading one response per entry. A rejected entry
// is recorded and loading continues with the next entry, because later
// entries may not depend on the rejected one; order-dependent failures
// then surface as further rejections.
func (l *Loader) addEntries(
	ctx context.Context,
	name string,
	port int,
	entries []string,
	transcript io.Writer,
) []*StepFailure {
	dial := l.DialContext
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	address := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	conn, err := dial(ctx, "tcp", address)
	if err != nil {
		return []*StepFailure{{
			Node: name,
			Err:  fmt.Errorf("%w: dial %s: %s", ErrControlPlane, address, err.Error()),
		}}
	}
	defer conn.Close()

	var failures []*StepFailure
	reader := bufio.NewReader(conn)
	for _, entry := range entries {
		if _, err := fmt.Fprintln(conn, entry); err != nil {
			failures = append(failures, &StepFailure{
				Node:    name,
				Command: entry,
				Err:     fmt.Errorf("%w: %s", ErrControlPlane, err.Error()),
			})
			return failures
		}
		response, err := reader.ReadString('\n')
		if err != nil {
			failures = append(failures, &StepFailure{
				Node:    name,
				Command: entry,
				Err:     fmt.Errorf("%w: %s", ErrControlPlane, err.Error()),
			})
			return failures
		}
		response = strings.TrimRight(response, "\r\n")
		fmt.Fprintf(transcript, "> %s\n%s\n", entry, response)
		if strings.HasPrefix(response, "Error") {
			l.logger.Warnf("p4utils: switch %s rejected %q: %s", name, entry, response)
			failures = append(failures, &StepFailure{
				Node:    name,
				Command: entry,
				Err:     fmt.Errorf("%w: %s", ErrControlPlane, response),
			})
		}
	}
	return failures
}
