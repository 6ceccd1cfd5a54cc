// Command p4run provisions an emulated P4 network from a topology
// description and hands control to an interactive session.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"

	p4utils "github.com/albertgranalcoz/p4-utils"
)

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		log.WithError(err).Fatal("os.Getwd")
	}

	// parse command line flags
	config := flag.String("config", "./p4app.json", "path to the topology description")
	logDir := flag.String("log-dir", filepath.Join(cwd, "log"), "directory for log files")
	pcapDir := flag.String("pcap-dir", filepath.Join(cwd, "pcap"), "directory for pcap files")
	cli := flag.Bool("cli", true, "run the interactive session")
	quiet := flag.Bool("quiet", false, "disable script debug messages")
	clean := flag.Bool("clean", false, "remove previous log, pcap, and snapshot files")
	onlyClean := flag.Bool("only-clean", false, "like -clean, then exit")
	dryRun := flag.Bool("dry-run", false, "provision against the in-memory backend")
	flag.Parse()

	if *quiet {
		log.SetLevel(log.WarnLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	if *clean || *onlyClean {
		if err := p4utils.RemoveRunArtifacts(*logDir, *pcapDir, p4utils.DefaultSnapshotPath); err != nil {
			log.WithError(err).Fatal("p4utils.RemoveRunArtifacts")
		}
		if *onlyClean {
			return
		}
	}

	ctx := context.Background()

	appConfig, err := p4utils.LoadConfig(*config)
	if err != nil {
		log.WithError(err).Fatal("p4utils.LoadConfig")
	}

	backendName := appConfig.Backend
	if *dryRun || backendName == "" {
		backendName = "static"
	}
	backend, err := p4utils.NewBackend(backendName, log.Log)
	if err != nil {
		log.WithError(err).Fatal("p4utils.NewBackend")
	}

	// switch processes surviving a previous run would hold the
	// control-plane ports this run needs
	cleaner := p4utils.NewCleaner(&p4utils.ExecProcessManager{}, log.Log)
	if err := cleaner.KillPreviousSwitches(ctx, appConfig.SwitchBinary()); err != nil {
		log.WithError(err).Warn("cleaner.KillPreviousSwitches")
	}

	runnerConfig := &p4utils.RunnerConfig{
		Config:       appConfig,
		Backend:      backend,
		Logger:       log.Log,
		LogDir:       *logDir,
		SnapshotPath: p4utils.DefaultSnapshotPath,
	}
	if *cli || appConfig.CLI {
		runnerConfig.Session = interactiveSession
	}

	runner, err := p4utils.NewRunner(runnerConfig)
	if err != nil {
		log.WithError(err).Fatal("p4utils.NewRunner")
	}

	summary, err := runner.Run(ctx)
	if err != nil {
		log.WithError(err).Fatal("runner.Run")
	}
	for _, failure := range summary.Provisioning {
		log.Warnf("provisioning: %s", failure.Error())
	}
	for _, failure := range summary.ControlPlane {
		log.Warnf("control-plane: %s", failure.Error())
	}
}

// interactiveSession keeps the network up until the operator closes
// standard input or types exit.
func interactiveSession(ctx context.Context) error {
	fmt.Println("network is up; type exit (or close stdin) to stop it")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if scanner.Text() == "exit" {
			break
		}
	}
	return scanner.Err()
}
