package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds minimal global/persistent flags for CLI commands
type GlobalFlags struct {
	ConfigPath string
}

// AgentFlags holds agent-related flags for remote commands
type AgentFlags struct {
	Room       string
	Full       bool
	APIUrl     string
	APITimeout time.Duration
}

// ServeFlags holds flags for the serve command
type ServeFlags struct {
	ConfigPath string
	Daemonize  bool
	PidFile    string
	LogFile    string
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	startFlags := &AgentFlags{}
	stopFlags := &AgentFlags{}
	statusFlags := &AgentFlags{}
	listFlags := &AgentFlags{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createStartCommand(startFlags),
		createStopCommand(stopFlags),
		createStatusCommand(statusFlags),
		createListCommand(listFlags),
		createServeCommand(globalFlags),
	)
	return root
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "parley",
		Short: "Voice agent orchestration for conference rooms",
		Long: `Parley launches and supervises one AI voice agent per conference room,
locally or via a remote daemon connection.

Examples:
  parley serve --config=parley.toml       # Start daemon
  parley start --room=study-1             # Launch an agent
  parley status --room=study-1 --full     # Local + in-room presence
  parley stop --room=study-1`,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

func addAPIFlags(cmd *cobra.Command, f *AgentFlags) {
	cmd.Flags().StringVar(&f.APIUrl, "api-url", "", "daemon URL (e.g. http://host:8080/api)")
	cmd.Flags().DurationVar(&f.APITimeout, "api-timeout", 10*time.Second, "request timeout")
}

func addRoomFlag(cmd *cobra.Command, f *AgentFlags) {
	cmd.Flags().StringVar(&f.Room, "room", "", "conference room name (required)")
	if err := cmd.MarkFlagRequired("room"); err != nil {
		panic(err)
	}
}

// createStartCommand creates the start subcommand
func createStartCommand(f *AgentFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Launch an agent for a room",
		Long: `Launch an agent process for the given room via the daemon.
Starting a room that already has a live agent is a no-op.

Examples:
  parley start --room=study-1
  parley start --room=study-1 --api-url=http://remote:8080/api`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(*f)
		},
	}
	addRoomFlag(cmd, f)
	addAPIFlags(cmd, f)
	return cmd
}

// createStopCommand creates the stop subcommand
func createStopCommand(f *AgentFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a room's agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(*f)
		},
	}
	addRoomFlag(cmd, f)
	addAPIFlags(cmd, f)
	return cmd
}

// createStatusCommand creates the status subcommand
func createStatusCommand(f *AgentFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a room's agent status",
		Long: `Show the daemon's local view of the room's agent. With --full the
status also includes the conferencing server's presence check; a failed
check is reported as unconfirmed, never guessed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(*f)
		},
	}
	addRoomFlag(cmd, f)
	cmd.Flags().BoolVar(&f.Full, "full", false, "include in-room presence check")
	addAPIFlags(cmd, f)
	return cmd
}

// createListCommand creates the list subcommand
func createListCommand(f *AgentFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all tracked agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(*f)
		},
	}
	addAPIFlags(cmd, f)
	return cmd
}

// createServeCommand creates the serve subcommand
func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	serveFlags := &ServeFlags{}

	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the parley daemon",
		Long: `Start the parley daemon to launch and supervise agents.
All configuration is loaded from a TOML config file.

Examples:
  parley serve --config=parley.toml
  parley serve parley.toml
  parley serve parley.toml --daemonize --pidfile=/run/parley.pid`,
		RunE: func(cmd *cobra.Command, args []string) error {
			serveFlags.ConfigPath = globalFlags.ConfigPath
			return runServeCommand(serveFlags, args)
		},
	}

	cmd.Flags().BoolVar(&serveFlags.Daemonize, "daemonize", false, "run as daemon in background")
	cmd.Flags().StringVar(&serveFlags.PidFile, "pidfile", "", "write daemon PID to file")
	cmd.Flags().StringVar(&serveFlags.LogFile, "logfile", "", "redirect daemon logs to file")
	return cmd
}
