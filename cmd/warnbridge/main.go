// warnbridge bridges MQTT messages to notification services: it matches
// each incoming message against configured routes, runs the transform
// pipeline, and dispatches the result to one or more plugin-backed
// targets with retry and failover.
package main

import (
	"fmt"
	"os"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// defaultConfigPath is used when neither -config nor WARNBRIDGE_CONFIG is set.
const defaultConfigPath = "configs/config.yaml"

func main() {
	os.Exit(dispatch(os.Args[1:]))
}

// dispatch routes to the requested subcommand and returns the process
// exit code: 0 success, 1 configuration error, 2 runtime startup/execution
// failure.
func dispatch(args []string) int {
	if len(args) == 0 {
		return runCommand(args)
	}

	switch args[0] {
	case "run":
		return runCommand(args[1:])
	case "config":
		return configCommand(args[1:])
	case "functions":
		return functionsCommand(args[1:])
	case "plugin":
		return pluginCommand(args[1:])
	case "-h", "--help", "help":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "warnbridge: unknown command %q\n\n", args[0])
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `warnbridge %s (commit %s, built %s)

Usage:
  warnbridge [run] [-config path]       start the daemon (default command)
  warnbridge config sample              print a sample configuration file to stdout
  warnbridge functions sample           print a sample helper-functions Go file to stdout
  warnbridge plugin test <service> <target>
                                         deliver a job read as JSON from stdin through
                                         one configured service/target, for interactive
                                         testing of plugin wiring
  warnbridge -h | --help                show this screen

Environment:
  WARNBRIDGE_CONFIG       configuration file path (used when -config is not given; overrides the default)

Exit codes:
  0  success
  1  configuration error
  2  runtime startup or execution failure
`, version, commit, date)
}

// getConfigPath returns the configuration file path: flagPath if set,
// otherwise the WARNBRIDGE_CONFIG environment variable, otherwise
// defaultConfigPath.
func getConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if path := os.Getenv("WARNBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
