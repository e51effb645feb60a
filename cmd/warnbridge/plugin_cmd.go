package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/nerrad/warnbridge/internal/config"
	"github.com/nerrad/warnbridge/internal/logging"
	"github.com/nerrad/warnbridge/internal/pipeline"
	"github.com/nerrad/warnbridge/internal/plugin"
	"github.com/nerrad/warnbridge/internal/supervisor"
	"github.com/nerrad/warnbridge/internal/target"
)

// pluginJobInput is the JSON body "plugin test" reads from stdin: the
// fields of a pipeline.Job that a plugin's Deliver actually consumes.
// Payload is the raw broker payload, base64-encoded since JSON has no
// byte-string type; when omitted it defaults to Body, since most manual
// tests care about the formatted message, not the original bytes.
type pluginJobInput struct {
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Payload   string         `json:"payload"`
	Image     string         `json:"image"`
	Context   map[string]any `json:"context"`
	Topic     string         `json:"topic"`
	RouteName string         `json:"route_name"`
}

// pluginCommand handles the "plugin" subcommand's sole action,
// "test <service> <target>": it loads configuration, initialises every
// declared service's plugin, reads a job body as JSON from stdin, and
// runs that one service/target's Deliver directly, bypassing routing,
// the transform pipeline and the dispatch queue entirely.
func pluginCommand(args []string) int {
	fs := flag.NewFlagSet("plugin", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to configuration file (overrides WARNBRIDGE_CONFIG)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) != 3 || rest[0] != "test" {
		fmt.Fprintln(os.Stderr, "usage: warnbridge plugin test <service> <target>")
		return 1
	}
	service, targetName := rest[1], rest[2]

	cfg, err := config.Load(getConfigPath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		return 1
	}

	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}, version)

	registry, err := plugin.NewRegistry(cfg.Services, supervisor.BuiltinPlugins(), log, version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: building plugin registry: %v\n", err)
		return 2
	}
	if !registry.HasTarget(service, targetName) {
		fmt.Fprintf(os.Stderr, "Error: no such service/target %q:%q\n", service, targetName)
		return 1
	}

	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: reading job body from stdin: %v\n", err)
		return 1
	}
	var input pluginJobInput
	if err := json.Unmarshal(body, &input); err != nil {
		fmt.Fprintf(os.Stderr, "Error: parsing job body as JSON: %v\n", err)
		return 1
	}

	payload := []byte(input.Body)
	if input.Payload != "" {
		decoded, err := base64.StdEncoding.DecodeString(input.Payload)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: payload is not valid base64: %v\n", err)
			return 1
		}
		payload = decoded
	}

	job := pipeline.Job{
		ID:        pipeline.NewJobID(),
		Target:    target.Target{Service: service, Name: targetName},
		RouteName: input.RouteName,
		Topic:     input.Topic,
		Title:     input.Title,
		Body:      input.Body,
		Payload:   payload,
		Image:     input.Image,
		Context:   input.Context,
	}

	delivered := registry.Dispatch(job.Target, job)
	if !delivered {
		fmt.Fprintln(os.Stderr, "delivery failed")
		return 2
	}
	fmt.Println("delivered")
	return 0
}
