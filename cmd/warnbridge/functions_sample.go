package main

import (
	"flag"
	"fmt"
	"os"
)

// functionsCommand handles the "functions" subcommand's sole action,
// "sample".
func functionsCommand(args []string) int {
	fs := flag.NewFlagSet("functions", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 || fs.Arg(0) != "sample" {
		fmt.Fprintln(os.Stderr, "usage: warnbridge functions sample")
		return 1
	}
	os.Stdout.WriteString(sampleFunctionsGo)
	return 0
}

// sampleFunctionsGo is a sample helper-registration file: a package whose
// NewRegistry builds a helperfn.Registry holding one filter, datamap,
// format, target and periodic function, for copying into a project.
// supervisor.Run takes no Registry; it builds its own empty one.
const sampleFunctionsGo = `// Package customfuncs is a starting point for project-specific route
// helpers: filters, datamaps, formatters and periodic tasks.
//
// Copy this file into your project, edit the functions, and register the
// Registry it builds in place of helperfn.NewRegistry() wherever warnbridge
// is wired up.
package customfuncs

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad/warnbridge/internal/helperfn"
)

// NewRegistry returns a Registry with this file's sample functions
// registered under the names used in routes.*.filter_fn / datamap_fn /
// format_fn / targets {function: ...} / periodic.*.function.
func NewRegistry() *helperfn.Registry {
	r := helperfn.NewRegistry()

	r.RegisterFilter("SuppressHealthyBattery", SuppressHealthyBattery)
	r.RegisterDataMap("OwnTracksTopicToData", OwnTracksTopicToData)
	r.RegisterFormat("OwnTracksFormat", OwnTracksFormat)
	r.RegisterTargetFunc("TopicTargetList", TopicTargetList)
	r.RegisterPeriodic("PublishHeartbeat", PublishHeartbeat)

	return r
}

// SuppressHealthyBattery drops a message whose JSON payload carries a "batt"
// field above 20; anything else (missing field, unparsable payload) is
// passed through rather than dropped, since a filter's job is to narrow
// delivery, not to fail closed on malformed input.
func SuppressHealthyBattery(topic string, payload []byte, routeName string, ctx map[string]any) (bool, error) {
	var data struct {
		Batt *int ` + "`json:\"batt\"`" + `
	}
	if err := json.Unmarshal(payload, &data); err != nil || data.Batt == nil {
		return false, nil
	}
	return *data.Batt > 20, nil
}

// OwnTracksTopicToData extracts username and device from an OwnTracks
// style topic ("owntracks/username/device") into the transform context.
func OwnTracksTopicToData(topic string, ctx map[string]any) (map[string]any, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 {
		return map[string]any{"username": "unknown", "device": "unknown"}, nil
	}
	return map[string]any{"username": parts[1], "device": parts[2]}, nil
}

// OwnTracksFormat renders a location update using fields OwnTracksTopicToData
// and the route's JSON payload fields contributed to ctx.
func OwnTracksFormat(ctx map[string]any) (string, error) {
	return fmt.Sprintf("%v %v at %v,%v (%s)",
		ctx["username"], ctx["device"], ctx["lat"], ctx["lon"],
		time.Now().Format(time.RFC3339)), nil
}

// TopicTargetList computes a route's targets at delivery time instead of
// from static configuration, demonstrating a computed targets_spec.
func TopicTargetList(topic string, ctx map[string]any, routeName string, topicTargets any) ([]string, error) {
	targets := []string{"log:info"}
	if condition, ok := ctx["condition"].(string); ok {
		switch condition {
		case "sunny":
			targets = append(targets, "file:backup")
		case "rainy":
			targets = append(targets, "log:warn")
		}
	}
	return targets, nil
}

// PublishHeartbeat is a periodic task: its return value becomes a
// synthetic message re-entering the transform pipeline on the topic
// configured for this periodic entry.
func PublishHeartbeat() ([]byte, error) {
	return []byte(fmt.Sprintf("alive at %s", time.Now().Format(time.RFC3339))), nil
}
`
