package builtin

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/nerrad/warnbridge/internal/plugin"
	"github.com/nerrad/warnbridge/internal/textsubst"
)

const defaultExecTimeout = 30 * time.Second

// ExecPlugin launches an external program per delivery. item.Addrs[0] is
// the binary, the rest are its arguments. Two delivery modes, matching
// two distinct ways of feeding a message to a command line tool:
//
//   - args (default): the job body is never passed to the process unless
//     an argument placeholder asks for it. Set the "format_args" option to
//     interpolate "{message}" and "{name}"-style context placeholders into
//     each argument (the program name itself is never interpolated).
//   - stdin: set the "stdin" option to write the job body to the child's
//     standard input instead, newline-terminated, and close it once written.
//
// A new process is spawned for every delivery; this is not meant for
// high-volume targets.
type ExecPlugin struct{}

// Init is a no-op; the exec plugin opens no resources ahead of delivery.
func (ExecPlugin) Init(ctx *plugin.ServiceContext) error { return nil }

// Deliver runs the configured command and reports whether it exited zero.
func (ExecPlugin) Deliver(ctx *plugin.ServiceContext, item *plugin.DeliveryItem) bool {
	if len(item.Addrs) == 0 {
		ctx.Logger.Warn("exec target has no command configured", "target", item.Target)
		return false
	}
	bin, ok := item.Addrs[0].(string)
	if !ok || bin == "" {
		ctx.Logger.Warn("exec target's first address is not a command string", "target", item.Target)
		return false
	}

	formatArgs, _ := ctx.Options["format_args"].(bool)
	args := make([]string, 0, len(item.Addrs)-1)
	for _, raw := range item.Addrs[1:] {
		arg, ok := raw.(string)
		if !ok {
			continue
		}
		if formatArgs {
			placeholders := make(map[string]any, len(item.Context)+1)
			for k, v := range item.Context {
				placeholders[k] = v
			}
			placeholders["message"] = item.Body
			arg = textsubst.Interpolate(arg, placeholders)
		}
		args = append(args, arg)
	}

	timeout := defaultExecTimeout
	if secs, ok := ctx.Options["timeout"].(float64); ok && secs > 0 {
		timeout = time.Duration(secs * float64(time.Second))
	}
	runCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, bin, args...) //nolint:gosec // target binary/args are operator-configured, not user input
	if cwd, ok := ctx.Options["cwd"].(string); ok && cwd != "" {
		cmd.Dir = cwd
	}

	usePipe, _ := ctx.Options["stdin"].(bool)
	if usePipe {
		text := item.Body
		if len(text) == 0 || text[len(text)-1] != '\n' {
			text += "\n"
		}
		cmd.Stdin = bytes.NewReader([]byte(text))
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			ctx.Logger.Warn("exec target exited non-zero", "target", item.Target, "binary", bin, "error", err, "output", string(output))
		} else {
			ctx.Logger.Error("cannot execute exec target", "target", item.Target, "binary", bin, "error", err)
		}
		return false
	}
	ctx.Logger.Debug("exec target completed", "target", item.Target, "binary", bin, "output", string(output))
	return true
}
