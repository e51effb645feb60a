package builtin

import (
	"os"

	"github.com/nerrad/warnbridge/internal/plugin"
	"github.com/nerrad/warnbridge/internal/textsubst"
)

// FilePlugin appends (or overwrites) a Job's body to a target-configured
// file path. The path may reference context values via "{name}"
// placeholders.
type FilePlugin struct{}

// Init is a no-op; the file plugin opens its target file per delivery.
func (FilePlugin) Init(ctx *plugin.ServiceContext) error { return nil }

// Deliver writes item.Body to the path named by item.Addrs[0].
func (FilePlugin) Deliver(ctx *plugin.ServiceContext, item *plugin.DeliveryItem) bool {
	pathSpec, ok := firstString(item.Addrs)
	if !ok {
		ctx.Logger.Warn("file target has no path configured", "target", item.Target)
		return false
	}
	path := textsubst.Interpolate(pathSpec, item.Context)

	mode := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if overwrite, _ := ctx.Options["overwrite"].(bool); overwrite {
		mode = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}

	f, err := os.OpenFile(path, mode, 0o644)
	if err != nil {
		ctx.Logger.Warn("cannot open file target", "path", path, "error", err)
		return false
	}
	defer f.Close()

	body := item.Body
	if appendNewline, _ := ctx.Options["append_newline"].(bool); appendNewline {
		body += "\n"
	}

	if _, err := f.WriteString(body); err != nil {
		ctx.Logger.Warn("cannot write file target", "path", path, "error", err)
		return false
	}
	return true
}
