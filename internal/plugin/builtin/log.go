package builtin

import (
	"fmt"

	"github.com/nerrad/warnbridge/internal/plugin"
)

// LogPlugin writes a Job's body to the structured logger at a level
// named by the target's first address parameter.
type LogPlugin struct{}

// Init is a no-op; the log plugin has no connections to open.
func (LogPlugin) Init(ctx *plugin.ServiceContext) error { return nil }

// Deliver logs item.Body at the level named by item.Addrs[0].
func (LogPlugin) Deliver(ctx *plugin.ServiceContext, item *plugin.DeliveryItem) bool {
	level, ok := firstString(item.Addrs)
	if !ok {
		ctx.Logger.Warn("log target has no level configured", "target", item.Target)
		return false
	}

	switch level {
	case "debug":
		ctx.Logger.Debug(item.Body, "topic", item.Topic, "route", item.RouteName)
	case "info":
		ctx.Logger.Info(item.Body, "topic", item.Topic, "route", item.RouteName)
	case "warn", "warning":
		ctx.Logger.Warn(item.Body, "topic", item.Topic, "route", item.RouteName)
	case "error", "crit":
		ctx.Logger.Error(item.Body, "topic", item.Topic, "route", item.RouteName)
	default:
		ctx.Logger.Warn(fmt.Sprintf("unknown log level %q for target %q", level, item.Target))
		return false
	}
	return true
}

func firstString(addrs []any) (string, bool) {
	if len(addrs) == 0 {
		return "", false
	}
	s, ok := addrs[0].(string)
	return s, ok
}
