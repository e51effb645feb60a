// Package builtin provides the service plugins shipped with warnbridge
// itself: log, file, http, and exec. Each implements plugin.Plugin.
package builtin
