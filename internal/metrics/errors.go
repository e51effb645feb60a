package metrics

import "errors"

// ErrDisabled indicates InfluxDB reporting is disabled in configuration.
var ErrDisabled = errors.New("metrics: disabled in configuration")
