package metrics

import (
	"os"
	"testing"
)

func TestNewReporter_DisabledReturnsErrDisabled(t *testing.T) {
	_, err := NewReporter(Config{Enabled: false}, nil)
	if err != ErrDisabled {
		t.Errorf("NewReporter() error = %v, want ErrDisabled", err)
	}
}

func TestSplitKey(t *testing.T) {
	cases := map[string][2]string{
		"log:info":     {"log", "info"},
		"http:webhook": {"http", "webhook"},
		"noseparator":  {"noseparator", ""},
	}
	for key, want := range cases {
		service, target := splitKey(key)
		if service != want[0] || target != want[1] {
			t.Errorf("splitKey(%q) = (%q, %q), want (%q, %q)", key, service, target, want[0], want[1])
		}
	}
}

// testConfig returns a configuration for a local dev InfluxDB, matching
// the docker-compose values used across warnbridge's integration tests.
func testConfig() Config {
	return Config{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "warnbridge-dev-token",
		Org:           "warnbridge",
		Bucket:        "metrics",
		FlushInterval: 1,
	}
}

func skipIfNoInfluxDB(t *testing.T) {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		r, err := NewReporter(testConfig(), nil)
		if err != nil {
			t.Skip("InfluxDB not available, skipping integration test")
		}
		r.Close() //nolint:errcheck // test cleanup
	}
}

func TestReporter_IncrementAndSnapshot(t *testing.T) {
	skipIfNoInfluxDB(t)

	r, err := NewReporter(testConfig(), nil)
	if err != nil {
		t.Fatalf("NewReporter() error = %v", err)
	}
	defer r.Close() //nolint:errcheck // test cleanup

	r.IncDelivered("log", "info")
	r.IncDelivered("log", "info")
	r.IncRetried("log", "info")
	r.IncDropped("http", "webhook")
	r.IncFailedOver("http", "webhook")

	snap := r.Snapshot()
	if snap["log:info"]["delivered"] != 2 {
		t.Errorf("log:info delivered = %d, want 2", snap["log:info"]["delivered"])
	}
	if snap["log:info"]["retried"] != 1 {
		t.Errorf("log:info retried = %d, want 1", snap["log:info"]["retried"])
	}
	if snap["http:webhook"]["dropped"] != 1 {
		t.Errorf("http:webhook dropped = %d, want 1", snap["http:webhook"]["dropped"])
	}
	if snap["http:webhook"]["failed_over"] != 1 {
		t.Errorf("http:webhook failed_over = %d, want 1", snap["http:webhook"]["failed_over"])
	}
}
