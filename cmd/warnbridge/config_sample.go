package main

import (
	"flag"
	"fmt"
	"os"
)

// configCommand handles the "config" subcommand's sole action, "sample".
func configCommand(args []string) int {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 || fs.Arg(0) != "sample" {
		fmt.Fprintln(os.Stderr, "usage: warnbridge config sample")
		return 1
	}
	fmt.Print(sampleConfigYAML)
	return 0
}

// sampleConfigYAML is a complete, commented configuration suitable for
// redirecting into a file and editing, covering every section Config
// understands.
const sampleConfigYAML = `# warnbridge sample configuration.
# Redirect this to a file and edit: warnbridge config sample > config.yaml

daemon:
  name: warnbridge
  client_id: warnbridge

logging:
  level: info       # debug | info | warn | error
  format: json       # json | text
  output: stdout     # stdout | stderr

mqtt:
  broker:
    host: localhost
    port: 1883
    tls: false
    client_id: warnbridge
  auth:
    username: ""
    password: ""   # prefer WARNBRIDGE_MQTT_PASSWORD
  qos: 1
  reconnect:
    initial_delay: 1    # seconds
    max_delay: 60       # seconds
  skip_retained: false

database:
  path: ./data/warnbridge.db
  wal_mode: true
  busy_timeout: 5      # seconds

influxdb:
  enabled: false
  url: http://localhost:8086
  token: ""            # prefer WARNBRIDGE_INFLUXDB_TOKEN
  org: home
  bucket: warnbridge
  flush_interval: 10   # seconds

api:
  enabled: true
  host: 127.0.0.1
  port: 8080
  timeouts:
    read: 30
    write: 30
    idle: 60
  cors:
    allowed_origins: ["http://localhost:3000"]
    allowed_methods: ["GET", "POST"]
    allowed_headers: ["Authorization", "Content-Type"]
  websocket:
    max_message_size: 1024
    ping_interval: 30
    pong_timeout: 60

security:
  jwt:
    secret: ""                 # required if api.enabled; set WARNBRIDGE_JWT_SECRET, 32+ chars
    access_token_ttl: 60       # minutes
  admin_user:
    username: admin
    password_hash: ""          # argon2id hash, PHC string format

defaults:
  queue_capacity: 1000
  retry_limit: 2
  ignore_retained: false
  backoff_base: 2s
  shutdown_grace: 10s
  strict_references: false

services:
  log:
    kind: log
    targets:
      info: []
  file:
    kind: file
    targets:
      backup: ["./data/backup.log"]
  notify:
    kind: http
    targets:
      team: ["https://hooks.example.com/notify"]

routes:
  all-sensors:
    topic_pattern: "sensors/#"
    targets:
      - "log:info"
      - "file:backup"
    format: "{name} reports {value}"
    priority: 0

failover:
  targets:
    - "log:info"

periodic: {}

templates:
  dir: ./templates
`
