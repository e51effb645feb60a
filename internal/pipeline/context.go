package pipeline

import (
	"encoding/json"
	"strings"
	"time"
)

// buildBaseContext seeds a transform context from a Message's own
// fields: the raw topic and payload, QoS and retained flags, positional
// topic segments, and time fields derived from ReceiveTime.
func buildBaseContext(msg Message) map[string]any {
	ctx := make(map[string]any)

	ctx["topic"] = msg.Topic
	ctx["_topic"] = msg.Topic
	ctx["payload"] = string(msg.Payload)
	ctx["qos"] = msg.QoS
	ctx["retained"] = msg.Retained

	parts := strings.Split(msg.Topic, "/")
	topicParts := make([]any, len(parts))
	for i, p := range parts {
		topicParts[i] = p
	}
	ctx["_topic_parts"] = topicParts

	t := msg.ReceiveTime
	if t.IsZero() {
		t = time.Now()
	}
	ctx["_dtepoch"] = t.Unix()
	ctx["_dtiso"] = t.UTC().Format("2006-01-02T15:04:05.000000Z")
	ctx["_ltiso"] = t.Format("2006-01-02T15:04:05.000000")
	ctx["_dthhmm"] = t.Format("15:04")
	ctx["_dthhmmss"] = t.Format("15:04:05")

	return ctx
}

// decodePayload attempts an object-form decode of payload, merging any
// resulting key/value pairs into ctx. Decode failure is never fatal: ctx
// is simply left without payload-derived keys.
func decodePayload(ctx map[string]any, payload []byte) {
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		return
	}
	for k, v := range obj {
		ctx[k] = v
	}
}

// snapshot returns a deep, disconnected copy of ctx so a Job's context
// can outlive concurrent mutation of the pipeline's working copy.
func snapshot(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[k] = deepCopyValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			out[i] = deepCopyValue(vv)
		}
		return out
	default:
		return val
	}
}
