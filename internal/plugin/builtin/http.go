package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/nerrad/warnbridge/internal/plugin"
	"github.com/nerrad/warnbridge/internal/textsubst"
)

const defaultHTTPTimeout = 10 * time.Second

// HTTPPlugin posts a Job's body to a target-configured URL. HTTPS URLs
// are sent over an explicit http2.Transport; plain HTTP falls back to
// net/http's default transport.
type HTTPPlugin struct {
	h1Client *http.Client
	h2Client *http.Client
}

// Init prepares two http.Client instances, one per scheme.
func (p *HTTPPlugin) Init(ctx *plugin.ServiceContext) error {
	p.h1Client = &http.Client{Timeout: defaultHTTPTimeout}
	p.h2Client = &http.Client{Timeout: defaultHTTPTimeout, Transport: &http2.Transport{}}
	return nil
}

// Deliver issues an HTTP request per item.Addrs: Addrs[0] is the URL,
// Addrs[1] (optional) is a parameter map with method, data, json, and
// timeout keys.
func (p *HTTPPlugin) Deliver(ctx *plugin.ServiceContext, item *plugin.DeliveryItem) bool {
	rawURL, ok := firstString(item.Addrs)
	if !ok {
		ctx.Logger.Warn("http target has no URL configured", "target", item.Target)
		return false
	}

	if formatURL, _ := ctx.Options["format_url"].(bool); formatURL {
		rawURL = textsubst.Interpolate(rawURL, item.Context)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		ctx.Logger.Warn("invalid http target URL", "url", rawURL, "error", err)
		return false
	}

	params := map[string]any{}
	if len(item.Addrs) > 1 {
		if m, ok := item.Addrs[1].(map[string]any); ok {
			params = m
		}
	}

	method := "POST"
	if m, ok := params["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}

	body, useJSON := requestBody(item, params)

	req, err := http.NewRequest(method, parsed.String(), bytes.NewReader(body))
	if err != nil {
		ctx.Logger.Warn("cannot build http request", "url", rawURL, "error", err)
		return false
	}
	req.Header.Set("User-Agent", "warnbridge/"+ctx.Version)
	if useJSON {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth, ok := params["auth"].([]string); ok && len(auth) == 2 {
		req.SetBasicAuth(auth[0], auth[1])
	}

	timeout := defaultHTTPTimeout
	if secs, ok := params["timeout"].(float64); ok && secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	reqCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req = req.WithContext(reqCtx)

	client := p.h1Client
	if parsed.Scheme == "https" {
		client = p.h2Client
	}

	resp, err := client.Do(req)
	if err != nil {
		ctx.Logger.Warn("http delivery failed", "url", rawURL, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		ctx.Logger.Warn("http delivery returned error status", "url", rawURL, "status", resp.StatusCode)
		return false
	}
	return true
}

func requestBody(item *plugin.DeliveryItem, params map[string]any) ([]byte, bool) {
	data, hasData := params["data"].(map[string]any)
	useJSON, _ := params["json"].(bool)

	if !hasData {
		return []byte(item.Body), false
	}

	rendered := make(map[string]any, len(data))
	for k, v := range data {
		s, ok := v.(string)
		if !ok {
			rendered[k] = v
			continue
		}
		if strings.HasPrefix(s, "@") {
			rendered[k] = item.Context[strings.TrimPrefix(s, "@")]
			continue
		}
		rendered[k] = textsubst.Interpolate(s, item.Context)
	}

	if useJSON {
		b, err := json.Marshal(rendered)
		if err != nil {
			return []byte(item.Body), false
		}
		return b, true
	}

	values := url.Values{}
	for k, v := range rendered {
		values.Set(k, textsubst.RenderValue(v))
	}
	return []byte(values.Encode()), false
}
