package observability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

// LokiClient ships structured log lines to a Grafana Loki push endpoint.
// It is optional: when LOKI_URL is unset every log call is a no-op and the
// server relies on stdout logging alone.
type LokiClient struct {
	url      string
	user     string
	password string
	app      string
	client   *http.Client
}

var (
	defaultClient *LokiClient
	initOnce      sync.Once
)

// Init configures the package-level client from the environment:
// LOKI_URL, LOKI_USER, LOKI_PASSWORD.
func Init() {
	initOnce.Do(func() {
		url := os.Getenv("LOKI_URL")
		if url == "" {
			log.Println("[observability] LOKI_URL not set, remote logging disabled")
			return
		}
		defaultClient = &LokiClient{
			url:      url,
			user:     os.Getenv("LOKI_USER"),
			password: os.Getenv("LOKI_PASSWORD"),
			app:      "sfdatacloud-server",
			client:   &http.Client{Timeout: 5 * time.Second},
		}
		log.Println("[observability] loki logging enabled")
	})
}

type lokiPush struct {
	Streams []lokiStream `json:"streams"`
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// push sends one line with the given labels. Failures are logged and
// swallowed; observability never takes down a tool call.
func (c *LokiClient) push(labels map[string]string, line string) {
	stream := map[string]string{"app": c.app}
	for k, v := range labels {
		stream[k] = v
	}
	payload := lokiPush{Streams: []lokiStream{{
		Stream: stream,
		Values: [][2]string{{strconv.FormatInt(time.Now().UnixNano(), 10), line}},
	}}}

	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	req, err := http.NewRequest("POST", c.url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("[observability] loki push failed: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("[observability] loki push rejected: %d", resp.StatusCode)
	}
}

// LogToolCall records one tool execution. Fire and forget.
func LogToolCall(module, tool string, elapsed time.Duration, callErr error) {
	if defaultClient == nil {
		return
	}
	status := "ok"
	detail := ""
	if callErr != nil {
		status = "error"
		detail = callErr.Error()
	}
	line := fmt.Sprintf("tool_call module=%s tool=%s status=%s duration_ms=%d", module, tool, status, elapsed.Milliseconds())
	if detail != "" {
		line += " error=" + strconv.Quote(detail)
	}
	go defaultClient.push(map[string]string{
		"kind":   "tool_call",
		"module": module,
		"status": status,
	}, line)
}

// LogAuthEvent records a credential lifecycle event (login, refresh,
// invalidation, failure).
func LogAuthEvent(event, detail string) {
	if defaultClient == nil {
		return
	}
	line := "auth event=" + event
	if detail != "" {
		line += " detail=" + strconv.Quote(detail)
	}
	go defaultClient.push(map[string]string{"kind": "auth", "event": event}, line)
}
