// Package salesforceapi provides a hand-written Salesforce HTTP client with
// a fallback router across API generations: the Data Cloud Query API V2, the
// Connect API, and the legacy SOQL query API. Responses from every
// generation are normalized into a single Result shape.
package salesforceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
)

const (
	// defaultCallTimeout bounds a single HTTP call to Salesforce.
	defaultCallTimeout = 30 * time.Second
	// maxBodySize caps how much of an upstream response is read.
	maxBodySize = 16 * 1024 * 1024
)

// Response is the raw outcome of one HTTP call: status code plus body bytes.
type Response struct {
	Status int
	Body   []byte
}

// Success reports whether the status is 2xx.
func (r *Response) Success() bool {
	return r.Status >= 200 && r.Status < 300
}

// JSON decodes the body into a generic JSON object. A non-object payload
// (array, plain text, HTML error page) yields a NormalizationError tagged
// with the given target name.
func (r *Response) JSON(target string) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(r.Body, &payload); err != nil {
		return nil, &NormalizationError{Target: target, Reason: "response body is not a JSON object"}
	}
	return payload, nil
}

// httpDoer issues authenticated requests against a Salesforce instance.
type httpDoer struct {
	client *http.Client
}

func newHTTPDoer(timeout time.Duration) *httpDoer {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &httpDoer{client: &http.Client{Timeout: timeout}}
}

// do sends one request. body, when non-nil, is JSON-encoded. The bearer
// token is attached as Authorization header. Transport failures (DNS, TLS,
// timeout) are returned as errors; any HTTP status, including 4xx/5xx, is
// returned as a Response for the caller to classify.
func (d *httpDoer) do(ctx context.Context, method, url, token string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	return &Response{Status: resp.StatusCode, Body: data}, nil
}
