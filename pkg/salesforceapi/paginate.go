package salesforceapi

import (
	"net/url"
	"strings"

	"context"
)

// PaginationStyle selects which continuation protocol a target speaks.
type PaginationStyle int

const (
	// PaginateNone: single response, no continuation.
	PaginateNone PaginationStyle = iota
	// PaginateBatchID: Query API V2 style, `data` rows plus a nextBatchId
	// token fetched via GET {queryURL}?batchId={id}.
	PaginateBatchID
	// PaginateNextURL: legacy query API style, `records` rows plus
	// done/nextRecordsUrl continuation.
	PaginateNextURL
)

// defaultMaxPages bounds any pagination loop. Generous, but finite: a
// misbehaving server that never terminates its cursor chain is a hard
// failure, not an infinite loop or a silent truncation.
const defaultMaxPages = 1000

// paginator drains a target's continuation protocol to completion,
// accumulating rows in the order pages arrive. The server-determined row
// order is preserved; nothing is reordered or deduplicated.
type paginator struct {
	doer     *httpDoer
	maxPages int
}

func (p *paginator) limit() int {
	if p.maxPages > 0 {
		return p.maxPages
	}
	return defaultMaxPages
}

// drain appends all continuation pages for the first response to res.Rows.
// requestURL is the URL the first response came from (batch follow-ups are
// issued against it); relative next-record URLs resolve against the
// credential's instance URL.
func (p *paginator) drain(ctx context.Context, style PaginationStyle, cred Credential, target, requestURL string, first map[string]any, res *Result) error {
	switch style {
	case PaginateBatchID:
		return p.drainBatches(ctx, cred, target, requestURL, first, res)
	case PaginateNextURL:
		return p.drainRecords(ctx, cred, target, first, res)
	default:
		return nil
	}
}

// drainBatches follows nextBatchId tokens. A non-2xx follow-up is treated as
// end-of-pages rather than an error: the rows accumulated so far are kept.
func (p *paginator) drainBatches(ctx context.Context, cred Credential, target, queryURL string, first map[string]any, res *Result) error {
	batchID, _ := first["nextBatchId"].(string)

	for page := 0; batchID != ""; page++ {
		if page >= p.limit() {
			return &PaginationLimitError{Target: target, MaxPages: p.limit()}
		}

		batchURL := queryURL + "?batchId=" + url.QueryEscape(batchID)
		resp, err := p.doer.do(ctx, "GET", batchURL, cred.Token, nil)
		if err != nil || !resp.Success() {
			break
		}

		payload, err := resp.JSON(target)
		if err != nil {
			break
		}

		res.Rows = append(res.Rows, extractRows(payload)...)
		batchID, _ = payload["nextBatchId"].(string)
	}

	if len(res.Rows) > res.TotalCount {
		res.TotalCount = len(res.Rows)
	}
	return nil
}

// drainRecords follows done/nextRecordsUrl until the server reports done.
// Unlike batch paging, a failed follow-up here is a hard failure: the legacy
// API promises the chain stays valid until done=true.
func (p *paginator) drainRecords(ctx context.Context, cred Credential, target string, first map[string]any, res *Result) error {
	payload := first

	for page := 0; ; page++ {
		if done, ok := payload["done"].(bool); !ok || done {
			break
		}
		nextURL, _ := payload["nextRecordsUrl"].(string)
		if nextURL == "" {
			break
		}
		if page >= p.limit() {
			return &PaginationLimitError{Target: target, MaxPages: p.limit()}
		}

		if strings.HasPrefix(nextURL, "/") {
			nextURL = strings.TrimSuffix(cred.InstanceURL, "/") + nextURL
		}

		resp, err := p.doer.do(ctx, "GET", nextURL, cred.Token, nil)
		if err != nil {
			return wrapTransport(target, err)
		}
		if !resp.Success() {
			return &UpstreamError{Target: target, Status: resp.Status, Body: string(resp.Body)}
		}

		next, err := resp.JSON(target)
		if err != nil {
			return err
		}

		res.Rows = append(res.Rows, extractRows(next)...)
		payload = next
	}

	if len(res.Rows) > res.TotalCount {
		res.TotalCount = len(res.Rows)
	}
	return nil
}
