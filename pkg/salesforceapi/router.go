package salesforceapi

import (
	"context"
	"log"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Dialect is the query syntax flavor a target expects.
type Dialect int

const (
	// DialectNone: the target takes no query text.
	DialectNone Dialect = iota
	// DialectSQL: Data Cloud SQL (Query API V2).
	DialectSQL
	// DialectSOQL: the legacy record query language.
	DialectSOQL
)

// LogicalQuery is the caller's query, immutable once constructed. The router
// translates it when a target's dialect differs.
type LogicalQuery struct {
	Text    string
	Dialect Dialect
}

// OpKind splits read from mutating operations. Reads may fall through the
// whole target chain on hard failures; mutating operations stop at the first
// hard failure because retrying against another target risks duplicate side
// effects. Expected unavailability (404-class) falls through for both kinds:
// nothing happened upstream.
type OpKind int

const (
	OpRead OpKind = iota
	OpMutating
)

// Target is one API generation that can answer an operation: how to build
// the request, which dialect it speaks, and which pagination protocol its
// responses use.
type Target struct {
	Name     string
	Dialect  Dialect
	Paginate PaginationStyle

	// Build constructs the request. query is the logical query text already
	// translated into this target's dialect; targets that take no query
	// ignore it. A nil body means no request body.
	Build func(cred Credential, query string) (method, url string, body any)
}

// Operation is one logical request: an ordered, static target chain tried
// first to last. The order is fixed per operation (newest API first, legacy
// query API last) and never adapts to latency or past outcomes.
type Operation struct {
	Name    string
	Kind    OpKind
	Query   LogicalQuery
	Targets []Target

	// Placeholder shapes the degraded result returned when every target is
	// exhausted. Operations whose contract promises a response shape (the
	// "simulated" activation family) supply a synthetic illustrative
	// record here; nil yields an empty degraded result.
	Placeholder func() *Result
}

// Config tunes the router's safety bounds.
type Config struct {
	CallTimeout  time.Duration // per HTTP call; default 30s
	ChainTimeout time.Duration // per fallback chain; default 2m
	MaxPages     int           // pagination bound; default 1000
}

const defaultChainTimeout = 2 * time.Minute

// Router executes logical operations against an ordered fallback chain of
// API targets, normalizing whichever generation answers into a Result.
type Router struct {
	session      *Session
	doer         *httpDoer
	pager        paginator
	chainTimeout time.Duration
}

var (
	tracer = otel.Tracer("sfdatacloud/server/pkg/salesforceapi")
	meter  = otel.Meter("sfdatacloud/server/pkg/salesforceapi")

	targetOutcomes metric.Int64Counter
	degradedTotal  metric.Int64Counter
)

func init() {
	targetOutcomes, _ = meter.Int64Counter("salesforce.target.outcomes",
		metric.WithDescription("Per-target routing outcomes (success, unavailable, hard_failure)"))
	degradedTotal, _ = meter.Int64Counter("salesforce.degraded.results",
		metric.WithDescription("Operations answered by a degraded placeholder"))
}

// NewRouter creates a router over the given credential session.
func NewRouter(session *Session, cfg Config) *Router {
	doer := newHTTPDoer(cfg.CallTimeout)
	chainTimeout := cfg.ChainTimeout
	if chainTimeout <= 0 {
		chainTimeout = defaultChainTimeout
	}
	return &Router{
		session:      session,
		doer:         doer,
		pager:        paginator{doer: doer, maxPages: cfg.MaxPages},
		chainTimeout: chainTimeout,
	}
}

// Execute runs the operation's target chain in order until one target
// succeeds. Outcome classification is strictly by HTTP status code:
//
//   - 2xx: drain pagination, normalize, done.
//   - 404/405/501: expected unavailability, next target.
//   - anything else (including transport errors and timeouts): hard failure,
//     next target for reads, immediate error for mutating operations.
//
// When the chain is exhausted without success the caller gets a degraded
// Result (never an error), carrying the last hard failure in its Note.
// PaginationLimitError and credential failures always propagate.
func (r *Router) Execute(ctx context.Context, op Operation) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, r.chainTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "salesforce.execute",
		trace.WithAttributes(attribute.String("operation", op.Name)))
	defer span.End()

	cred, err := r.session.Get(ctx)
	if err != nil {
		return nil, err
	}

	var lastHard error
	for _, target := range op.Targets {
		res, outcome, err := r.tryTarget(ctx, cred, op, target)
		targetOutcomes.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", op.Name),
			attribute.String("target", target.Name),
			attribute.String("outcome", outcome),
		))

		switch outcome {
		case "success":
			span.SetAttributes(attribute.String("source", target.Name))
			return res, nil
		case "unavailable":
			log.Printf("[router] %s: %s unavailable, trying next target", op.Name, target.Name)
			continue
		default: // hard_failure
			var limitErr *PaginationLimitError
			if errors.As(err, &limitErr) {
				return nil, err
			}
			if op.Kind == OpMutating {
				return nil, err
			}
			lastHard = err
			log.Printf("[router] %s: %s failed: %v", op.Name, target.Name, err)
		}
	}

	return r.degraded(ctx, op, lastHard), nil
}

// tryTarget executes a single target and classifies the outcome as
// "success", "unavailable", or "hard_failure".
func (r *Router) tryTarget(ctx context.Context, cred Credential, op Operation, target Target) (*Result, string, error) {
	query := op.Query.Text
	if query != "" && target.Dialect == DialectSOQL && op.Query.Dialect == DialectSQL {
		query = ConvertSQLToSOQL(query)
	}

	method, reqURL, body := target.Build(cred, query)
	resp, err := r.doer.do(ctx, method, reqURL, cred.Token, body)
	if err != nil {
		return nil, "hard_failure", wrapTransport(target.Name, err)
	}

	switch {
	case isUnavailableStatus(resp.Status):
		return nil, "unavailable", &EndpointUnavailableError{Target: target.Name, Status: resp.Status}
	case resp.Status == 401:
		// Session expired upstream: drop it so the next request logs in again.
		r.session.Invalidate()
		return nil, "hard_failure", &UpstreamError{Target: target.Name, Status: resp.Status, Body: string(resp.Body)}
	case !resp.Success():
		return nil, "hard_failure", &UpstreamError{Target: target.Name, Status: resp.Status, Body: string(resp.Body)}
	}

	payload, err := resp.JSON(target.Name)
	if err != nil {
		return nil, "hard_failure", err
	}

	res, err := Normalize(payload, target.Name)
	if err != nil {
		return nil, "hard_failure", err
	}

	if err := r.pager.drain(ctx, target.Paginate, cred, target.Name, reqURL, payload, res); err != nil {
		return nil, "hard_failure", err
	}

	return res, "success", nil
}

// degraded builds the placeholder result for an exhausted chain.
func (r *Router) degraded(ctx context.Context, op Operation, lastHard error) *Result {
	degradedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op.Name)))

	var res *Result
	if op.Placeholder != nil {
		res = op.Placeholder()
	} else {
		res = &Result{Rows: []map[string]any{}}
	}
	res.Degraded = true
	if res.Source == "" {
		res.Source = "simulated"
	}
	if res.TotalCount == 0 {
		res.TotalCount = len(res.Rows)
	}
	if lastHard != nil {
		res.Note = "no API target could answer " + op.Name + "; last failure: " + lastHard.Error()
	} else if res.Note == "" {
		res.Note = "no API target available for " + op.Name + "; returning simulated response"
	}
	return res
}
