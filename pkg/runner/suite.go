// Package runner executes resolved requests against a live API, evaluates
// their assertions and records suite results.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/blackcoderx/opencollection/pkg/assertion"
	"github.com/blackcoderx/opencollection/pkg/collection"
	"github.com/blackcoderx/opencollection/pkg/engine"
	"github.com/blackcoderx/opencollection/pkg/logging"
)

// Failure policies.
const (
	OnFailureStop     = "stop"
	OnFailureContinue = "continue"
)

// Resolver is the part of the engine the runner depends on.
type Resolver interface {
	ResolveAll(ctx context.Context, c *collection.Collection, ids []collection.ItemID, envKey string) ([]*engine.Result, error)
	Assert(res *engine.Result, resp *assertion.Response) []assertion.Result
}

// Options configures a Runner.
type Options struct {
	// Rate caps requests per second. Zero or less means unlimited.
	Rate float64
	// OnFailure is OnFailureStop (the default) or OnFailureContinue.
	OnFailure string
	// ResultsDir receives a JSON file per suite when set.
	ResultsDir string
	Timeout    time.Duration
	// BaseDir anchors relative file paths in request bodies.
	BaseDir string
}

// Runner sends the requests of a collection in document order.
type Runner struct {
	resolver Resolver
	client   *Client
	limiter  *rate.Limiter
	logger   *zap.Logger
	opts     Options
}

// New creates a Runner.
func New(resolver Resolver, logger *zap.Logger, opts Options) (*Runner, error) {
	switch opts.OnFailure {
	case "":
		opts.OnFailure = OnFailureStop
	case OnFailureStop, OnFailureContinue:
	default:
		return nil, fmt.Errorf("on_failure must be %q or %q, got %q", OnFailureStop, OnFailureContinue, opts.OnFailure)
	}

	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	return &Runner{
		resolver: resolver,
		client:   NewClient(opts.Timeout, opts.BaseDir),
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logging.OrNop(logger),
		opts:     opts,
	}, nil
}

// AssertionResult is the recorded outcome of one assertion.
type AssertionResult struct {
	Expression string `json:"expression"`
	Operator   string `json:"operator"`
	Expected   string `json:"expected,omitempty"`
	Actual     any    `json:"actual"`
	Passed     bool   `json:"passed"`
	Reason     string `json:"reason,omitempty"`
}

// TestResult represents the result of a single request.
type TestResult struct {
	Name       string            `json:"name"`
	Item       string            `json:"item"`
	Method     string            `json:"method"`
	URL        string            `json:"url"`
	Passed     bool              `json:"passed"`
	Duration   time.Duration     `json:"duration"`
	Error      string            `json:"error,omitempty"`
	StatusCode int               `json:"status_code,omitempty"`
	Unresolved []string          `json:"unresolved,omitempty"`
	Assertions []AssertionResult `json:"assertions,omitempty"`

	response *Response
}

// Response returns the HTTP response, or nil when the request failed.
func (t *TestResult) Response() *Response { return t.response }

// SuiteResult represents the result of an entire run.
type SuiteResult struct {
	Name        string        `json:"name"`
	Environment string        `json:"environment,omitempty"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Duration    time.Duration `json:"duration"`
	TotalTests  int           `json:"total_tests"`
	Passed      int           `json:"passed"`
	Failed      int           `json:"failed"`
	Tests       []TestResult  `json:"tests"`
	ResultsFile string        `json:"-"`
}

// Run resolves ids against envKey and sends them one at a time. Resolution
// failures abort the run before any request is sent; transport failures and
// failed assertions are recorded and handled by the failure policy.
func (r *Runner) Run(ctx context.Context, name string, c *collection.Collection, ids []collection.ItemID, envKey string) (*SuiteResult, error) {
	resolved, err := r.resolver.ResolveAll(ctx, c, ids, envKey)
	if err != nil {
		return nil, err
	}

	result := &SuiteResult{
		Name:        name,
		Environment: envKey,
		StartTime:   time.Now(),
		TotalTests:  len(resolved),
		Tests:       make([]TestResult, 0, len(resolved)),
	}

	for _, res := range resolved {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		test := r.runTest(ctx, res)
		result.Tests = append(result.Tests, test)

		if test.Passed {
			result.Passed++
			continue
		}
		result.Failed++
		if r.opts.OnFailure == OnFailureStop {
			r.logger.Info("stopping after failure", zap.String("item", test.Item))
			break
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	if r.opts.ResultsDir != "" {
		path, err := SaveResults(r.opts.ResultsDir, result)
		if err != nil {
			r.logger.Warn("failed to save test results", zap.Error(err))
		} else {
			result.ResultsFile = path
		}
	}
	return result, nil
}

func (r *Runner) runTest(ctx context.Context, res *engine.Result) TestResult {
	startTime := time.Now()
	result := TestResult{
		Name:       res.Item.Name,
		Item:       string(res.Item.ID),
		Method:     res.Request.Method,
		URL:        res.Request.URL,
		Passed:     true,
		Unresolved: res.Unresolved,
	}

	resp, err := r.client.Send(ctx, res.Request)
	if err != nil {
		result.Passed = false
		result.Error = fmt.Sprintf("Request failed: %v", err)
		result.Duration = time.Since(startTime)
		r.logger.Debug("request failed", zap.String("item", result.Item), zap.Error(err))
		return result
	}
	result.StatusCode = resp.StatusCode
	result.response = resp

	checks := r.resolver.Assert(res, &assertion.Response{
		Status:     resp.StatusCode,
		StatusText: statusText(resp.Status),
		Headers:    resp.Headers,
		Body:       resp.Body,
		Duration:   resp.Duration,
	})
	var failed []string
	for _, check := range checks {
		result.Assertions = append(result.Assertions, AssertionResult{
			Expression: check.Assertion.Expression,
			Operator:   check.Assertion.Operator,
			Expected:   check.Assertion.Value,
			Actual:     check.Actual,
			Passed:     check.Pass,
			Reason:     check.Reason,
		})
		if !check.Pass {
			failed = append(failed, check.Assertion.Expression)
		}
	}
	if len(failed) > 0 {
		result.Passed = false
		result.Error = "Assertion failed: " + strings.Join(failed, ", ")
	}

	result.Duration = time.Since(startTime)
	r.logger.Debug("request completed",
		zap.String("item", result.Item),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", resp.Duration))
	return result
}

// statusText strips the code from an HTTP status line ("200 OK" -> "OK").
func statusText(status string) string {
	if _, text, ok := strings.Cut(status, " "); ok {
		return text
	}
	return status
}

// SaveResults writes result to dir as <name>-<timestamp>.json and returns the
// file path.
func SaveResults(dir string, result *SuiteResult) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	timestamp := result.StartTime.Format("2006-01-02-15-04-05")
	safeName := strings.ReplaceAll(result.Name, " ", "-")
	safeName = strings.ReplaceAll(safeName, string(filepath.Separator), "-")
	safeName = strings.ToLower(safeName)
	filename := fmt.Sprintf("%s-%s.json", safeName, timestamp)
	resultPath := filepath.Join(dir, filename)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}

	return resultPath, os.WriteFile(resultPath, data, 0644)
}
