// Package judge wraps the external code-execution service behind a
// blocking, admission-controlled client.
package judge

import (
	"context"
	"errors"
	"time"

	"codecampus/internal/common/mq"
	"codecampus/internal/judge/judgepb"
	appErr "codecampus/pkg/errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const (
	defaultCallTimeout = 30 * time.Second
	defaultMaxInFlight = 8
)

// ClientConfig holds judge client settings.
type ClientConfig struct {
	// Target is the judge service endpoint.
	Target string `yaml:"target"`

	// CallTimeout bounds a single judge invocation.
	CallTimeout time.Duration `yaml:"callTimeout"`

	// MaxInFlight caps concurrent judge calls per process. Callers over
	// the cap are rejected immediately, they are never queued.
	MaxInFlight int `yaml:"maxInFlight"`
}

// TestVerdict is the judged outcome for a single test case. A verdict like
// CE or RE is a successful judge call; transport failures never produce
// verdicts.
type TestVerdict struct {
	Status   string
	Stdout   string
	TimeMs   int64
	MemoryKb int64
}

// Client invokes the judge synchronously. It owns a long-lived connection
// acquired at construction and released by Close.
type Client struct {
	conn        *grpc.ClientConn
	grpc        judgepb.JudgeClient
	limiter     *mq.TokenLimiter
	callTimeout time.Duration
}

// NewClient dials the judge service.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Target == "" {
		return nil, errors.New("judge target is required")
	}
	conn, err := grpc.NewClient(cfg.Target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	c := newClient(judgepb.NewJudgeClient(conn), cfg)
	c.conn = conn
	return c, nil
}

// NewClientWithStub wraps an existing stub, used by tests.
func NewClientWithStub(stub judgepb.JudgeClient, cfg ClientConfig) *Client {
	return newClient(stub, cfg)
}

func newClient(stub judgepb.JudgeClient, cfg ClientConfig) *Client {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = defaultMaxInFlight
	}
	return &Client{
		grpc:        stub,
		limiter:     mq.NewTokenLimiter(cfg.MaxInFlight),
		callTimeout: cfg.CallTimeout,
	}
}

// Invoke runs the source against all test inputs and blocks for the full
// verdict set.
//
// Either every test case gets a verdict or an error is returned; partial
// results are never visible. There is no retry here: a judge execution is
// not idempotent, so blind retry could double-execute. Retrying is an
// explicit caller decision, gated on verifying no prior verdict exists.
func (c *Client) Invoke(ctx context.Context, sourceCode, language string, testInputs []string) ([]TestVerdict, error) {
	if !c.limiter.TryAcquire() {
		return nil, appErr.New(appErr.JudgeQueueFull)
	}
	defer c.limiter.Release()

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	resp, err := c.grpc.Execute(callCtx, &judgepb.ExecuteRequest{
		SourceCode: sourceCode,
		Language:   language,
		Stdin:      testInputs,
	})
	if err != nil {
		return nil, classifyCallError(err)
	}
	if len(resp.Results) != len(testInputs) {
		return nil, appErr.New(appErr.TransportFailed).
			WithMessage("judge returned incomplete verdict set").
			WithDetail("expected", len(testInputs)).
			WithDetail("got", len(resp.Results))
	}

	verdicts := make([]TestVerdict, 0, len(resp.Results))
	for _, r := range resp.Results {
		verdicts = append(verdicts, TestVerdict{
			Status:   r.Status,
			Stdout:   r.Stdout,
			TimeMs:   r.TimeMs,
			MemoryKb: r.MemoryKb,
		})
	}
	return verdicts, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// classifyCallError separates deadline expiry from unreachability; both
// are transport failures, never judged verdicts.
func classifyCallError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return appErr.Wrap(err, appErr.JudgeTimeout)
	}
	switch status.Code(err) {
	case codes.DeadlineExceeded:
		return appErr.Wrap(err, appErr.JudgeTimeout)
	case codes.Unavailable:
		return appErr.Wrap(err, appErr.JudgeUnavailable)
	default:
		return appErr.Wrap(err, appErr.TransportFailed)
	}
}
