package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	apiKeyHeader    = "x-api-key"
	requestIDHeader = "X-Request-ID"
	maxAckBodyBytes = 64 * 1024
	tracerName      = "poll-terminal/internal/submit"
)

// Submitter records poll answers with a remote collaborator.
type Submitter interface {
	Submit(ctx context.Context, answers map[int]string) (Ack, error)
}

// Ack is the endpoint's acknowledgement of a submission.
type Ack struct {
	Status    int
	RequestID string
	Body      any
}

// Options configures a Client.
type Options struct {
	Endpoint string
	APIKey   string
	// Timeout bounds a single request. Zero means no timeout beyond the
	// caller's context.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client posts answers to the poll endpoint. It makes exactly one attempt
// per call.
type Client struct {
	endpoint string
	apiKey   string
	timeout  time.Duration
	http     *http.Client
	logger   *log.Logger
	tracer   trace.Tracer
}

// NewClient builds a Client. Endpoint is required.
func NewClient(opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("submit: endpoint is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		endpoint: opts.Endpoint,
		apiKey:   opts.APIKey,
		timeout:  opts.Timeout,
		http:     httpClient,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
	}, nil
}

type payload struct {
	Answers map[string]string `json:"answers"`
}

// Submit sends answers as {"answers": {"<step index>": "<label>"}}.
func (c *Client) Submit(ctx context.Context, answers map[int]string) (Ack, error) {
	requestID := uuid.NewString()
	ctx, span := c.tracer.Start(ctx, "poll.submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("poll.request_id", requestID),
			attribute.Int("poll.answers", len(answers)),
		),
	)
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := time.Now()
	ack, err := c.do(ctx, requestID, answers)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Message(err))
		c.logger.Warn("poll submission failed", "event", "submit_failed", "request_id", requestID, "error", err, "duration_ms", time.Since(started).Milliseconds())
		return Ack{}, err
	}

	span.SetAttributes(attribute.Int("http.status_code", ack.Status))
	span.SetStatus(codes.Ok, "")
	c.logger.Info("poll submitted", "event", "submit_ok", "request_id", requestID, "status", ack.Status, "duration_ms", time.Since(started).Milliseconds())
	return ack, nil
}

func (c *Client) do(ctx context.Context, requestID string, answers map[int]string) (Ack, error) {
	body, err := encodeAnswers(answers)
	if err != nil {
		return Ack{}, &Error{Code: CodeEncode, Message: defaultFailureMessage, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Ack{}, &Error{Code: CodeEncode, Message: defaultFailureMessage, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Ack{}, mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxAckBodyBytes))
		return Ack{}, &Error{
			Code:    CodeRejected,
			Message: defaultFailureMessage,
			Status:  resp.StatusCode,
			Cause:   fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAckBodyBytes))
	if err != nil {
		return Ack{}, mapTransportError(err)
	}

	ack := Ack{Status: resp.StatusCode, RequestID: requestID}
	if len(bytes.TrimSpace(raw)) == 0 {
		return ack, nil
	}
	if err := json.Unmarshal(raw, &ack.Body); err != nil {
		return Ack{}, &Error{Code: CodeInvalidResponse, Message: "Poll service returned an invalid response", Status: resp.StatusCode, Cause: err}
	}
	return ack, nil
}

func encodeAnswers(answers map[int]string) ([]byte, error) {
	out := payload{Answers: make(map[string]string, len(answers))}
	for idx, label := range answers {
		out.Answers[strconv.Itoa(idx)] = label
	}
	return json.Marshal(out)
}
