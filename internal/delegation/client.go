// Package delegation asks the coordinator model which specialist should
// handle a request. The model runs in forced function-calling mode, so its
// only possible answer is a call to one of the four delegation functions.
package delegation

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/moolen/medidesk/internal/logging"
	"github.com/moolen/medidesk/internal/metrics"
)

// Messages carried by error results.
const (
	MsgNoCandidates   = "no candidates returned"
	MsgNoFunctionCall = "Koordinator gagal mendelegasikan tugas. Mohon ulangi permintaan."
)

// DefaultMaxBackends bounds the number of credentials with a live backend.
const DefaultMaxBackends = 16

// ContentGenerator is the one backend call the client needs. *genai.Models
// satisfies it directly.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ConnectFunc builds a generator authenticated with credential.
type ConnectFunc func(ctx context.Context, credential string) (ContentGenerator, error)

// Classifier is what a session needs from the delegation client.
type Classifier interface {
	Classify(ctx context.Context, credential, query string) Result
}

// Options configures a Client.
type Options struct {
	// Model defaults to DefaultModel.
	Model string
	// Connect is required.
	Connect ConnectFunc
	// Tracer defaults to the global provider's tracer.
	Tracer  trace.Tracer
	Metrics *metrics.Metrics
	// MaxBackends defaults to DefaultMaxBackends.
	MaxBackends int
}

// Client classifies queries against a backend. One backend is created per
// credential on first use and kept in an LRU cache, so sessions with
// different credentials share a Client without reconnecting. Safe for
// concurrent use.
type Client struct {
	model   string
	connect ConnectFunc
	tracer  trace.Tracer
	metrics *metrics.Metrics
	logger  *logging.Logger

	mu         sync.Mutex
	generators *lru.Cache[string, ContentGenerator]
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("medidesk/delegation")
	}
	size := opts.MaxBackends
	if size <= 0 {
		size = DefaultMaxBackends
	}
	// lru.New only fails for a non-positive size.
	generators, _ := lru.New[string, ContentGenerator](size)
	return &Client{
		model:      model,
		connect:    opts.Connect,
		tracer:     tracer,
		metrics:    opts.Metrics,
		logger:     logging.GetLogger("delegation"),
		generators: generators,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Classify sends query to the coordinator model and interprets its reply.
// It never returns a Go error: every failure becomes a KindError result.
func (c *Client) Classify(ctx context.Context, credential, query string) Result {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "delegation.classify", trace.WithAttributes(
		attribute.String("model", c.model),
		attribute.Int("query.length", len(query)),
	))
	defer span.End()

	result := c.classify(ctx, credential, query)
	elapsed := time.Since(start)

	span.SetAttributes(attribute.String("result.kind", result.Kind.String()))
	if result.IsDelegation() {
		span.SetAttributes(attribute.String("result.function", result.FunctionName))
		c.metrics.ObserveClassify(metrics.ClassifyDelegation, elapsed)
		c.logger.WithContext(ctx).DebugWithFields("classified",
			logging.Field("function", result.FunctionName),
			logging.Field("duration_ms", elapsed.Milliseconds()))
	} else {
		span.SetStatus(codes.Error, result.Message)
		c.metrics.ObserveClassify(metrics.ClassifyError, elapsed)
		c.logger.WithContext(ctx).WarnWithFields("classification failed",
			logging.Field("message", result.Message),
			logging.Field("duration_ms", elapsed.Milliseconds()))
	}
	return result
}

func (c *Client) classify(ctx context.Context, credential, query string) Result {
	generator, err := c.generatorFor(ctx, credential)
	if err != nil {
		return Failed(err.Error())
	}

	contents, config := BuildRequest(query)
	resp, err := generator.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return Failed(err.Error())
	}
	return Interpret(resp)
}

func (c *Client) generatorFor(ctx context.Context, credential string) (ContentGenerator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generator, ok := c.generators.Get(credential); ok {
		return generator, nil
	}
	if c.connect == nil {
		return nil, errNoBackend
	}
	generator, err := c.connect(ctx, credential)
	if err != nil {
		return nil, err
	}
	c.generators.Add(credential, generator)
	return generator, nil
}

// Interpret maps a backend response to a Result. Only the first part of the
// first candidate is inspected.
func Interpret(resp *genai.GenerateContentResponse) Result {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return Failed(MsgNoCandidates)
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0] == nil || parts[0].FunctionCall == nil {
		return Failed(MsgNoFunctionCall)
	}
	call := parts[0].FunctionCall
	return Delegated(call.Name, call.Args)
}
