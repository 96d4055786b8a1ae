package llmadapter

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/sketchloom/sessionengine/internal/apperr"
	"github.com/sketchloom/sessionengine/internal/wireframe"
)

// ChatModel is the minimal surface this adapter needs from an eino chat
// model. model.ToolCallingChatModel (returned by NewClaudeBackend and
// NewOpenAIBackend) satisfies it structurally; declaring our own narrow
// interface keeps this package's contract and tests independent of the
// wider tool-calling surface this domain never exercises.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// RetryBaseInterval is the initial backoff interval for retried attempts.
const RetryBaseInterval = 500 * time.Millisecond

// RetryFactor is the exponential growth factor applied between attempts.
const RetryFactor = 2.0

// RetryJitter is the randomization factor applied to each backoff interval
// (±20%), matching the spec's retry policy.
const RetryJitter = 0.2

// Adapter is the LLM Adapter. It is stateless and safe for concurrent use
// across distinct sessions.
type Adapter struct {
	chatModel  ChatModel
	timeout    time.Duration
	maxRetries int
}

// New returns an Adapter that submits prompts to chatModel, bounding each
// attempt at timeout and retrying up to maxRetries additional times on
// Timeout or ModelError.
func New(chatModel ChatModel, timeout time.Duration, maxRetries int) *Adapter {
	return &Adapter{chatModel: chatModel, timeout: timeout, maxRetries: maxRetries}
}

// Generate submits prompt to the backend model, enforces timeout and ctx
// cancellation, parses and validates the returned wireframe, and retries
// transient failures with exponential backoff and jitter. InvalidOutput is
// never retried.
func (a *Adapter) Generate(ctx context.Context, prompt string) (*wireframe.Document, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = RetryBaseInterval
	policy.Multiplier = RetryFactor
	policy.RandomizationFactor = RetryJitter

	bounded := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(a.maxRetries)), ctx)

	var doc *wireframe.Document
	err := backoff.Retry(func() error {
		result, attemptErr := a.attempt(ctx, prompt)
		if attemptErr == nil {
			doc = result
			return nil
		}
		if apperr.Retryable(apperr.KindOf(attemptErr)) {
			return attemptErr
		}
		return backoff.Permanent(attemptErr)
	}, bounded)

	if err != nil {
		if permanent, ok := err.(*backoff.PermanentError); ok {
			return nil, permanent.Err
		}
		if apperr.KindOf(err) == "" {
			// An error without an apperr kind is the ctx.Err() that
			// backoff.WithContext returns once the caller's context ends;
			// exhausted retries return the last attempt's (kinded) error.
			return nil, apperr.Wrap(apperr.KindTimeout, "llm request did not complete before cancellation", err)
		}
		return nil, err
	}
	return doc, nil
}

func (a *Adapter) attempt(ctx context.Context, prompt string) (*wireframe.Document, error) {
	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	messages := []*schema.Message{
		{Role: schema.User, Content: prompt},
	}

	msg, err := a.chatModel.Generate(reqCtx, messages)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, apperr.Wrap(apperr.KindTimeout, "llm request exceeded its timeout", err)
		}
		if ctx.Err() != nil {
			return nil, apperr.Wrap(apperr.KindTimeout, "llm request cancelled", ctx.Err())
		}
		return nil, apperr.Wrap(apperr.KindModelError, "llm request failed", err)
	}

	doc, err := parseWireframe(msg.Content)
	if err != nil {
		return nil, err
	}
	doc.Sanitize()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// parseWireframe extracts and decodes a wireframe document from the raw
// model response, tolerating a markdown code fence around the JSON body.
func parseWireframe(content string) (*wireframe.Document, error) {
	body := strings.TrimSpace(content)
	if m := fencedJSONRe.FindStringSubmatch(body); m != nil {
		body = strings.TrimSpace(m[1])
	}

	var doc wireframe.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidOutput, "model response was not a valid wireframe document", err)
	}
	return &doc, nil
}
