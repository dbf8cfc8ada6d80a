package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/harborml/harbor/internal/domain/metadata"
	"github.com/harborml/harbor/internal/infrastructure/logging"
	"github.com/harborml/harbor/internal/infrastructure/monitoring"
	"github.com/harborml/harbor/internal/shared/id"
)

// DeliveryResult is the outcome of one push attempt. A nil Err means the
// endpoint acknowledged the POST with a success status.
type DeliveryResult struct {
	SubscriptionID id.SubscriptionID
	Err            error
}

// Engine fans a published message out to a topic's subscriptions.
//
// Delivery is fire-and-forget push: no retry, no acknowledgment tracking, no
// backoff. Each subscription gets at most one POST per publish. A broken
// endpoint neither blocks publishing nor affects sibling subscriptions; every
// delivery failure is captured as a result value, never allowed to cancel
// in-flight deliveries.
type Engine struct {
	client  *resty.Client
	timeout time.Duration
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewEngine creates a delivery engine. timeout bounds each individual push.
func NewEngine(timeout time.Duration, logger *logging.Logger) *Engine {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "harbor-delivery/1.0")

	return &Engine{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

// WithMetrics attaches a metrics collector.
func (e *Engine) WithMetrics(m *monitoring.Metrics) *Engine {
	e.metrics = m
	return e
}

// Publish decodes the message once and POSTs the decoded JSON text to every
// subscription of the topic concurrently, returning one result per
// subscription after all deliveries have completed or failed.
//
// The returned error covers only pre-delivery failures (a payload that does
// not decode). Individual endpoint failures live in the results: the caller
// decides whether partial delivery is worth reporting. With zero
// subscriptions the call is a no-op returning an empty result set.
//
// Cancellation of ctx does not abort in-flight pushes; each push carries its
// own timeout instead, so a hung endpoint cannot hold the publish open
// indefinitely.
func (e *Engine) Publish(ctx context.Context, topic *metadata.TopicWithSubscriptions, msg Message) ([]DeliveryResult, error) {
	decoded, err := decode(msg.Data)
	if err != nil {
		return nil, err
	}

	// The push body is the decoded JSON text delivered as a JSON-encoded
	// string, not the parsed object. Consumers receive e.g. "{\"k\": \"v\"}".
	body, err := json.Marshal(string(decoded))
	if err != nil {
		return nil, fmt.Errorf("encode push body: %w", err)
	}

	subs := topic.Subscriptions
	results := make([]DeliveryResult, len(subs))

	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub *metadata.Subscription) {
			defer wg.Done()
			results[i] = DeliveryResult{
				SubscriptionID: sub.ID,
				Err:            e.push(sub, body),
			}
		}(i, sub)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		e.logger.Warn("partial delivery",
			zap.String("topic_id", topic.ID.String()),
			zap.Int("subscriptions", len(subs)),
			zap.Int("failed", failed),
		)
	} else {
		e.logger.Debug("message delivered",
			zap.String("topic_id", topic.ID.String()),
			zap.Int("subscriptions", len(subs)),
		)
	}

	return results, nil
}

// push POSTs the prepared body to a single subscription endpoint.
//
// Deliberately detached from the publish call's context: a client disconnect
// must not tear down deliveries already in flight.
func (e *Engine) push(sub *metadata.Subscription, body []byte) error {
	pushCtx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	start := time.Now()
	resp, err := e.client.R().
		SetContext(pushCtx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(sub.PushEndpoint)

	outcome := "ok"
	if err == nil && resp.IsError() {
		err = fmt.Errorf("push endpoint returned %s", resp.Status())
	}
	if err != nil {
		outcome = "error"
		// Endpoint details stay out of the returned error; they are logged
		// here and nowhere closer to the client.
		e.logger.Debug("push delivery failed",
			zap.String("subscription_id", sub.ID.String()),
			zap.String("endpoint", sub.PushEndpoint),
			zap.Error(err),
		)
		err = fmt.Errorf("delivery to subscription %s failed", sub.ID)
	}
	if e.metrics != nil {
		e.metrics.RecordDelivery(outcome, time.Since(start))
	}

	return err
}
