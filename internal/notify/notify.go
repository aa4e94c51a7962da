// Package notify publishes page-completion events over Redis pub/sub
// (spec §4.6 "Notifications"). Adapted from the reference worker's
// RedisConsumer connection lifecycle; the BRPop job-consumption loop and
// asynq task queue it also offered are dropped per the expanded spec's
// domain-stack decision (SPEC_FULL.md §11) — this system has no downstream
// job queue to push into, only completion events to publish.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/openrecords/docindex/internal/errors"
	"github.com/openrecords/docindex/internal/logging"
)

const pageCompletionChannel = "docindex:page_completed"

// PageCompletedEvent is published after every page processing attempt: on
// success, and on each failure, including retryable failures that return
// the page to pending.
type PageCompletedEvent struct {
	PageID     string `json:"page_id"`
	DocumentID string `json:"document_id"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// Publisher publishes PageCompletedEvents. A Publisher without a Redis
// client (what New returns when REDIS_URL is unset) is a no-op whose
// Publish and Close return nil, so the worker loops can call it
// unconditionally.
type Publisher struct {
	client *redis.Client
	log    *logging.Logger
}

// New connects to redisURL. An empty redisURL disables notifications
// entirely; Publish becomes a no-op rather than an error, since
// notifications are an optional capability, not a required one (spec §6.6
// REDIS_URL "empty disables page-completion pub/sub").
func New(redisURL string) (*Publisher, error) {
	if redisURL == "" {
		return &Publisher{}, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Internal("failed to parse redis url", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.TransientUpstream("failed to connect to redis", err)
	}

	return &Publisher{client: client, log: logging.NewLogger("notify")}, nil
}

// Enabled reports whether this Publisher is backed by a live Redis client.
func (p *Publisher) Enabled() bool {
	return p.client != nil
}

// Publish emits evt on the page-completion channel. A no-op when
// notifications are disabled.
func (p *Publisher) Publish(ctx context.Context, evt PageCompletedEvent) error {
	if p.client == nil {
		return nil
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return errors.Internal("failed to marshal page completion event", err)
	}

	if err := p.client.Publish(ctx, pageCompletionChannel, data).Err(); err != nil {
		return errors.TransientUpstream(fmt.Sprintf("failed to publish event for page %s", evt.PageID), err)
	}
	if p.log != nil {
		p.log.Info("published page completion", "page_id", evt.PageID, "success", evt.Success)
	}
	return nil
}

// Close releases the underlying Redis connection, if any.
func (p *Publisher) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}
