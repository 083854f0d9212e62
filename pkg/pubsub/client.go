// Package pubsub wraps the Pub/Sub v2 client with the quote topic and the
// analytics subscription. Both must be provisioned ahead of time; the client
// only checks that they exist.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"

	"github.com/angelmondragon/bakery-quotes/pkg/config"
	"github.com/angelmondragon/bakery-quotes/pkg/gcp"
	"github.com/angelmondragon/bakery-quotes/pkg/logger"
)

var (
	ErrProjectRequired = errors.New("gcp project id is required")
	ErrMissingResource = errors.New("pubsub resource does not exist")
)

// kind is a Pub/Sub resource collection.
type kind string

const (
	topics        kind = "topics"
	subscriptions kind = "subscriptions"
)

type Client struct {
	ps      *pubsub.Client
	project string
	events  config.EventsConfig
}

// NewClient connects to Pub/Sub and checks the quote topic.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, events config.EventsConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcpCfg.ProjectID)
	if project == "" {
		return nil, ErrProjectRequired
	}
	ps, err := pubsub.NewClient(ctx, project, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}

	c := &Client{ps: ps, project: project, events: events}
	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", events.QuoteTopic), "pubsub client initialized")
	}
	return c, nil
}

func (c *Client) name(k kind, id string) string {
	return gcp.ResourceName(c.project, string(k), id)
}

// exists looks up one topic or subscription through the admin API.
func (c *Client) exists(ctx context.Context, k kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("pubsub %s id is required", strings.TrimSuffix(string(k), "s"))
	}
	full := c.name(k, id)
	var err error
	switch k {
	case topics:
		_, err = c.ps.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
	case subscriptions:
		_, err = c.ps.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
	}
	switch {
	case err == nil:
		return nil
	case gcp.IsNotFound(err):
		return fmt.Errorf("%w: %s", ErrMissingResource, full)
	default:
		return fmt.Errorf("look up %s: %w", full, err)
	}
}

// Ping checks that the quote topic is still there.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.ps == nil {
		return errors.New("pubsub client not initialized")
	}
	return c.exists(ctx, topics, c.events.QuoteTopic)
}

// EnsureSubscription fails unless subscription id exists.
func (c *Client) EnsureSubscription(ctx context.Context, id string) error {
	if c == nil || c.ps == nil {
		return errors.New("pubsub client not initialized")
	}
	return c.exists(ctx, subscriptions, id)
}

// Publisher returns a publisher for topic id, or nil on an unusable client.
func (c *Client) Publisher(id string) *pubsub.Publisher {
	if c == nil || c.ps == nil || strings.TrimSpace(id) == "" {
		return nil
	}
	return c.ps.Publisher(c.name(topics, id))
}

// AnalyticsSubscription returns the subscriber the analytics worker reads.
func (c *Client) AnalyticsSubscription() *pubsub.Subscriber {
	if c == nil || c.ps == nil || strings.TrimSpace(c.events.AnalyticsSubscription) == "" {
		return nil
	}
	return c.ps.Subscriber(c.name(subscriptions, c.events.AnalyticsSubscription))
}

func (c *Client) Close() error {
	if c == nil || c.ps == nil {
		return nil
	}
	return c.ps.Close()
}
