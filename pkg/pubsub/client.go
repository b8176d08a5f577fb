package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/berryevents69/Berry-Events-sub000/pkg/config"
	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopics          = errors.New("no pubsub topics configured")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client owns the Pub/Sub connection and one long-lived publisher per topic.
type Client struct {
	client    *pubsub.Client
	projectID string
	topics    []string
	settings  pubsub.PublishSettings

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient connects to Pub/Sub and fails unless every configured topic exists.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	topics := topicNames(cfg)
	if len(topics) == 0 {
		return nil, errNoTopics
	}

	psClient, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{
		client:     psClient,
		projectID:  projectID,
		topics:     topics,
		settings:   publishSettings(cfg),
		publishers: map[string]*pubsub.Publisher{},
	}
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project": projectID,
			"topics":  topics,
		}), "pubsub client initialized")
	}
	return c, nil
}

func publishSettings(cfg config.PubSubConfig) pubsub.PublishSettings {
	settings := pubsub.DefaultPublishSettings
	if cfg.PublishDelay > 0 {
		settings.DelayThreshold = cfg.PublishDelay
	}
	if cfg.PublishBatch > 0 {
		settings.CountThreshold = cfg.PublishBatch
	}
	if cfg.PublishTimeout > 0 {
		settings.Timeout = cfg.PublishTimeout
	}
	return settings
}

func topicNames(cfg config.PubSubConfig) []string {
	var names []string
	seen := map[string]bool{}
	for _, raw := range []string{cfg.BookingsTopic, cfg.OrdersTopic, cfg.WalletTopic} {
		name := strings.TrimSpace(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Publisher returns the shared publisher for topic, creating it on first use.
// It returns nil when topic cannot be resolved.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	name := c.topicResourceName(topic)
	if name == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if pub, ok := c.publishers[name]; ok {
		return pub
	}
	pub := c.client.Publisher(name)
	pub.PublishSettings = c.settings
	c.publishers[name] = pub
	return pub
}

// Ping checks that every configured topic still exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	for _, topic := range c.topics {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topicResourceName(topic)})
		switch {
		case status.Code(err) == codes.NotFound:
			return fmt.Errorf("topic %q does not exist in project %s", topic, c.projectID)
		case err != nil:
			return fmt.Errorf("checking topic %q: %w", topic, err)
		}
	}
	return nil
}

// Close flushes and stops every publisher before closing the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for name, pub := range c.publishers {
		pub.Stop()
		delete(c.publishers, name)
	}
	c.mu.Unlock()
	return c.client.Close()
}

func (c *Client) topicResourceName(topic string) string {
	name := strings.TrimSpace(topic)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/topics/") {
		return name
	}
	if c == nil || c.projectID == "" {
		return ""
	}
	return "projects/" + c.projectID + "/topics/" + name
}
