package pubsub

import (
	"context"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berryevents69/Berry-Events-sub000/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	c := &Client{projectID: "berry-prod"}

	assert.Equal(t, "projects/berry-prod/topics/berry-order-events", c.topicResourceName(" berry-order-events "))
	assert.Equal(t, "projects/other/topics/x", c.topicResourceName("projects/other/topics/x"))
	assert.Empty(t, c.topicResourceName(""))
	assert.Empty(t, (&Client{}).topicResourceName("topic"))
}

func TestTopicNamesDedupesAndSkipsBlank(t *testing.T) {
	names := topicNames(config.PubSubConfig{
		BookingsTopic: "events",
		OrdersTopic:   " events ",
		WalletTopic:   "",
	})
	assert.Equal(t, []string{"events"}, names)
}

func TestNewClientRequiresProjectAndTopics(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "berry-dev"}, config.PubSubConfig{}, nil)
	require.ErrorIs(t, err, errNoTopics)
}

func TestPublishSettingsOverrideDefaults(t *testing.T) {
	settings := publishSettings(config.PubSubConfig{
		PublishDelay:   25 * time.Millisecond,
		PublishBatch:   10,
		PublishTimeout: 5 * time.Second,
	})
	assert.Equal(t, 25*time.Millisecond, settings.DelayThreshold)
	assert.Equal(t, 10, settings.CountThreshold)
	assert.Equal(t, 5*time.Second, settings.Timeout)

	defaults := publishSettings(config.PubSubConfig{})
	assert.Equal(t, pubsub.DefaultPublishSettings.CountThreshold, defaults.CountThreshold)
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("topic"))
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Ping(context.Background()), errNotInitialized)
}
