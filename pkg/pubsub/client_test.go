package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/rentmarket-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project, name, want string
	}{
		{"rentmarket", "order-events", "projects/rentmarket/topics/order-events"},
		{"rentmarket", " order-events ", "projects/rentmarket/topics/order-events"},
		{"other", "projects/rentmarket/topics/order-events", "projects/rentmarket/topics/order-events"},
		{"", "order-events", ""},
		{"rentmarket", "", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TopicResourceName(tc.project, tc.name), "%s/%s", tc.project, tc.name)
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{OrdersTopic: "t"}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "rentmarket"}, config.PubSubConfig{OrdersTopic: " "}, nil)
	assert.ErrorIs(t, err, errNoTopic)
}

func TestClientOptions(t *testing.T) {
	assert.Empty(t, clientOptions(config.GCPConfig{}, config.PubSubConfig{}))
	assert.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`}, config.PubSubConfig{}), 1)
	assert.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/etc/sa.json"}, config.PubSubConfig{}), 1)

	// the emulator ignores credentials entirely
	emulator := clientOptions(config.GCPConfig{CredentialsJSON: "{}"}, config.PubSubConfig{EmulatorHost: "localhost:8085"})
	assert.Len(t, emulator, 3)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("order-events"))
	assert.ErrorIs(t, c.Ping(context.Background()), errClosed)
	assert.NoError(t, c.Close())
}
