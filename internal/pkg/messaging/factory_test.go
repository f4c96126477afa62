package messaging_test

import (
	"context"
	"testing"

	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromDriver(t *testing.T) {
	t.Parallel()

	p, err := messaging.NewFromDriver("", messaging.FactoryOptions{})
	require.NoError(t, err)
	assert.IsType(t, &messaging.Memory{}, p)

	_, err = messaging.NewFromDriver("nats", messaging.FactoryOptions{})
	assert.ErrorIs(t, err, messaging.ErrNATSURLRequired)

	_, err = messaging.NewFromDriver("kafka", messaging.FactoryOptions{})
	assert.ErrorIs(t, err, messaging.ErrKafkaBrokersRequired)

	k, err := messaging.NewFromDriver("KAFKA", messaging.FactoryOptions{Kafka: messaging.KafkaConfig{Brokers: []string{"localhost:9092"}}})
	require.NoError(t, err)
	require.NoError(t, k.Close())
	_, err = k.Publish(context.Background(), "topic", messaging.OutgoingMessage{})
	assert.ErrorIs(t, err, messaging.ErrClosed)

	_, err = messaging.NewFromDriver("nsq", messaging.FactoryOptions{})
	assert.ErrorIs(t, err, messaging.ErrUnknownDriver)
}

func TestMemory(t *testing.T) {
	t.Parallel()

	m := messaging.NewMemory()
	ctx := context.Background()

	_, err := m.Publish(ctx, "", messaging.OutgoingMessage{})
	assert.ErrorIs(t, err, messaging.ErrDestinationRequired)

	res, err := m.Publish(ctx, "otp.enabled", messaging.OutgoingMessage{Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, "otp.enabled", res.Destination)

	msgs := m.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte(`{}`), msgs[0].Message.Body)

	require.NoError(t, m.Close())
	_, err = m.Publish(ctx, "otp.enabled", messaging.OutgoingMessage{})
	assert.ErrorIs(t, err, messaging.ErrClosed)
}
