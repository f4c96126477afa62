package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
	"github.com/shandysiswandi/otpgate/internal/twofa/usecase"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishUserRegistered(ctx context.Context, msg usecase.UserRegisteredEvent) error {
	return m.publish(ctx, "PublishUserRegistered", event.UserRegisteredDestination, msg.UserID, event.UserRegisteredMessage{
		UserID:    msg.UserID,
		Email:     msg.Email,
		Name:      msg.Name,
		CreatedAt: msg.CreatedAt.Unix(),
	})
}

func (m *Messaging) PublishOTPEnabled(ctx context.Context, msg usecase.OTPLifecycleEvent) error {
	return m.publish(ctx, "PublishOTPEnabled", event.OTPEnabledDestination, msg.UserID, event.OTPLifecycleMessage{
		UserID:     msg.UserID,
		Email:      msg.Email,
		OccurredAt: msg.OccurredAt.Unix(),
	})
}

func (m *Messaging) PublishOTPDisabled(ctx context.Context, msg usecase.OTPLifecycleEvent) error {
	return m.publish(ctx, "PublishOTPDisabled", event.OTPDisabledDestination, msg.UserID, event.OTPLifecycleMessage{
		UserID:     msg.UserID,
		Email:      msg.Email,
		OccurredAt: msg.OccurredAt.Unix(),
	})
}

// publish keys every message by user id so a partitioned broker keeps one
// user's events in order.
func (m *Messaging) publish(ctx context.Context, op, destination, key string, payload any) error {
	ctx, span := m.ins.Tracer("twofa.outbound.mq").Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("messaging.destination.name", destination)),
	)
	defer span.End()

	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, destination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(key),
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
