// Package messaging publishes broker-agnostic messages.
//
// The service only emits events, so the package is publish-side only. The
// broker is chosen once at startup by NewFromDriver: NATS, Kafka, or an
// in-process Memory publisher that is also used by tests.
package messaging
