package nats

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewMessage_EncodesPayloadAndTraceContext(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "upload")
	defer span.End()

	msg, err := newMessage(ctx, "gallery.listing.uploaded", map[string]string{"groupId": "g1"})
	require.NoError(t, err)

	assert.Equal(t, "gallery.listing.uploaded", msg.Subject)
	var body map[string]string
	require.NoError(t, json.Unmarshal(msg.Data, &body))
	assert.Equal(t, "g1", body["groupId"])
	assert.Contains(t, msg.Header.Get("traceparent"), span.SpanContext().TraceID().String())
	assert.NotEmpty(t, HeaderCarrier(msg.Header).Keys())
}

func TestNewMessage_RejectsUnencodablePayload(t *testing.T) {
	_, err := newMessage(context.Background(), "s", make(chan int))
	assert.Error(t, err)
}

func TestNoopPublisher(t *testing.T) {
	p := NewNoopPublisher(logger.NewNop())
	assert.NoError(t, p.Publish(context.Background(), "gallery.listing.deleted", nil))
}
