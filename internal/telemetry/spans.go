package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const engineTracerName = "hypechain-engine"

// StartOperation opens a span for one attribution engine operation such as
// "share.create" or "revenue.distribute".
func StartOperation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(engineTracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndOperation records err on the span, if any, and ends it
func EndOperation(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// ContentAttr tags a span with the content being operated on
func ContentAttr(contentID string) attribute.KeyValue {
	return attribute.String("hypechain.content_id", contentID)
}

// ShareAttr tags a span with the share being operated on
func ShareAttr(shareID string) attribute.KeyValue {
	return attribute.String("hypechain.share_id", shareID)
}

// AmountAttr tags a span with a lamport amount
func AmountAttr(amount int64) attribute.KeyValue {
	return attribute.Int64("hypechain.amount_lamports", amount)
}
