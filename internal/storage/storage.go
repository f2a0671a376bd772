package storage

import "priceScope/internal/model"

// EventSink is a sink for typed pair event records.
type EventSink interface {
	PutEventBatch(events []model.TypedEventRecord) error
}

// FlowSink is a sink for tracked flow records.
type FlowSink interface {
	PutFlowBatch(flows []model.TrackedFlow) error
}
