package events

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"bistro/server/internal/models"
)

// Kafka payloads are a protobuf Struct:
//
//	{type, entity_id, occurred_at: {seconds, nanos}, data: {...}}
//
// which keeps consumers schema-free while staying binary.

func encodeEvent(event models.LedgerEvent) ([]byte, error) {
	ts := timestamppb.New(event.OccurredAt)
	if err := ts.CheckValid(); err != nil {
		return nil, fmt.Errorf("occurred_at: %w", err)
	}

	fields := map[string]interface{}{
		"type":      string(event.Type),
		"entity_id": event.EntityID,
		"occurred_at": map[string]interface{}{
			"seconds": float64(ts.GetSeconds()),
			"nanos":   float64(ts.GetNanos()),
		},
	}
	if len(event.Data) > 0 {
		fields["data"] = event.Data
	}

	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build struct: %w", err)
	}
	return proto.Marshal(st)
}

func decodeEvent(payload []byte) (models.LedgerEvent, error) {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(payload, st); err != nil {
		return models.LedgerEvent{}, fmt.Errorf("unmarshal: %w", err)
	}

	m := st.AsMap()
	eventType, _ := m["type"].(string)
	if eventType == "" {
		return models.LedgerEvent{}, fmt.Errorf("event has no type")
	}
	entityID, _ := m["entity_id"].(string)

	event := models.LedgerEvent{
		Type:     models.LedgerEventType(eventType),
		EntityID: entityID,
	}
	if occurred, ok := m["occurred_at"].(map[string]interface{}); ok {
		seconds, _ := occurred["seconds"].(float64)
		nanos, _ := occurred["nanos"].(float64)
		event.OccurredAt = (&timestamppb.Timestamp{Seconds: int64(seconds), Nanos: int32(nanos)}).AsTime()
	} else {
		event.OccurredAt = time.Now().UTC()
	}
	if data, ok := m["data"].(map[string]interface{}); ok {
		event.Data = data
	}
	return event, nil
}
