package orders

import (
	"encoding/json"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
)

type capture struct {
	key     []byte
	value   []byte
	headers []kafkago.Header
}

func (c *capture) Publish(key, value []byte, headers ...kafkago.Header) {
	c.key, c.value, c.headers = key, value, headers
}

func TestStageEvent_RoundTrip(t *testing.T) {
	o := Order{ID: "ORD-1001", CustomerName: "Amina", Phone: "+27820000000", StageIndex: 2}
	env, err := StageEvent(EventStageAdvanced, "eyecare-api", "req-1", o)
	if err != nil {
		t.Fatal(err)
	}
	if env.EventID == "" || env.EventVersion != 1 || env.CorrelationID != "ORD-1001" || env.TraceID != "req-1" {
		t.Fatalf("unexpected envelope %+v", env)
	}

	c := &capture{}
	if err := PublishEvent(c, env); err != nil {
		t.Fatal(err)
	}
	if string(c.key) != "ORD-1001" {
		t.Fatalf("partition key %q", c.key)
	}
	if len(c.headers) != 2 || string(c.headers[0].Value) != EventStageAdvanced || string(c.headers[1].Value) != "1" {
		t.Fatalf("unexpected headers %+v", c.headers)
	}

	var got Envelope
	if err := json.Unmarshal(c.value, &got); err != nil {
		t.Fatal(err)
	}
	var p StagePayload
	if err := json.Unmarshal(got.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.OrderID != o.ID || p.StageIndex != 2 || p.CustomerName != "Amina" || p.Phone != o.Phone {
		t.Fatalf("payload mismatch %+v", p)
	}
}

func TestPublishEvent_NilPublisher(t *testing.T) {
	env, _ := NewEnvelope(EventOrderRegistered, "p", "ORD-1", "", StagePayload{OrderID: "ORD-1"})
	if err := PublishEvent(nil, env); err != nil {
		t.Fatalf("nil publisher should be a no-op, got %v", err)
	}
}
