package orders

import (
	"encoding/json"
	"fmt"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"
)

// Publisher is the async producer side of a topic.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// PublishEvent encodes env and hands it to p. A nil publisher means events
// are switched off.
func PublishEvent(p Publisher, env Envelope) error {
	if p == nil {
		return nil
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", env.EventType, err)
	}
	p.Publish(PartitionKey(env.CorrelationID), value,
		kafkago.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	)
	return nil
}
