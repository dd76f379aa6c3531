package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/askroom/internal/core"
)

// Topic carries every hub event encoded as a proto.Outbound JSON payload.
const Topic = "askroom.events"

// Metadata keys set on published messages.
const (
	MetadataEvent = "event"
	MetadataRoom  = "room"
)

// Bus is the in-process pub/sub the hub publishes to and websocket clients read from.
// Publishing waits for every subscriber to ack, which keeps events in order per subscriber.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates a bus. buffer is the per-subscriber output buffer.
func NewBus(buffer int, logger *zerolog.Logger) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            int64(buffer),
			BlockPublishUntilSubscriberAck: true,
		}, NewZerologAdapter(logger)),
	}
}

func (b *Bus) Publisher() message.Publisher {
	return b.pubsub
}

// Subscribe returns the event stream of Topic until ctx is cancelled.
// Every received message must be acked.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, Topic)
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}

var (
	ErrSinkFull   = errors.New("event sink full")
	ErrSinkClosed = errors.New("event sink closed")
)

// Sink publishes hub events to a watermill publisher from its own goroutine,
// so the hub never waits on subscribers. Events are dropped when the queue is full.
type Sink struct {
	publisher message.Publisher
	topic     string
	queue     chan *message.Message
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	log       *zerolog.Logger
}

var _ core.EventSink = (*Sink)(nil)

func NewSink(publisher message.Publisher, topic string, buffer int, logger *zerolog.Logger) *Sink {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if buffer <= 0 {
		buffer = 1
	}
	s := &Sink{
		publisher: publisher,
		topic:     topic,
		queue:     make(chan *message.Message, buffer),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		log:       logger,
	}
	go s.run()
	return s
}

// Publish encodes the event and queues it for the sink's topic.
func (s *Sink) Publish(event *core.Event) error {
	payload, err := json.Marshal(Encode(event))
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Kind, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataEvent, event.Kind.String())
	msg.Metadata.Set(MetadataRoom, event.Room)

	select {
	case <-s.stop:
		return ErrSinkClosed
	default:
	}
	select {
	case s.queue <- msg:
		return nil
	default:
		return fmt.Errorf("%w: dropped %s event", ErrSinkFull, event.Kind)
	}
}

// Close stops the publishing goroutine. Queued events are dropped.
func (s *Sink) Close() {
	s.closeOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Sink) run() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case msg := <-s.queue:
			if err := s.publisher.Publish(s.topic, msg); err != nil {
				s.log.Warn().Err(err).Str("topic", s.topic).Msg("publish event")
				continue
			}
			s.log.Trace().Str("topic", s.topic).Str("event", msg.Metadata.Get(MetadataEvent)).Msg("event published")
		}
	}
}
