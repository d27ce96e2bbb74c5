package kafka

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"boardlink/models"
)

const (
	// queueSize bounds the events waiting for the sarama pipeline. Publish
	// drops when it is full.
	queueSize = 256
	// flushTimeout bounds how long Close waits for queued events.
	flushTimeout = 5 * time.Second
)

// Producer forwards board events to a Kafka topic, keyed by board id so a
// board's events stay ordered within one partition. Publish never waits on
// the brokers; delivery errors are logged from a background goroutine.
type Producer struct {
	producer sarama.AsyncProducer
	topic    string

	mu     sync.Mutex
	closed bool
	queue  chan *sarama.ProducerMessage
	quit   chan struct{}
	sent   chan struct{}
	logged chan struct{}
}

// NewProducer creates a producer with the configured brokers
func NewProducer(brokers []string, topic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Return.Successes = false
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return NewProducerFromClient(producer, topic), nil
}

// NewProducerFromClient wraps producer. It must not report successes.
func NewProducerFromClient(producer sarama.AsyncProducer, topic string) *Producer {
	return newProducer(producer, topic, queueSize)
}

func newProducer(producer sarama.AsyncProducer, topic string, size int) *Producer {
	p := &Producer{
		producer: producer,
		topic:    topic,
		queue:    make(chan *sarama.ProducerMessage, size),
		quit:     make(chan struct{}),
		sent:     make(chan struct{}),
		logged:   make(chan struct{}),
	}
	go p.forward()
	go p.logErrors()
	return p
}

// Close flushes what is queued, waiting at most flushTimeout, and shuts the
// sarama producer down.
func (p *Producer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	select {
	case <-p.sent:
	case <-time.After(flushTimeout):
		log.Printf("⚠️ Kafka: flush timed out, dropping queued events")
		close(p.quit)
		<-p.sent
	}

	err := p.producer.Close()
	<-p.logged
	if err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}

// Publish implements service.EventSink.
func (p *Producer) Publish(ev models.BoardEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("⚠️ Kafka: failed to encode %s event for %s: %v", ev.Kind, ev.BoardID, err)
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.BoardID),
		Value: sarama.ByteEncoder(payload),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- msg:
	default:
		log.Printf("⚠️ Kafka: queue full, dropping %s event for %s", ev.Kind, ev.BoardID)
	}
}

func (p *Producer) forward() {
	defer close(p.sent)
	for msg := range p.queue {
		select {
		case p.producer.Input() <- msg:
		case <-p.quit:
			return
		}
	}
}

func (p *Producer) logErrors() {
	defer close(p.logged)
	for perr := range p.producer.Errors() {
		log.Printf("⚠️ Kafka: failed to send event for %v: %v", perr.Msg.Key, perr.Err)
	}
}
