package audit

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

const kafkaWriteTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// kafkaWriter publishes a batch of audit lines with a single WriteMessages call.
type kafkaWriter struct {
	writer  messageWriter
	timeout time.Duration
}

func (k *kafkaWriter) WriteLines(lines []line) error {
	msgs := make([]kafka.Message, 0, len(lines))
	for _, l := range lines {
		msgs = append(msgs, kafka.Message{
			Key:   []byte(l.key),
			Value: []byte(l.text),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()

	return k.writer.WriteMessages(ctx, msgs...)
}

func (k *kafkaWriter) Close() error {
	return k.writer.Close()
}

// NewKafkaSink writes synchronously. Wrap it in NewAsyncSink to keep broker
// latency off the intake path.
func NewKafkaSink(brokers []string, topic string, f Formatter) *LineSink {
	return newKafkaSink(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}, f)
}

func newKafkaSink(w messageWriter, f Formatter) *LineSink {
	return &LineSink{
		Formatter: f,
		out:       &kafkaWriter{writer: w, timeout: kafkaWriteTimeout},
	}
}
