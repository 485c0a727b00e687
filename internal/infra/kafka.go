// README: Kafka writer for the ride event stream.
package infra

import "github.com/segmentio/kafka-go"

// NewKafkaWriter hashes on the message key so events of one ride stay ordered.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.Hash{}})
}
