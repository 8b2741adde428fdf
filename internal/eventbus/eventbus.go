// Package eventbus publishes wallet domain events (new output, balance
// change, transaction progress/confirmed/conflicting — SPEC_FULL.md §4) to
// an optional Kafka topic via Shopify/sarama, following the teacher's
// datasync/chaindatafetcher/kafka config+publish pattern. It is the "event
// bus" external collaborator spec.md §2 names; publish failures are logged
// and never propagate, since the event bus enriches observability but must
// never affect sync/send outcomes (spec.md §7 propagation policy: sync
// errors are logged and surfaced only through the sync call itself).
package eventbus

import (
	"encoding/json"

	"github.com/Shopify/sarama"
	"github.com/iotaledger/wallet.go/log"
)

var logger = log.NewModuleLogger(log.EventBus)

// EventKind enumerates the wallet domain events SPEC_FULL.md §4 lists.
type EventKind string

const (
	EventNewOutput             EventKind = "NewOutput"
	EventSpentOutput           EventKind = "SpentOutput"
	EventBalanceChange         EventKind = "BalanceChange"
	EventTransactionProgress   EventKind = "TransactionProgress"
	EventTransactionConfirmed  EventKind = "TransactionConfirmed"
	EventTransactionConflicting EventKind = "TransactionConflicting"
)

// Event is the envelope published for every domain event.
type Event struct {
	AccountIndex uint32      `json:"account_index"`
	Kind         EventKind   `json:"kind"`
	Payload      interface{} `json:"payload"`
}

// Bus publishes events; Local is used when no Kafka broker is configured
// (e.g. in tests, or single-process deployments) and simply invokes a
// subscriber callback in-process.
type Bus interface {
	Publish(event Event)
	Subscribe(fn func(Event))
	Close()
}

// KafkaConfig mirrors the teacher's KafkaConfig shape.
type KafkaConfig struct {
	SaramaConfig *sarama.Config
	Brokers      []string
	TopicPrefix  string
}

// DefaultKafkaConfig matches the teacher's GetDefaultKafkaConfig defaults.
func DefaultKafkaConfig(brokers []string, topicPrefix string) *KafkaConfig {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Version = sarama.MaxVersion
	return &KafkaConfig{SaramaConfig: cfg, Brokers: brokers, TopicPrefix: topicPrefix}
}

type kafkaBus struct {
	producer    sarama.SyncProducer
	topicPrefix string
	subscribers []func(Event)
}

// NewKafkaBus dials the given brokers and returns a Bus that publishes to
// "<topicPrefix>-events". Callers should Close it on manager shutdown.
func NewKafkaBus(cfg *KafkaConfig) (Bus, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, cfg.SaramaConfig)
	if err != nil {
		return nil, err
	}
	return &kafkaBus{producer: producer, topicPrefix: cfg.TopicPrefix}, nil
}

func (b *kafkaBus) Publish(event Event) {
	encoded, err := json.Marshal(event)
	if err != nil {
		logger.Warnw("failed to encode wallet event", "err", err)
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: b.topicPrefix + "-events",
		Value: sarama.ByteEncoder(encoded),
	}
	if _, _, err := b.producer.SendMessage(msg); err != nil {
		logger.Warnw("failed to publish wallet event", "kind", event.Kind, "err", err)
	}
	for _, fn := range b.subscribers {
		fn(event)
	}
}

func (b *kafkaBus) Subscribe(fn func(Event)) { b.subscribers = append(b.subscribers, fn) }

func (b *kafkaBus) Close() {
	if err := b.producer.Close(); err != nil {
		logger.Warnw("failed to close kafka producer", "err", err)
	}
}

// localBus is an in-process Bus with no external broker. cmd/walletd uses
// it when no Kafka brokers are configured; a nil Bus (manager.Options.Bus
// unset) publishes nothing.
type localBus struct {
	subscribers []func(Event)
}

func NewLocalBus() Bus { return &localBus{} }

func (b *localBus) Publish(event Event) {
	for _, fn := range b.subscribers {
		fn(event)
	}
}

func (b *localBus) Subscribe(fn func(Event)) { b.subscribers = append(b.subscribers, fn) }
func (b *localBus) Close()                   {}
