package messaging

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/fatflowers/donorsync/pkg/config"
)

type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer implements Consumer using a kafka-go consumer group reader.
type KafkaConsumer struct {
	reader  messageReader
	topic   string
	groupID string
	backoff time.Duration
	log     *zap.SugaredLogger
	wg      sync.WaitGroup
}

func NewKafkaConsumer(log *zap.SugaredLogger, cfg *config.KafkaConfig) *KafkaConsumer {
	return newConsumer(log, cfg.Topic, cfg.GroupID, kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,
		MaxBytes:    1 << 20,
		MaxWait:     time.Second,
		StartOffset: kafka.FirstOffset,
	}))
}

func newConsumer(log *zap.SugaredLogger, topic, groupID string, r messageReader) *KafkaConsumer {
	return &KafkaConsumer{reader: r, topic: topic, groupID: groupID, backoff: time.Second, log: log}
}

// Subscribe starts the fetch loop in the background. A message whose handler
// fails is not committed, so it is redelivered after a rebalance or restart.
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	log := c.log.With("topic", c.topic, "group_id", c.groupID)
	log.Infow("subscribed to kafka topic")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			if ctx.Err() != nil {
				log.Infow("context canceled, stopping consumer")
				return
			}
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
					return
				}
				log.Errorw("failed to fetch message from kafka", "error", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(c.backoff):
				}
				continue
			}

			mlog := log.With("partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key))
			if err := handler(ctx, msg.Key, msg.Value); err != nil {
				mlog.Errorw("failed to process message, will not commit offset", "error", err)
				continue
			}
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				mlog.Errorw("failed to commit message after successful processing", "error", err)
				continue
			}
			mlog.Debugw("message committed")
		}
	}()
	return nil
}

// Close stops the reader and waits for the fetch loop to exit.
func (c *KafkaConsumer) Close() error {
	if c.reader == nil {
		return nil
	}
	err := c.reader.Close()
	c.wg.Wait()
	return err
}
