// Package pipeline consumes signed transactions from Kafka, submits each one
// reliably, and produces the final outcome to a result topic. Every
// transaction resolves in its own goroutine; resolutions share nothing but
// the network client.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/meridianledger/meridian-go/internal/journal"
	"github.com/meridianledger/meridian-go/pkg/config"
	"github.com/meridianledger/meridian-go/pkg/logging"
	"github.com/meridianledger/meridian-go/pkg/submit"
	"github.com/meridianledger/meridian-go/pkg/transaction"
)

var (
	// Topic for incoming signed transactions
	submitTopic = "submit_transactions"

	// Topic for transaction outcomes (validated, expired, rejected)
	outcomeTopic = "transaction_outcomes"
)

// Pipeline moves transactions from Kafka through reliable submission.
type Pipeline struct {
	ctx       context.Context
	config    *config.Config
	consumer  *kafka.Consumer
	producer  *kafka.Producer
	submitter *submit.Submitter
	journal   *journal.RedisJournal
	logger    *logging.Logger

	// inFlight bounds concurrent resolutions.
	inFlight chan struct{}
	wg       sync.WaitGroup
}

// New creates a pipeline wired to Kafka, Redis and the given submitter.
func New(ctx context.Context, cfg *config.Config, submitter *submit.Submitter, jnl *journal.RedisJournal, logger *logging.Logger) (*Pipeline, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Kafka.Brokers,
		"group.id":          cfg.Kafka.ConsumerGroup,
		"auto.offset.reset": "earliest",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Kafka.Brokers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	inFlight := cfg.Kafka.InFlight
	if inFlight <= 0 {
		inFlight = 1
	}

	return &Pipeline{
		ctx:       ctx,
		config:    cfg,
		consumer:  consumer,
		producer:  producer,
		submitter: submitter,
		journal:   jnl,
		logger:    logger,
		inFlight:  make(chan struct{}, inFlight),
	}, nil
}

// Start begins consuming transactions from Kafka. It blocks until the
// pipeline context is cancelled.
func (p *Pipeline) Start() {
	if err := p.consumer.SubscribeTopics([]string{submitTopic}, nil); err != nil {
		p.logger.Error("Failed to subscribe to topics", "error", err)
		return
	}

	p.logger.Info("Submission pipeline started, waiting for transactions")

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Info("Shutting down submission pipeline")
			p.wg.Wait()
			p.consumer.Close()
			p.producer.Flush(15 * 1000)
			p.producer.Close()
			return

		default:
			msg, err := p.consumer.ReadMessage(100 * time.Millisecond)
			if err != nil {
				if kafkaErr, ok := err.(kafka.Error); ok && kafkaErr.Code() == kafka.ErrTimedOut {
					continue
				}
				p.logger.Error("Error reading message", "error", err)
				continue
			}

			p.processMessage(msg)
		}
	}
}

// processMessage handles a single Kafka message containing a signed
// transaction.
func (p *Pipeline) processMessage(msg *kafka.Message) {
	tx, err := transaction.FromJSON(msg.Value)
	if err != nil {
		p.logger.Error("Error deserializing transaction", "error", err)
		return
	}

	hash, err := tx.Hash()
	if err != nil {
		p.logger.Error("Error hashing transaction", "error", err)
		return
	}

	// A hash with a journaled outcome is already final; republish it
	// instead of re-resolving.
	if existing, err := p.journal.Lookup(p.ctx, hash); err == nil && existing != nil {
		p.logger.Info("Transaction already resolved", "hash", hash, "status", existing.Status)
		p.publishOutcome(existing)
		return
	}

	p.inFlight <- struct{}{}
	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.inFlight
			p.wg.Done()
		}()
		p.resolve(tx, hash)
	}()
}

// resolve runs one reliable submission end to end and journals the outcome.
func (p *Pipeline) resolve(tx *transaction.Transaction, hash string) {
	p.logger.Info("Submitting transaction",
		"hash", hash,
		"expiry_height", tx.LastLedgerSequence,
	)

	snapshot, err := p.submitter.SubmitAndWait(p.ctx, tx)

	var outcome *journal.Outcome
	switch {
	case err == nil:
		outcome = &journal.Outcome{
			Hash:         snapshot.Hash,
			Status:       journal.StatusValidated,
			ExpiryHeight: snapshot.ExpiryHeight,
			Result:       snapshot.Result,
		}
	default:
		outcome = journal.OutcomeFromError(hash, err)
		if outcome == nil {
			// Infrastructure failure or defect: not final, nothing to
			// journal. The message can be replayed.
			p.logger.Error("Submission did not reach a final outcome",
				"hash", hash, "error", err)
			return
		}
	}

	if err := p.journal.Record(p.ctx, outcome); err != nil {
		p.logger.Error("Failed to journal outcome", "hash", hash, "error", err)
	}

	p.publishOutcome(outcome)
}

// publishOutcome produces a final outcome to the outcome topic.
func (p *Pipeline) publishOutcome(outcome *journal.Outcome) {
	data, err := json.Marshal(outcome)
	if err != nil {
		p.logger.Error("Failed to serialize outcome", "hash", outcome.Hash, "error", err)
		return
	}

	err = p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &outcomeTopic, Partition: kafka.PartitionAny},
		Key:            []byte(outcome.Hash),
		Value:          data,
	}, nil)
	if err != nil {
		p.logger.Error("Failed to publish outcome", "hash", outcome.Hash, "error", err)
		return
	}

	p.logger.Info("Published outcome", "hash", outcome.Hash, "status", outcome.Status)
}
