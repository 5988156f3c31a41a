// Package journal persists final submission outcomes in Redis, keyed by
// transaction hash. Finality is immutable, so an outcome is written once and
// never overwritten; re-submitting an already-journaled hash returns the
// recorded outcome without touching the node.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/meridianledger/meridian-go/pkg/errors"
)

const outcomeKeyPrefix = "outcome:"

// Outcome status values.
const (
	StatusValidated = "VALIDATED"
	StatusExpired   = "EXPIRED"
	StatusRejected  = "REJECTED"
)

// Outcome is one journaled final submission outcome.
type Outcome struct {
	Hash         string                 `json:"hash"`
	Status       string                 `json:"status"`
	ExpiryHeight uint32                 `json:"expiry_height,omitempty"`
	LatestHeight uint32                 `json:"latest_height,omitempty"`
	EngineResult string                 `json:"engine_result,omitempty"`
	Message      string                 `json:"message,omitempty"`
	Result       map[string]interface{} `json:"result,omitempty"`
	RecordedAt   int64                  `json:"recorded_at"`
}

// RedisJournal stores outcomes in Redis.
type RedisJournal struct {
	client *redis.Client
}

// NewRedisJournal connects to Redis and verifies the connection.
func NewRedisJournal(addr, password string, db int) (*RedisJournal, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisJournal{client: client}, nil
}

// Close closes the Redis connection.
func (j *RedisJournal) Close() error {
	return j.client.Close()
}

// Ping checks the Redis connection.
func (j *RedisJournal) Ping(ctx context.Context) error {
	return j.client.Ping(ctx).Err()
}

// Record journals a final outcome. Writing the same hash twice is a no-op;
// the first recorded outcome wins, matching finality semantics.
func (j *RedisJournal) Record(ctx context.Context, outcome *Outcome) error {
	if outcome.Hash == "" {
		return errors.SubmissionWrap(errors.ErrInvalidInput, errors.OpJournalOutcome,
			"outcome requires a transaction hash")
	}
	if outcome.RecordedAt == 0 {
		outcome.RecordedAt = time.Now().Unix()
	}

	data, err := json.Marshal(outcome)
	if err != nil {
		return errors.SubmissionWrap(err, errors.OpJournalOutcome,
			"failed to serialize outcome")
	}

	if err := j.client.SetNX(ctx, outcomeKeyPrefix+outcome.Hash, data, 0).Err(); err != nil {
		return errors.SubmissionWrap(err, errors.OpJournalOutcome,
			"failed to journal outcome")
	}
	return nil
}

// Lookup returns the journaled outcome for a hash, or nil when the hash has
// no final outcome yet.
func (j *RedisJournal) Lookup(ctx context.Context, hash string) (*Outcome, error) {
	data, err := j.client.Get(ctx, outcomeKeyPrefix+hash).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.SubmissionWrap(err, errors.OpJournalOutcome,
			"failed to read journaled outcome")
	}

	var outcome Outcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		return nil, errors.SubmissionWrap(err, errors.OpJournalOutcome,
			"failed to decode journaled outcome")
	}
	return &outcome, nil
}

// OutcomeFromError translates a final submission error into a journal
// outcome. Infrastructure errors are not final and yield nil.
func OutcomeFromError(hash string, err error) *Outcome {
	var domainErr *errors.Error
	if !errors.As(err, &domainErr) || domainErr.Domain != errors.SubmissionDomain {
		return nil
	}

	outcome := &Outcome{Hash: hash, Message: domainErr.Message}
	switch domainErr.Code {
	case errors.SubmissionErrExpired:
		outcome.Status = StatusExpired
		if v, ok := domainErr.Field("latest_height"); ok {
			if h, ok := v.(uint32); ok {
				outcome.LatestHeight = h
			}
		}
		if v, ok := domainErr.Field("expiry_height"); ok {
			if h, ok := v.(uint32); ok {
				outcome.ExpiryHeight = h
			}
		}
	case errors.SubmissionErrRejected:
		outcome.Status = StatusRejected
		if v, ok := domainErr.Field("engine_result"); ok {
			if code, ok := v.(string); ok {
				outcome.EngineResult = code
			}
		}
	default:
		// Precondition and contract violations are defects, not outcomes.
		return nil
	}
	return outcome
}
