package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/storage/memory"
)

func filledMessage(id string) domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:            id,
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   "order-" + id,
		EventType:     domain.EventTypeOrderFilled,
		Payload:       []byte(`{"order_id":"order-` + id + `"}`),
	}
}

func TestWorker_ProcessOnce_MarkSent(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	if _, err := repo.Enqueue(filledMessage("msg-1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	publisher := &stubPublisher{}
	metrics := &stubMetrics{}

	worker := NewWorker(repo, publisher, WithRetryBaseDelay(0), WithMetrics(metrics))

	if sent := worker.ProcessOnce(context.Background()); sent != 1 {
		t.Fatalf("expected 1 sent message, got %d", sent)
	}
	if got := len(repo.AllPending()); got != 0 {
		t.Fatalf("expected empty backlog, got %d", got)
	}
	if got := publisher.calls(); got != 1 {
		t.Fatalf("expected 1 publish call, got %d", got)
	}
	if got := metrics.count(resultSent); got != 1 {
		t.Fatalf("expected 1 sent metric, got %d", got)
	}
	if metrics.lastPending != 0 {
		t.Fatalf("expected backlog gauge 0, got %d", metrics.lastPending)
	}
}

func TestWorker_ProcessOnce_MarkFailedAndDLQAfterRetries(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{filledMessage("msg-2")}}
	publisher := &stubPublisher{err: errors.New("broker unavailable")}
	dlqPublisher := &stubPublisher{}
	metrics := &stubMetrics{}

	worker := NewWorker(
		repo,
		publisher,
		WithDLQPublisher(dlqPublisher),
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
		WithMetrics(metrics),
	)

	if sent := worker.ProcessOnce(context.Background()); sent != 0 {
		t.Fatalf("expected 0 sent messages, got %d", sent)
	}

	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}
	if got := len(repo.sentIDs); got != 0 {
		t.Fatalf("expected 0 sent marks, got %d", got)
	}
	if got := len(repo.failedIDs); got != 1 {
		t.Fatalf("expected 1 failed mark, got %d", got)
	}
	if got := dlqPublisher.calls(); got != 1 {
		t.Fatalf("expected 1 DLQ publish, got %d", got)
	}
	if got := metrics.count(resultRetryError); got != 3 {
		t.Fatalf("expected 3 retry errors, got %d", got)
	}
	if got := metrics.count(resultDLQ); got != 1 {
		t.Fatalf("expected 1 dlq metric, got %d", got)
	}

	var envelope deadLetterEnvelope
	if err := json.Unmarshal(dlqPublisher.last().Payload, &envelope); err != nil {
		t.Fatalf("decode dlq envelope: %v", err)
	}
	if envelope.OutboxID != "msg-2" || envelope.EventType != domain.EventTypeOrderFilled {
		t.Fatalf("unexpected dlq envelope: %+v", envelope)
	}
	if envelope.PublishError == "" {
		t.Fatal("expected publish error in dlq envelope")
	}
	if string(envelope.Payload) != `{"order_id":"order-msg-2"}` {
		t.Fatalf("expected original payload, got %s", envelope.Payload)
	}
}

func TestWorker_ProcessOnce_RetryThenSuccess(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{filledMessage("msg-3")}}
	publisher := &stubPublisher{
		sequenceErrors: []error{
			errors.New("attempt 1"),
			errors.New("attempt 2"),
			nil,
		},
	}

	worker := NewWorker(repo, publisher, WithRetryBaseDelay(time.Millisecond), WithMaxAttempts(3))
	worker.ProcessOnce(context.Background())

	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}
	if got := len(repo.sentIDs); got != 1 {
		t.Fatalf("expected 1 sent mark, got %d", got)
	}
	if got := len(repo.failedIDs); got != 0 {
		t.Fatalf("expected 0 failed marks, got %d", got)
	}
}

func TestWorker_ProcessOnce_PullError(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pullErr: errors.New("db down")}
	publisher := &stubPublisher{}

	worker := NewWorker(repo, publisher)
	if sent := worker.ProcessOnce(context.Background()); sent != 0 {
		t.Fatalf("expected 0 sent messages, got %d", sent)
	}
	if got := publisher.calls(); got != 0 {
		t.Fatalf("expected no publish calls, got %d", got)
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	cases := []struct {
		base    time.Duration
		attempt int
		want    time.Duration
	}{
		{base: 0, attempt: 3, want: 0},
		{base: 10 * time.Millisecond, attempt: 1, want: 10 * time.Millisecond},
		{base: 10 * time.Millisecond, attempt: 3, want: 40 * time.Millisecond},
		{base: time.Hour, attempt: 80, want: time.Duration(1<<63 - 1)},
	}
	for _, tc := range cases {
		if got := backoff(tc.base, tc.attempt); got != tc.want {
			t.Fatalf("backoff(%s, %d) = %s, want %s", tc.base, tc.attempt, got, tc.want)
		}
	}
}

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	publisher := &stubPublisher{}

	worker := NewWorker(repo, publisher, WithPollInterval(5*time.Millisecond), WithRetryBaseDelay(0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	if _, err := repo.Enqueue(filledMessage("late")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for publisher.calls() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
	if publisher.calls() == 0 {
		t.Fatal("expected message enqueued after start to be published")
	}
}

func TestWorker_Run_DisabledWithoutPublisher(t *testing.T) {
	t.Parallel()

	worker := NewWorker(memory.NewOutboxRepository(), nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker without publisher should return immediately")
	}
}

type stubOutboxRepo struct {
	pending   []domain.OutboxMessage
	pullErr   error
	sentIDs   []string
	failedIDs []string
}

func (s *stubOutboxRepo) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	s.pending = append(s.pending, msg)
	return msg, nil
}

func (s *stubOutboxRepo) PullPending(limit int) ([]domain.OutboxMessage, error) {
	if s.pullErr != nil {
		return nil, s.pullErr
	}
	if limit <= 0 || limit >= len(s.pending) {
		return append([]domain.OutboxMessage(nil), s.pending...), nil
	}
	return append([]domain.OutboxMessage(nil), s.pending[:limit]...), nil
}

func (s *stubOutboxRepo) Stats() (domain.OutboxStats, error) {
	stats := domain.OutboxStats{PendingCount: len(s.pending)}
	if len(s.pending) > 0 {
		stats.OldestPendingAt = time.Now().UTC().Add(-time.Second)
	}
	return stats, nil
}

func (s *stubOutboxRepo) MarkSent(id string) error {
	s.sentIDs = append(s.sentIDs, id)
	return nil
}

func (s *stubOutboxRepo) MarkFailed(id string) error {
	s.failedIDs = append(s.failedIDs, id)
	return nil
}

type stubPublisher struct {
	mu             sync.Mutex
	err            error
	sequenceErrors []error
	published      []domain.OutboxMessage
}

func (s *stubPublisher) Publish(msg domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.published = append(s.published, msg)
	if len(s.sequenceErrors) > 0 {
		err := s.sequenceErrors[0]
		s.sequenceErrors = s.sequenceErrors[1:]
		return err
	}
	return s.err
}

func (s *stubPublisher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.published)
}

func (s *stubPublisher) last() domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published[len(s.published)-1]
}

type stubMetrics struct {
	mu          sync.Mutex
	attempts    map[string]int
	lastPending int
}

func (s *stubMetrics) RecordPublishAttempt(result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempts == nil {
		s.attempts = map[string]int{}
	}
	s.attempts[result]++
}

func (s *stubMetrics) RecordBacklog(pending int, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPending = pending
}

func (s *stubMetrics) count(result string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[result]
}

var _ domain.OutboxRepository = (*stubOutboxRepo)(nil)
var _ domain.OutboxPublisher = (*stubPublisher)(nil)
var _ Metrics = (*stubMetrics)(nil)
