package writer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

// flakyStore fails the first failuresLeft writes and succeeds afterwards.
type flakyStore struct {
	mu           sync.Mutex
	failuresLeft int
	attempts     int
	written      []interface{}
}

func (s *flakyStore) WriteRow(_ context.Context, _ string, row interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.failuresLeft > 0 {
		s.failuresLeft--
		return errStoreDown
	}
	s.written = append(s.written, row)
	return nil
}

func testPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{MaxRetries: maxRetries, Backoff: time.Millisecond}
}

func TestWriteBatchAllSucceed(t *testing.T) {
	store := &flakyStore{}
	engine := NewEngine(store, 4, testPolicy(3))

	rows := []interface{}{"a", "b", "c"}
	require.NoError(t, engine.WriteBatch(context.Background(), "block", rows))

	assert.Equal(t, 3, store.attempts)
	assert.Len(t, store.written, 3)
}

func TestWriteBatchEmpty(t *testing.T) {
	store := &flakyStore{}
	engine := NewEngine(store, 4, testPolicy(3))

	require.NoError(t, engine.WriteBatch(context.Background(), "block", nil))
	assert.Zero(t, store.attempts)
}

func TestWriteBatchRetriesWithinBudget(t *testing.T) {
	// two failures, budget of three: the row lands on the third attempt
	store := &flakyStore{failuresLeft: 2}
	engine := NewEngine(store, 1, testPolicy(3))

	require.NoError(t, engine.WriteBatch(context.Background(), "block", []interface{}{"a"}))

	assert.Equal(t, 3, store.attempts)
	assert.Len(t, store.written, 1)
}

func TestWriteBatchExhaustsBudget(t *testing.T) {
	store := &flakyStore{failuresLeft: 1 << 30}
	engine := NewEngine(store, 1, testPolicy(3))

	err := engine.WriteBatch(context.Background(), "block", []interface{}{"a"})
	require.ErrorIs(t, err, ErrRetryBudgetExhausted)
	assert.Contains(t, err.Error(), errStoreDown.Error())

	// one initial attempt plus MaxRetries retries
	assert.Equal(t, 4, store.attempts)
}

func TestWriteBatchSuccessResetsBudget(t *testing.T) {
	// two rows, each failing twice: without the reset after the first row
	// lands, the second row would blow the shared budget
	store := &perRowFlakyStore{failuresPerRow: 2}
	engine := NewEngine(store, 1, testPolicy(2))

	rows := []interface{}{"a", "b"}
	require.NoError(t, engine.WriteBatch(context.Background(), "block", rows))
	assert.ElementsMatch(t, rows, store.written)
}

func TestWriteBatchResubmitsWholeBatch(t *testing.T) {
	// every row of the first pass fails, the engine backs off and resubmits
	store := &flakyStore{failuresLeft: 2}
	engine := NewEngine(store, 2, testPolicy(3))

	rows := []interface{}{"a", "b"}
	require.NoError(t, engine.WriteBatch(context.Background(), "block", rows))

	// 2 failed writes in the first pass, 2 successful in the resubmission
	assert.Equal(t, 4, store.attempts)
	assert.ElementsMatch(t, rows, store.written)
}

func TestWriteBatchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &flakyStore{failuresLeft: 1 << 30}
	engine := NewEngine(store, 1, testPolicy(1))

	err := engine.WriteBatch(ctx, "block", []interface{}{"a", "b"})
	require.Error(t, err)
}

// perRowFlakyStore fails every distinct row a fixed number of times.
type perRowFlakyStore struct {
	mu             sync.Mutex
	failuresPerRow int
	failures       map[interface{}]int
	written        []interface{}
}

func (s *perRowFlakyStore) WriteRow(_ context.Context, _ string, row interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures == nil {
		s.failures = make(map[interface{}]int)
	}
	if s.failures[row] < s.failuresPerRow {
		s.failures[row]++
		return errStoreDown
	}
	s.written = append(s.written, row)
	return nil
}
