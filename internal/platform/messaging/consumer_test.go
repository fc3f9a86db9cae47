package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      chan kafka.Message
	committed []int64
	fetchErrs int
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if f.fetchErrs > 0 {
		f.fetchErrs--
		f.mu.Unlock()
		return kafka.Message{}, errors.New("broker unavailable")
	}
	f.mu.Unlock()
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case m := <-f.msgs:
		return m, nil
	}
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

func (f *fakeReader) committedOffsets() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.committed...)
}

func TestSubscribe_CommitsOnlyHandledMessages(t *testing.T) {
	r := &fakeReader{msgs: make(chan kafka.Message, 3), fetchErrs: 1}
	c := newConsumer(zap.NewNop().Sugar(), "donations", "donorsync", r)
	c.backoff = time.Millisecond

	r.msgs <- kafka.Message{Offset: 1, Value: []byte("ok")}
	r.msgs <- kafka.Message{Offset: 2, Value: []byte("bad")}
	r.msgs <- kafka.Message{Offset: 3, Value: []byte("ok")}

	var mu sync.Mutex
	var seen []string
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Subscribe(ctx, func(_ context.Context, _ []byte, value []byte) error {
		mu.Lock()
		seen = append(seen, string(value))
		mu.Unlock()
		if string(value) == "bad" {
			return errors.New("cannot handle")
		}
		return nil
	}))

	require.Eventually(t, func() bool { return len(r.committedOffsets()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, c.Close())

	require.Equal(t, []int64{1, 3}, r.committedOffsets())
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"ok", "bad", "ok"}, seen)
}
