package async_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/huddle/pkg/utils/async"
	"github.com/secmon-lab/huddle/pkg/utils/logging"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newCtx(t *testing.T) (context.Context, *syncBuffer) {
	t.Helper()

	buf := &syncBuffer{}
	logger, err := logging.New(buf, slog.LevelDebug, logging.FormatJSON, false)
	gt.NoError(t, err).Required()
	return logging.With(context.Background(), logger), buf
}

func TestDispatch_SurvivesCancel(t *testing.T) {
	ctx, _ := newCtx(t)
	ctx, cancel := context.WithCancel(ctx)

	release := make(chan struct{})
	done := make(chan error, 1)
	async.Dispatch(ctx, "wait", func(ctx context.Context) error {
		<-release
		done <- ctx.Err()
		return nil
	})

	cancel()
	close(release)

	select {
	case err := <-done:
		gt.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
}

func TestDispatch_ReportsErrorsAndPanics(t *testing.T) {
	ctx, buf := newCtx(t)

	async.Dispatch(ctx, "failing", func(ctx context.Context) error {
		return errors.New("queue unavailable")
	})
	async.Dispatch(ctx, "panicking", func(ctx context.Context) error {
		panic("boom")
	})

	gt.B(t, waitFor(func() bool {
		out := buf.String()
		return strings.Contains(out, "queue unavailable") && strings.Contains(out, "async job panicked")
	})).True()
	gt.String(t, buf.String()).Contains(`"job":"failing"`)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}
