package safe

import (
	"context"
	"io"

	"github.com/secmon-lab/huddle/pkg/utils/logging"
)

// Close closes c on a path where the close error cannot be returned, usually
// because another error is already being returned. The failure is logged
// with attrs. A nil c is ignored.
func Close(ctx context.Context, c io.Closer, attrs ...any) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logging.From(ctx).Warn("failed to close", append([]any{"error", err.Error()}, attrs...)...)
	}
}
