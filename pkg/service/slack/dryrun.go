package slack

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/secmon-lab/huddle/pkg/utils/logging"
	"github.com/slack-go/slack"
)

// dryRun logs messages instead of posting them. It is used when no bot token
// is configured.
type dryRun struct {
	seq atomic.Int64
}

// NewDryRun returns a Service that only logs
func NewDryRun() Service {
	return &dryRun{}
}

func (d *dryRun) PostMessage(ctx context.Context, channelID string, blocks []slack.Block, text string) (string, error) {
	ts := fmt.Sprintf("dryrun.%06d", d.seq.Add(1))
	logging.From(ctx).Info("Slack message (dry run)",
		"channel_id", channelID,
		"text", text,
		"blocks", len(blocks),
		"ts", ts,
	)
	return ts, nil
}

func (d *dryRun) PostTargetedMessage(ctx context.Context, channelID string, userIDs []string, blocks []slack.Block, text string) (string, error) {
	return d.PostMessage(ctx, channelID, blocks, Mentions(userIDs)+" "+text)
}
