package slack

import (
	"context"

	"github.com/slack-go/slack"
)

// Service is the notification gateway to Slack
type Service interface {
	// PostMessage posts a Block Kit message to a channel and returns the message timestamp.
	// The text parameter is used as a fallback for notifications.
	PostMessage(ctx context.Context, channelID string, blocks []slack.Block, text string) (string, error)

	// PostTargetedMessage posts a message that mentions every user in userIDs
	// ahead of the blocks. userIDs must not be empty.
	PostTargetedMessage(ctx context.Context, channelID string, userIDs []string, blocks []slack.Block, text string) (string, error)
}
