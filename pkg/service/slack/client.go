package slack

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
	"golang.org/x/time/rate"
)

const (
	// DefaultRateInterval keeps posting under the chat.postMessage tier limit
	DefaultRateInterval = time.Second
	DefaultRateBurst    = 3

	// MaxSectionTextLength is the Slack limit of a section block text
	MaxSectionTextLength = 3000
	// MaxHeaderTextLength is the Slack limit of a header block text
	MaxHeaderTextLength = 150
	// MaxBlocks is the number of blocks Slack accepts in one message
	MaxBlocks = 50
)

// client implements Service interface
type client struct {
	api     *slack.Client
	limiter *rate.Limiter
	apiURL  string
}

// Option is a functional option for client configuration
type Option func(*client)

// WithRateLimit sets the outbound request rate
func WithRateLimit(interval time.Duration, burst int) Option {
	return func(c *client) {
		c.limiter = rate.NewLimiter(rate.Every(interval), burst)
	}
}

// WithAPIURL points the client to another API endpoint, used by tests
func WithAPIURL(url string) Option {
	return func(c *client) {
		c.apiURL = url
	}
}

// New creates a new Slack service with the provided bot token
func New(token string, opts ...Option) (Service, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}

	c := &client{
		limiter: rate.NewLimiter(rate.Every(DefaultRateInterval), DefaultRateBurst),
	}
	for _, opt := range opts {
		opt(c)
	}

	var apiOpts []slack.Option
	if c.apiURL != "" {
		apiOpts = append(apiOpts, slack.OptionAPIURL(c.apiURL))
	}
	c.api = slack.New(token, apiOpts...)

	return c, nil
}

func (c *client) PostMessage(ctx context.Context, channelID string, blocks []slack.Block, text string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", goerr.Wrap(err, "rate limiter wait cancelled", goerr.V("channel_id", channelID))
	}

	_, ts, err := c.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to post message to Slack", goerr.V("channel_id", channelID))
	}
	return ts, nil
}

func (c *client) PostTargetedMessage(ctx context.Context, channelID string, userIDs []string, blocks []slack.Block, text string) (string, error) {
	if len(userIDs) == 0 {
		return "", goerr.New("targeted message requires at least one user", goerr.V("channel_id", channelID))
	}

	mentions := Mentions(userIDs)
	mentionBlock := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, SectionText(mentions), false, false),
		nil, nil,
	)
	all := append([]slack.Block{mentionBlock}, blocks...)
	if len(all) > MaxBlocks {
		all = all[:MaxBlocks]
	}

	return c.PostMessage(ctx, channelID, all, mentions+" "+text)
}

// Mentions renders user IDs as Slack mentions separated by spaces
func Mentions(userIDs []string) string {
	parts := make([]string, len(userIDs))
	for i, id := range userIDs {
		parts[i] = "<@" + id + ">"
	}
	return strings.Join(parts, " ")
}

// truncateText cuts s to at most maxLen runes, marking the cut with an ellipsis
func truncateText(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}

// SectionText returns s fitted into a single section block
func SectionText(s string) string {
	return truncateText(s, MaxSectionTextLength)
}

// HeaderText returns s fitted into a header block
func HeaderText(s string) string {
	return truncateText(s, MaxHeaderTextLength)
}
