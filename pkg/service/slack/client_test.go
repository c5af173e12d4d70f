package slack_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/huddle/pkg/service/slack"
	goslack "github.com/slack-go/slack"
)

type postedMessage struct {
	channel string
	text    string
	blocks  string
}

func newFakeSlack(t *testing.T) (*httptest.Server, func() []postedMessage) {
	t.Helper()

	var mu sync.Mutex
	var posted []postedMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.NoError(t, r.ParseForm())
		mu.Lock()
		posted = append(posted, postedMessage{
			channel: r.Form.Get("channel"),
			text:    r.Form.Get("text"),
			blocks:  r.Form.Get("blocks"),
		})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		gt.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"ok":      true,
			"channel": r.Form.Get("channel"),
			"ts":      "1700000000.000100",
		}))
	}))
	t.Cleanup(srv.Close)

	return srv, func() []postedMessage {
		mu.Lock()
		defer mu.Unlock()
		return append([]postedMessage(nil), posted...)
	}
}

// sectionTexts decodes the posted blocks JSON and returns the text of each block
func sectionTexts(t *testing.T, raw string) []string {
	t.Helper()

	var blocks []struct {
		Type string `json:"type"`
		Text struct {
			Text string `json:"text"`
		} `json:"text"`
	}
	gt.NoError(t, json.Unmarshal([]byte(raw), &blocks)).Required()

	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.Text.Text
	}
	return texts
}

func TestNew(t *testing.T) {
	t.Run("returns error when token is empty", func(t *testing.T) {
		_, err := slack.New("")
		gt.Value(t, err).NotNil()
	})

	t.Run("creates service when token is provided", func(t *testing.T) {
		svc, err := slack.New("test-token")
		gt.NoError(t, err).Required()
		gt.Value(t, svc).NotNil()
	})
}

func TestPostMessage(t *testing.T) {
	srv, posted := newFakeSlack(t)

	svc, err := slack.New("xoxb-test", slack.WithAPIURL(srv.URL+"/"))
	gt.NoError(t, err).Required()

	blocks := []goslack.Block{
		goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, "*Daily standup*", false, false), nil, nil),
	}
	ts, err := svc.PostMessage(context.Background(), "C123", blocks, "Daily standup")
	gt.NoError(t, err).Required()
	gt.Value(t, ts).Equal("1700000000.000100")

	msgs := posted()
	gt.Array(t, msgs).Length(1)
	gt.Value(t, msgs[0].channel).Equal("C123")
	gt.Value(t, msgs[0].text).Equal("Daily standup")
	gt.String(t, msgs[0].blocks).Contains("Daily standup")
}

func TestPostTargetedMessage(t *testing.T) {
	srv, posted := newFakeSlack(t)

	svc, err := slack.New("xoxb-test", slack.WithAPIURL(srv.URL+"/"))
	gt.NoError(t, err).Required()

	t.Run("mentions every user", func(t *testing.T) {
		_, err := svc.PostTargetedMessage(context.Background(), "C123", []string{"U1", "U2"}, nil, "please answer")
		gt.NoError(t, err).Required()

		msgs := posted()
		gt.Array(t, msgs).Length(1)
		gt.String(t, msgs[0].text).Contains("<@U1> <@U2>")

		texts := sectionTexts(t, msgs[0].blocks)
		gt.Array(t, texts).Length(1).Required()
		gt.Value(t, texts[0]).Equal("<@U1> <@U2>")
	})

	t.Run("fits a large mention list into Slack limits", func(t *testing.T) {
		srv, posted := newFakeSlack(t)
		svc, err := slack.New("xoxb-test", slack.WithAPIURL(srv.URL+"/"))
		gt.NoError(t, err).Required()

		users := make([]string, 400)
		for i := range users {
			users[i] = fmt.Sprintf("U%08d", i)
		}
		blocks := make([]goslack.Block, slack.MaxBlocks)
		for i := range blocks {
			blocks[i] = goslack.NewDividerBlock()
		}

		_, err = svc.PostTargetedMessage(context.Background(), "C123", users, blocks, "please answer")
		gt.NoError(t, err).Required()

		msgs := posted()
		gt.Array(t, msgs).Length(1).Required()
		texts := sectionTexts(t, msgs[0].blocks)
		gt.Array(t, texts).Length(slack.MaxBlocks)
		gt.N(t, len([]rune(texts[0]))).LessOrEqual(slack.MaxSectionTextLength)
		gt.B(t, strings.HasPrefix(texts[0], "<@U00000000> <@U00000001>")).True()
	})

	t.Run("requires at least one user", func(t *testing.T) {
		_, err := svc.PostTargetedMessage(context.Background(), "C123", nil, nil, "nobody")
		gt.Value(t, err).NotNil()
	})
}

func TestDryRun(t *testing.T) {
	svc := slack.NewDryRun()

	first, err := svc.PostMessage(context.Background(), "C1", nil, "hello")
	gt.NoError(t, err).Required()
	second, err := svc.PostTargetedMessage(context.Background(), "C1", []string{"U1"}, nil, "hello")
	gt.NoError(t, err).Required()
	gt.Value(t, first).NotEqual(second)
}

func TestMentions(t *testing.T) {
	gt.Value(t, slack.Mentions([]string{"U1", "U2"})).Equal("<@U1> <@U2>")
	gt.Value(t, slack.Mentions(nil)).Equal("")
}

func TestHeaderText(t *testing.T) {
	long := strings.Repeat("x", 200)
	gt.N(t, len([]rune(slack.HeaderText(long)))).Equal(slack.MaxHeaderTextLength)
	gt.Value(t, slack.HeaderText("Team A standup")).Equal("Team A standup")
}

func TestTruncateText(t *testing.T) {
	gt.Value(t, slack.TruncateText("short", 10)).Equal("short")
	gt.Value(t, slack.TruncateText("abcdefghij", 5)).Equal("abcd…")
	gt.Value(t, slack.TruncateText("日本語のテキスト", 4)).Equal("日本語…")
}

func TestIntegration(t *testing.T) {
	token := os.Getenv("TEST_SLACK_BOT_TOKEN")
	channelID := os.Getenv("TEST_SLACK_CHANNEL_ID")
	if token == "" || channelID == "" {
		t.Skip("TEST_SLACK_BOT_TOKEN or TEST_SLACK_CHANNEL_ID is not set")
	}

	svc, err := slack.New(token)
	gt.NoError(t, err).Required()

	ts, err := svc.PostMessage(context.Background(), channelID, nil, "huddle integration test")
	gt.NoError(t, err).Required()
	gt.Value(t, ts).NotEqual("")
}
