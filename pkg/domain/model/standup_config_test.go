package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/huddle/pkg/domain/model"
	"github.com/secmon-lab/huddle/pkg/domain/types"
)

func validConfig() *model.StandupConfig {
	return &model.StandupConfig{
		Version:              model.ConfigSnapshotVersion,
		TeamID:               "platform",
		TeamName:             "Platform",
		ChannelID:            "C0PLATFORM",
		Weekdays:             []time.Weekday{time.Monday, time.Wednesday},
		TimeLocal:            "09:30",
		Timezone:             "Asia/Tokyo",
		Questions:            []string{"Yesterday?", "Today?"},
		ResponseTimeoutHours: 4,
		Members: []model.Member{
			{ID: "alice", PlatformUserID: "U001"},
			{ID: "bob", PlatformUserID: "U002"},
		},
		Active: true,
	}
}

func TestStandupConfig_Validate(t *testing.T) {
	gt.NoError(t, validConfig().Validate())

	cases := []struct {
		name   string
		modify func(c *model.StandupConfig)
	}{
		{"invalid team id", func(c *model.StandupConfig) { c.TeamID = "Platform Team" }},
		{"missing channel", func(c *model.StandupConfig) { c.ChannelID = "" }},
		{"no weekdays", func(c *model.StandupConfig) { c.Weekdays = nil }},
		{"weekday out of range", func(c *model.StandupConfig) { c.Weekdays = []time.Weekday{7} }},
		{"bad time", func(c *model.StandupConfig) { c.TimeLocal = "9:30" }},
		{"unknown timezone", func(c *model.StandupConfig) { c.Timezone = "Mars/Olympus" }},
		{"no questions", func(c *model.StandupConfig) { c.Questions = nil }},
		{"too many questions", func(c *model.StandupConfig) { c.Questions = make([]string, 11) }},
		{"blank question", func(c *model.StandupConfig) { c.Questions = []string{"ok", "  "} }},
		{"timeout too short", func(c *model.StandupConfig) { c.ResponseTimeoutHours = 0 }},
		{"timeout too long", func(c *model.StandupConfig) { c.ResponseTimeoutHours = 25 }},
		{"negative reminder", func(c *model.StandupConfig) { c.ReminderMinutesBefore = -1 }},
		{"member without user id", func(c *model.StandupConfig) { c.Members[0].PlatformUserID = "" }},
		{"duplicate member", func(c *model.StandupConfig) { c.Members[1].ID = "alice" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.modify(cfg)
			gt.Error(t, cfg.Validate()).Is(model.ErrInvalidConfig)
		})
	}

	t.Run("no members is allowed", func(t *testing.T) {
		cfg := validConfig()
		cfg.Members = nil
		gt.NoError(t, cfg.Validate())
	})
}

func TestStandupConfig_Snapshot(t *testing.T) {
	cfg := validConfig()
	cfg.Version = 0
	snap := cfg.Snapshot()

	gt.Number(t, snap.Version).Equal(model.ConfigSnapshotVersion)
	gt.NoError(t, snap.CheckSnapshotVersion())

	cfg.Questions[0] = "changed"
	cfg.Members[0].PlatformUserID = "U999"
	cfg.Weekdays[0] = time.Sunday

	gt.Value(t, snap.Questions[0]).Equal("Yesterday?")
	gt.Value(t, snap.Members[0].PlatformUserID).Equal("U001")
	gt.Value(t, snap.Weekdays[0]).Equal(time.Monday)
}

func TestStandupConfig_CheckSnapshotVersion(t *testing.T) {
	cfg := validConfig()
	cfg.Version = model.ConfigSnapshotVersion + 1
	gt.Error(t, cfg.CheckSnapshotVersion()).Is(model.ErrUnsupportedSnapshot)
}

func TestStandupConfig_ScheduledAt(t *testing.T) {
	cfg := validConfig()
	loc, err := cfg.Location()
	gt.NoError(t, err).Required()

	// 2026-03-02 00:25 UTC is 09:25 in Tokyo
	localNow := time.Date(2026, 3, 2, 0, 25, 0, 0, time.UTC).In(loc)
	at, err := cfg.ScheduledAt(localNow)
	gt.NoError(t, err).Required()

	gt.Value(t, at.Location()).Equal(loc)
	gt.Value(t, at.UTC()).Equal(time.Date(2026, 3, 2, 0, 30, 0, 0, time.UTC))
	gt.B(t, cfg.RunsOn(at.Weekday())).True()
	gt.B(t, cfg.RunsOn(time.Tuesday)).False()
}

func TestParseTimeLocal(t *testing.T) {
	h, m, err := model.ParseTimeLocal("23:59")
	gt.NoError(t, err)
	gt.Number(t, h).Equal(23)
	gt.Number(t, m).Equal(59)

	for _, s := range []string{"24:00", "12:60", "1230", "ab:cd", ""} {
		_, _, err := model.ParseTimeLocal(s)
		gt.Value(t, err).NotNil()
	}
}

func TestStandupConfig_Member(t *testing.T) {
	cfg := validConfig()
	gt.Value(t, cfg.Member("bob").PlatformUserID).Equal("U002")
	gt.B(t, cfg.Member(types.MemberID("carol")) == nil).True()
}
