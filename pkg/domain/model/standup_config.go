package model

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/huddle/pkg/domain/types"
)

// ConfigSnapshotVersion is the current version of the StandupConfig layout.
// It is stamped into every snapshot taken for an instance.
const ConfigSnapshotVersion = 1

const (
	MaxQuestions            = 10
	MinResponseTimeoutHours = 1
	MaxResponseTimeoutHours = 24
)

// Member is a participant of a team standup
type Member struct {
	ID             types.MemberID `json:"id" firestore:"id"`
	PlatformUserID string         `json:"platform_user_id" firestore:"platform_user_id"`
	Name           string         `json:"name,omitempty" firestore:"name"`
}

// StandupConfig is a team's recurring standup definition.
// Instances carry a deep copy taken at creation time, see Snapshot.
type StandupConfig struct {
	Version               int            `json:"version" firestore:"version"`
	TeamID                types.TeamID   `json:"team_id" firestore:"team_id"`
	TeamName              string         `json:"team_name" firestore:"team_name"`
	ChannelID             string         `json:"channel_id" firestore:"channel_id"`
	Weekdays              []time.Weekday `json:"weekdays" firestore:"weekdays"`
	TimeLocal             string         `json:"time_local" firestore:"time_local"`
	Timezone              string         `json:"timezone" firestore:"timezone"`
	Questions             []string       `json:"questions" firestore:"questions"`
	ResponseTimeoutHours  int            `json:"response_timeout_hours" firestore:"response_timeout_hours"`
	ReminderMinutesBefore int            `json:"reminder_minutes_before" firestore:"reminder_minutes_before"`
	Members               []Member       `json:"members" firestore:"members"`
	Active                bool           `json:"active" firestore:"active"`
}

// Validate checks the configuration. Every failure wraps ErrInvalidConfig.
func (c *StandupConfig) Validate() error {
	if err := c.TeamID.Validate(); err != nil {
		return goerr.Wrap(ErrInvalidConfig, err.Error(), goerr.V(TeamIDKey, c.TeamID))
	}
	if c.ChannelID == "" {
		return goerr.Wrap(ErrInvalidConfig, "channel ID is required", goerr.V(TeamIDKey, c.TeamID))
	}

	if len(c.Weekdays) == 0 {
		return goerr.Wrap(ErrInvalidConfig, "at least one weekday is required", goerr.V(TeamIDKey, c.TeamID))
	}
	for _, d := range c.Weekdays {
		if d < time.Sunday || d > time.Saturday {
			return goerr.Wrap(ErrInvalidConfig, "weekday must be between 0 and 6",
				goerr.V(TeamIDKey, c.TeamID), goerr.V("weekday", int(d)))
		}
	}

	if _, _, err := ParseTimeLocal(c.TimeLocal); err != nil {
		return goerr.Wrap(ErrInvalidConfig, err.Error(), goerr.V(TeamIDKey, c.TeamID))
	}

	if _, err := c.Location(); err != nil {
		return goerr.Wrap(ErrInvalidConfig, "unknown timezone",
			goerr.V(TeamIDKey, c.TeamID), goerr.V(TimezoneKey, c.Timezone))
	}

	if len(c.Questions) == 0 || len(c.Questions) > MaxQuestions {
		return goerr.Wrap(ErrInvalidConfig, "questions must contain between 1 and 10 items",
			goerr.V(TeamIDKey, c.TeamID), goerr.V("count", len(c.Questions)))
	}
	for i, q := range c.Questions {
		if strings.TrimSpace(q) == "" {
			return goerr.Wrap(ErrInvalidConfig, "question cannot be empty",
				goerr.V(TeamIDKey, c.TeamID), goerr.V(QuestionIndexKey, i))
		}
	}

	if c.ResponseTimeoutHours < MinResponseTimeoutHours || c.ResponseTimeoutHours > MaxResponseTimeoutHours {
		return goerr.Wrap(ErrInvalidConfig, "response timeout must be between 1 and 24 hours",
			goerr.V(TeamIDKey, c.TeamID), goerr.V("hours", c.ResponseTimeoutHours))
	}
	if c.ReminderMinutesBefore < 0 {
		return goerr.Wrap(ErrInvalidConfig, "reminder minutes cannot be negative",
			goerr.V(TeamIDKey, c.TeamID), goerr.V("minutes", c.ReminderMinutesBefore))
	}

	seen := make(map[types.MemberID]bool, len(c.Members))
	for _, m := range c.Members {
		if err := m.ID.Validate(); err != nil {
			return goerr.Wrap(ErrInvalidConfig, err.Error(), goerr.V(TeamIDKey, c.TeamID))
		}
		if m.PlatformUserID == "" {
			return goerr.Wrap(ErrInvalidConfig, "platform user ID is required",
				goerr.V(TeamIDKey, c.TeamID), goerr.V(MemberIDKey, m.ID))
		}
		if seen[m.ID] {
			return goerr.Wrap(ErrInvalidConfig, "duplicate member ID",
				goerr.V(TeamIDKey, c.TeamID), goerr.V(MemberIDKey, m.ID))
		}
		seen[m.ID] = true
	}

	return nil
}

// Location loads the configured IANA timezone
func (c *StandupConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, goerr.New("timezone is required")
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load timezone", goerr.V(TimezoneKey, c.Timezone))
	}
	return loc, nil
}

// RunsOn reports whether the standup is scheduled on the weekday
func (c *StandupConfig) RunsOn(day time.Weekday) bool {
	return slices.Contains(c.Weekdays, day)
}

// ResponseTimeout returns the collection window length
func (c *StandupConfig) ResponseTimeout() time.Duration {
	return time.Duration(c.ResponseTimeoutHours) * time.Hour
}

// Member returns the participating member with the ID, or nil
func (c *StandupConfig) Member(id types.MemberID) *Member {
	for i := range c.Members {
		if c.Members[i].ID == id {
			return &c.Members[i]
		}
	}
	return nil
}

// Snapshot returns a deep copy stamped with ConfigSnapshotVersion
func (c *StandupConfig) Snapshot() StandupConfig {
	snap := StandupConfig{
		Version:               ConfigSnapshotVersion,
		TeamID:                c.TeamID,
		TeamName:              c.TeamName,
		ChannelID:             c.ChannelID,
		Weekdays:              slices.Clone(c.Weekdays),
		TimeLocal:             c.TimeLocal,
		Timezone:              c.Timezone,
		Questions:             slices.Clone(c.Questions),
		ResponseTimeoutHours:  c.ResponseTimeoutHours,
		ReminderMinutesBefore: c.ReminderMinutesBefore,
		Members:               slices.Clone(c.Members),
		Active:                c.Active,
	}
	return snap
}

// CheckSnapshotVersion rejects snapshots written by an unknown layout
func (c *StandupConfig) CheckSnapshotVersion() error {
	if c.Version != ConfigSnapshotVersion {
		return goerr.Wrap(ErrUnsupportedSnapshot, "config snapshot version mismatch",
			goerr.V(TeamIDKey, c.TeamID), goerr.V("version", c.Version))
	}
	return nil
}

// ParseTimeLocal parses a 24-hour HH:MM string
func ParseTimeLocal(s string) (hour, minute int, err error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, 0, goerr.New("time must be formatted as HH:MM", goerr.V("time", s))
	}
	hour, err = strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, goerr.New("hour must be between 00 and 23", goerr.V("time", s))
	}
	minute, err = strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, goerr.New("minute must be between 00 and 59", goerr.V("time", s))
	}
	return hour, minute, nil
}

// ScheduledAt returns the scheduled start on the calendar day of localNow,
// expressed in localNow's location
func (c *StandupConfig) ScheduledAt(localNow time.Time) (time.Time, error) {
	hour, minute, err := ParseTimeLocal(c.TimeLocal)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := localNow.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, localNow.Location()), nil
}
