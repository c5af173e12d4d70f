package types_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/huddle/pkg/domain/types"
)

func TestTeamID_Validate(t *testing.T) {
	tests := []struct {
		name    string
		id      types.TeamID
		wantErr bool
	}{
		{"valid lowercase", "security-team", false},
		{"valid single word", "platform", false},
		{"valid with digits", "team-42", false},
		{"empty", "", true},
		{"uppercase", "Security-Team", true},
		{"trailing hyphen", "team-", true},
		{"underscore", "team_a", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			if tt.wantErr {
				gt.Value(t, err).NotNil()
			} else {
				gt.NoError(t, err)
			}
		})
	}
}

func TestMemberID_Validate(t *testing.T) {
	gt.NoError(t, types.MemberID("alice").Validate())
	gt.Value(t, types.MemberID("").Validate()).NotNil()
}

func TestDate(t *testing.T) {
	t.Run("DateOf uses the time's own location", func(t *testing.T) {
		tokyo, err := time.LoadLocation("Asia/Tokyo")
		gt.NoError(t, err).Required()

		utc := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
		gt.Value(t, types.DateOf(utc)).Equal(types.Date("2026-03-01"))
		gt.Value(t, types.DateOf(utc.In(tokyo))).Equal(types.Date("2026-03-02"))
	})

	t.Run("ParseDate", func(t *testing.T) {
		d, err := types.ParseDate("2026-02-28")
		gt.NoError(t, err)
		gt.Value(t, d).Equal(types.Date("2026-02-28"))

		_, err = types.ParseDate("2026-02-30")
		gt.Value(t, err).NotNil()
		_, err = types.ParseDate("20260228")
		gt.Value(t, err).NotNil()
	})

	t.Run("AddDays crosses month and year boundaries", func(t *testing.T) {
		gt.Value(t, types.Date("2026-02-28").AddDays(1)).Equal(types.Date("2026-03-01"))
		gt.Value(t, types.Date("2026-01-01").AddDays(-1)).Equal(types.Date("2025-12-31"))
		gt.Value(t, types.Date("2026-03-02").AddDays(-90)).Equal(types.Date("2025-12-02"))
		gt.Value(t, types.Date("bogus").AddDays(1)).Equal(types.Date("bogus"))
	})

	t.Run("Before", func(t *testing.T) {
		gt.B(t, types.Date("2025-12-31").Before("2026-01-01")).True()
		gt.B(t, types.Date("2026-01-01").Before("2026-01-01")).False()
	})
}

func TestTaskKind(t *testing.T) {
	for _, k := range types.AllTaskKinds() {
		got, err := types.ParseTaskKind(k.String())
		gt.NoError(t, err)
		gt.Value(t, got).Equal(k)
	}

	_, err := types.ParseTaskKind("send-email")
	gt.Value(t, err).NotNil()

	gt.B(t, types.FollowupKindReminder.IsValid()).True()
	gt.B(t, types.FollowupKindTimeoutWarning.IsValid()).True()
	gt.B(t, types.FollowupKind("nag").IsValid()).False()
}
