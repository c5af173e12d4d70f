package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/huddle/pkg/domain/types"
)

func TestStandupState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state types.StandupState
		want  bool
	}{
		{name: "pending", state: types.StandupStatePending, want: true},
		{name: "collecting", state: types.StandupStateCollecting, want: true},
		{name: "posted", state: types.StandupStatePosted, want: true},
		{name: "invalid", state: types.StandupState("closed"), want: false},
		{name: "empty", state: types.StandupState(""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, tt.state.IsValid()).Equal(tt.want)
		})
	}
}

func TestStandupState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from types.StandupState
		to   types.StandupState
		want bool
	}{
		{types.StandupStatePending, types.StandupStateCollecting, true},
		{types.StandupStateCollecting, types.StandupStatePosted, true},
		{types.StandupStatePending, types.StandupStatePosted, false},
		{types.StandupStateCollecting, types.StandupStatePending, false},
		{types.StandupStatePosted, types.StandupStateCollecting, false},
		{types.StandupStatePosted, types.StandupStatePosted, false},
		{types.StandupStatePending, types.StandupStatePending, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			gt.Value(t, tt.from.CanTransitionTo(tt.to)).Equal(tt.want)
		})
	}
}

func TestStandupState_IsTerminal(t *testing.T) {
	gt.B(t, types.StandupStatePosted.IsTerminal()).True()
	gt.B(t, types.StandupStatePending.IsTerminal()).False()
	gt.B(t, types.StandupStateCollecting.IsTerminal()).False()
}

func TestParseStandupState(t *testing.T) {
	for _, s := range types.AllStandupStates() {
		got, err := types.ParseStandupState(s.String())
		gt.NoError(t, err)
		gt.Value(t, got).Equal(s)
	}

	_, err := types.ParseStandupState("archived")
	gt.Value(t, err).NotNil()
}
