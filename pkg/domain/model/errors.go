package model

import "github.com/m-mizutani/goerr/v2"

// Validation errors
var (
	ErrInvalidConfig           = goerr.New("invalid standup configuration")
	ErrUnsupportedSnapshot     = goerr.New("unsupported config snapshot version")
	ErrInvalidAnswer           = goerr.New("invalid answer")
	ErrInvalidTask             = goerr.New("invalid task")
	ErrQuestionIndexOutOfRange = goerr.New("question index out of range")
)

// Context keys for error values
const (
	TeamIDKey        = "team_id"
	InstanceIDKey    = "instance_id"
	MemberIDKey      = "member_id"
	TimezoneKey      = "timezone"
	QuestionIndexKey = "question_index"
)
