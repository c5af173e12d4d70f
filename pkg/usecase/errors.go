package usecase

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for use case layer
var (
	ErrInstanceNotFound     = goerr.New("standup instance not found")
	ErrNoAnswers            = goerr.New("no answers submitted")
	ErrCompletionInProgress = goerr.New("completion already in progress")
)

// Context keys for error values
const (
	KindKey = "kind"
)
