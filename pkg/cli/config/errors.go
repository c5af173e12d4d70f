package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrInvalidConfig     = goerr.New("invalid configuration")
	ErrUnsupportedFormat = goerr.New("unsupported configuration file format")
	ErrDuplicateTeamID   = goerr.New("duplicate team ID")
	ErrInvalidWeekday    = goerr.New("invalid weekday")
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
	TeamIDKey     = "team_id"
	BackendKey    = "backend"
)
