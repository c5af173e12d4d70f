package config

import "time"

var RedactURL = redactURL

// NewTeamsForTest creates a Teams config for testing purposes
func NewTeamsForTest(path string) *Teams {
	return &Teams{path: path}
}

// NewQueueForTest creates a Queue config for testing purposes
func NewQueueForTest(backend, redisURL, prefix string) *Queue {
	return &Queue{backend: backend, redisURL: redisURL, prefix: prefix}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, dsn string) *Repository {
	return &Repository{backend: backend, dsn: dsn, autoMigrate: true}
}

// NewSlackForTest creates a Slack config for testing purposes
func NewSlackForTest(botToken, apiURL string) *Slack {
	return &Slack{botToken: botToken, apiURL: apiURL, rateInterval: time.Millisecond, rateBurst: 1}
}
