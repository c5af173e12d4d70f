package interfaces

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors shared by every repository backend
var (
	ErrNotFound      = goerr.New("not found")
	ErrAlreadyExists = goerr.New("already exists")
	ErrStateConflict = goerr.New("state conflict")
)
