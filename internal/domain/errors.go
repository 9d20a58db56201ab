package domain

import "errors"

var (
	ErrEmptyTarget   = errors.New("target must not be empty")
	ErrNoActiveBlock = errors.New("no active global block matches the target")
)
