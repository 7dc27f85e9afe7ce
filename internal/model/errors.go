package model

import (
	"errors"
)

var (
	ErrFindings    = errors.New("lint reported findings")
	ErrNoWorkspace = errors.New("no workspace root found")
)
