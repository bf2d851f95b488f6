package panel

import "errors"

// Sentinel errors for panel operations.
var (
	ErrNoJudges = errors.New("no judges registered")
	ErrTimeout  = errors.New("panel evaluation exceeded caller deadline")
)
