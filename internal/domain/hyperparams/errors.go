package hyperparams

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidParams = errors.New("invalid hyperparameters")
	ErrMergeParams   = errors.New("merge hyperparameters failed")
	ErrFetchParams   = errors.New("fetch hyperparameters failed")
	ErrNoSource      = errors.New("no hyperparameter source configured")
)
