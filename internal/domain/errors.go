package domain

import "errors"

// Validation errors returned by the domain constructors. Callers match them with errors.Is.
var (
	ErrInvalidTrade   = errors.New("invalid trade")
	ErrInvalidAccount = errors.New("invalid account")
)
