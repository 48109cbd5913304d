package feed

import "errors"

var (
	ErrInvalidURL = errors.New("invalid feed url")
	ErrNetwork    = errors.New("network error")
	ErrParse      = errors.New("parse error")
)
