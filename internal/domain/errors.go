package domain

import "errors"

var (
	ErrEmptyAddress   = errors.New("address is required")
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidCursor  = errors.New("invalid cursor")
)
