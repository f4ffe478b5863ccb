package catalog

import "errors"

var (
	ErrSpaceNotFound = errors.New("space not found")
	ErrInvalidSpace  = errors.New("invalid space definition")
)
