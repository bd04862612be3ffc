package entities

import "github.com/go-faster/errors"

// Domain error sentinels; match with errors.Is
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidDescriptor  = errors.New("invalid descriptor")
	ErrInvalidRequirement = errors.New("invalid requirement")
	ErrInvalidVersion     = errors.New("invalid version")
	ErrInvalidEntryPoint  = errors.New("invalid entry point")
	ErrUnresolved         = errors.New("unresolved entry point")
)
