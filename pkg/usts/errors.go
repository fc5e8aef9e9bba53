package usts

import "github.com/bft-labs/usts/internal/domain"

// Errors returned by Server and Client.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrExchangeAborted = domain.ErrExchangeAborted
)
