package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrTemplateNotFound    = errors.New("scenario template not found")
	ErrGenerationExhausted = errors.New("generation attempt budget exhausted")
	ErrReportExists        = errors.New("report already exists")
	ErrDuplicate           = errors.New("duplicate entry")
)
