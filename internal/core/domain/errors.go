package domain

import "errors"

// Ошибки, которые возвращаются из use case'ов и адаптеров хранения.
var (
	ErrSourceNotFound      = errors.New("source not found")
	ErrSourceBlocked       = errors.New("source blocked the request")
	ErrAlertNotFound       = errors.New("alert not found")
	ErrMetricAlreadyExists = errors.New("metric already exists for this bucket")
	ErrUnitLocked          = errors.New("collection unit is already in progress")
	ErrInvalidListing      = errors.New("invalid observed listing")
	ErrUnknownJob          = errors.New("unknown pipeline job")
)
