package domain

import "errors"

var (
	ErrNetworkFailure   = errors.New("network failure")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrValidation       = errors.New("validation failed")
	ErrUploadFailed     = errors.New("file upload failed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrRateLimited      = errors.New("rate limited")
)
