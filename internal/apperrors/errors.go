package apperrors

import "errors"

// ErrNotFound indicates that a requested object could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create an object that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrInvalidArgument indicates a caller broke the API contract (nil argument,
// out-of-range value). These are programming errors, not business rejections.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrLocked indicates the operation touched a locked account.
var ErrLocked = errors.New("account is locked")

// ErrConflict indicates the object is still referenced and cannot be removed.
var ErrConflict = errors.New("resource is in use")
