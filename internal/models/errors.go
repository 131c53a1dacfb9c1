package models

import "errors"

var ErrNotFound = errors.New("requested resource not found")
var ErrForbidden = errors.New("user does not have permission to access this resource")
var ErrConflict = errors.New("resource conflict, item already exists")
var ErrValidation = errors.New("invalid or out-of-range input")
var ErrInvalidToken = errors.New("token not found or expired")
var ErrInvalidCredentials = errors.New("invalid credentials") // email or password provided does not match database record
var ErrMFARequired = errors.New("second factor verification required")
var ErrChallengeExpired = errors.New("verification code expired or already used")

// ErrNoCapableDevice indicates that no registered device, busy or not, could
// ever carry the requested weight. The request is rejected outright.
var ErrNoCapableDevice = errors.New("no device exists with sufficient capacity")

// ErrNoAvailableDevice indicates that a capable device exists but every one
// of them is busy or under maintenance right now.
var ErrNoAvailableDevice = errors.New("no available device with sufficient capacity")

// ErrInvalidTransition indicates a request status change outside the allowed
// state machine. Admins may override with an explicit force flag.
var ErrInvalidTransition = errors.New("status transition not allowed")
