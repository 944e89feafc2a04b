package constants

import "time"

// Session / context keys
const (
	ContextKeyUserID = "user_id"
)

// Auth
const (
	MinPasswordLength = 8
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Task numbering
const (
	// TaskNumberMinDigits is the minimum zero-padded width of the trailing
	// sequence integer in a task number (PRO1-T001, PRO1-T002, ...).
	TaskNumberMinDigits = 3
)

// Status update lock
const (
	// StatusLockMaxWait bounds how long a status update waits for the
	// per-task lock before failing fast.
	StatusLockMaxWait = 3 * time.Second
	// StatusLockMaxHold bounds how long a holder may keep the lock before it
	// is forcibly released.
	StatusLockMaxHold = 5 * time.Second
)

// Custom statuses
const (
	// MinStatusesPerPulse is the smallest status set a pulse may keep.
	// Deletions that would go below this are refused.
	MinStatusesPerPulse = 2
)
