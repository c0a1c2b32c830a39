package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed     = fmt.Errorf("authentication failed")
	ErrNoRefreshToken = fmt.Errorf("no encrypted refresh token stored")
	ErrDecryptFailed  = fmt.Errorf("refresh token decryption failed")

	// Backing store errors
	ErrSchema            = fmt.Errorf("sheet schema invalid")
	ErrWorksheetNotFound = fmt.Errorf("worksheet not found")
	ErrTenantNotFound    = fmt.Errorf("tenant not registered")

	// API and service errors
	ErrAPIRequest = fmt.Errorf("API request failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
