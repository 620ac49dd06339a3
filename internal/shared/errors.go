package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Lookup errors
	ErrNotFound = fmt.Errorf("not found")
	ErrConflict = fmt.Errorf("uniqueness conflict")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrInvalidState     = fmt.Errorf("invalid state parameter")

	// Upstream provider errors
	ErrUpstreamAuth      = fmt.Errorf("upstream rejected credentials")
	ErrUpstreamTransient = fmt.Errorf("upstream temporarily unavailable")
	ErrAPIRequest        = fmt.Errorf("API request failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
