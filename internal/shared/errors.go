package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Playback errors
	ErrNoMedia             = fmt.Errorf("no media")
	ErrNoProvider          = fmt.Errorf("no providers for playlist")
	ErrProviderLoad        = fmt.Errorf("provider failed to load")
	ErrControllerDestroyed = fmt.Errorf("media controller destroyed")
	ErrEmptyPlaylist       = fmt.Errorf("playlist is empty")
	ErrIndexOutOfRange     = fmt.Errorf("playlist index out of range")
	ErrPlayRejected        = fmt.Errorf("play attempt rejected")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrEventNotFound      = fmt.Errorf("playback event not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
