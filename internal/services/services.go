package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytplay/internal/shared"
)

// DefaultReceiverURL is used when no receiver address is configured.
const DefaultReceiverURL = "http://127.0.0.1:8008"

// Receiver is the remote side of a cast session.
type Receiver interface {
	// Load hands the receiver an item to prepare.
	Load(ctx context.Context, req LoadRequest) error
	// Command sends a transport command: play, pause or stop.
	Command(ctx context.Context, command string) error
	// Seek moves the receiver's playhead.
	Seek(ctx context.Context, position float64) error
	// Status reports what the receiver is doing.
	Status(ctx context.Context) (*ReceiverStatus, error)
}

// LoadRequest is the body of a receiver load call.
type LoadRequest struct {
	Title    string  `json:"title"`
	File     string  `json:"file"`
	Type     string  `json:"type,omitempty"`
	Start    float64 `json:"start,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// ReceiverStatus is returned by a receiver's status endpoint.
type ReceiverStatus struct {
	State    string  `json:"state"`
	Title    string  `json:"title"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
}

// HTTPReceiver implements [Receiver] over the receiver's JSON endpoints.
type HTTPReceiver struct {
	api *APIService
}

var _ Receiver = (*HTTPReceiver)(nil)

func NewHTTPReceiver(api *APIService) *HTTPReceiver {
	return &HTTPReceiver{api: api}
}

func (r *HTTPReceiver) Load(ctx context.Context, req LoadRequest) error {
	resp, err := r.api.PostJSON(ctx, "/load", req)
	return checkResponse("/load", resp, err)
}

func (r *HTTPReceiver) Command(ctx context.Context, command string) error {
	switch command {
	case "play", "pause", "stop":
	default:
		return fmt.Errorf("%w: unknown receiver command %q", shared.ErrInvalidArgument, command)
	}
	path := "/" + command
	resp, err := r.api.Post(ctx, path, nil)
	return checkResponse(path, resp, err)
}

func (r *HTTPReceiver) Seek(ctx context.Context, position float64) error {
	resp, err := r.api.PostJSON(ctx, "/seek", map[string]float64{"position": position})
	return checkResponse("/seek", resp, err)
}

func (r *HTTPReceiver) Status(ctx context.Context) (*ReceiverStatus, error) {
	resp, err := r.api.Get(ctx, "/status")
	if err := checkResponse("/status", resp, err); err != nil {
		return nil, err
	}
	var status ReceiverStatus
	if err := resp.Decode(&status); err != nil {
		return nil, fmt.Errorf("%w: invalid status response: %w", shared.ErrAPIRequest, err)
	}
	return &status, nil
}

func checkResponse(path string, resp *APIResponse, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %w", shared.ErrServiceUnavailable, path, err)
	}
	if !resp.OK() {
		return fmt.Errorf("%w: %s returned status %d", shared.ErrAPIRequest, path, resp.StatusCode)
	}
	return nil
}
