// Package envelope defines the message contract shared by the capture
// agent, the relay, and the popup view. It is the only thing the three
// contexts agree on: a closed set of request variants and a uniform
// response shape. The wire encoding ({action, data} / {success, data,
// error}) stays stable independent of the remote API's own schema.
package envelope

import (
	"encoding/json"
	"fmt"
)

// Wire action names. These identify request variants on the channel and
// never change, even when the remote API paths do.
const (
	ActionSubmit          = "submitContent"
	ActionSyncAnnotations = "syncAnnotations"
	ActionGetAnnotations  = "getAnnotations"
	ActionRecent          = "getRecent"
)

// Request is the sealed set of relay request variants. Each variant knows
// its wire action name. The relay matches on the concrete type, so adding
// an operation is a compile-time-checked change rather than a new string
// case.
type Request interface {
	Action() string
	sealed()
}

// SubmitRequest carries one capture record to the remote API.
type SubmitRequest struct {
	Record CaptureRecord `json:"record"`
}

func (SubmitRequest) Action() string { return ActionSubmit }
func (SubmitRequest) sealed()        {}

// SyncAnnotationsRequest carries the full annotation set of one page.
type SyncAnnotationsRequest struct {
	URL         string       `json:"url"`
	Annotations []Annotation `json:"annotations"`
}

func (SyncAnnotationsRequest) Action() string { return ActionSyncAnnotations }
func (SyncAnnotationsRequest) sealed()        {}

// GetAnnotationsRequest asks for the stored annotations of one page.
type GetAnnotationsRequest struct {
	URL string `json:"url"`
}

func (GetAnnotationsRequest) Action() string { return ActionGetAnnotations }
func (GetAnnotationsRequest) sealed()        {}

// RecentRequest asks for the most recent capture summaries.
type RecentRequest struct {
	Limit int `json:"limit"`
}

func (RecentRequest) Action() string { return ActionRecent }
func (RecentRequest) sealed()        {}

// Response is the uniform reply shape for every request. The relay never
// fails the channel itself: errors travel inside the response, so callers
// handle one shape for success, remote rejection, and configuration
// errors alike.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// OK builds a success response with v marshalled into Data.
func OK(v any) Response {
	data, err := json.Marshal(v)
	if err != nil {
		return Fail(fmt.Errorf("envelope: marshal response data: %w", err))
	}
	return Response{Success: true, Data: data}
}

// Fail builds a failure response carrying the error text.
func Fail(err error) Response {
	return Response{Success: false, Error: err.Error()}
}

// DecodeData unmarshals the response data into v. It fails on a failure
// response so callers cannot accidentally read data from an error reply.
func (r Response) DecodeData(v any) error {
	if !r.Success {
		return fmt.Errorf("envelope: response is a failure: %s", r.Error)
	}
	if len(r.Data) == 0 {
		return fmt.Errorf("envelope: response has no data")
	}
	return json.Unmarshal(r.Data, v)
}
