package envelope

import (
	"encoding/json"
	"fmt"
)

// wireRequest is the {action, data} frame a request travels in.
type wireRequest struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// Encode frames a request for the channel.
func Encode(req Request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("envelope: marshal %s: %w", req.Action(), err)
	}
	return json.Marshal(wireRequest{Action: req.Action(), Data: data})
}

// Decode parses a framed request back into its concrete variant.
// Unknown actions yield ErrUnknownAction.
func Decode(frame []byte) (Request, error) {
	var w wireRequest
	if err := json.Unmarshal(frame, &w); err != nil {
		return nil, fmt.Errorf("envelope: parse frame: %w", err)
	}

	var req Request
	switch w.Action {
	case ActionSubmit:
		req = &SubmitRequest{}
	case ActionSyncAnnotations:
		req = &SyncAnnotationsRequest{}
	case ActionGetAnnotations:
		req = &GetAnnotationsRequest{}
	case ActionRecent:
		req = &RecentRequest{}
	default:
		return nil, &ErrUnknownAction{Actual: w.Action}
	}

	if err := json.Unmarshal(w.Data, req); err != nil {
		return nil, fmt.Errorf("envelope: parse %s data: %w", w.Action, err)
	}
	return deref(req), nil
}

// deref returns the value variant so senders and receivers always handle
// the same (non-pointer) forms.
func deref(req Request) Request {
	switch r := req.(type) {
	case *SubmitRequest:
		return *r
	case *SyncAnnotationsRequest:
		return *r
	case *GetAnnotationsRequest:
		return *r
	case *RecentRequest:
		return *r
	default:
		return req
	}
}
