package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Response statuses.
const (
	StatusOK            = "ok"
	StatusError         = "error"
	StatusInvalidAction = "invalid_action"
)

// Request is one call from the scripting side.
type Request struct {
	CallbackID string            `json:"callbackId"`
	Action     string            `json:"action"`
	Args       []json.RawMessage `json:"args"`
}

// Response is the single reply to a Request.
type Response struct {
	CallbackID string `json:"callbackId"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// ErrorResponse is the body of HTTP-level errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

var errMissingAction = errors.New("action is required")

func decodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, err
	}
	if req.Action == "" {
		return req, errMissingAction
	}
	return req, nil
}

// DecodeArgs turns raw positional arguments into the loose values the plugin
// coerces. Objects stay raw so their key order survives; numbers are kept as
// json.Number.
func DecodeArgs(raw []json.RawMessage) ([]any, error) {
	args := make([]any, 0, len(raw))
	for _, r := range raw {
		trimmed := bytes.TrimSpace(r)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			args = append(args, json.RawMessage(trimmed))
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}
