// Package channel implements the named method channel between the
// volume bridge and the application layer: JSON envelopes over WebSocket.
package channel

import (
	"encoding/json"
	"errors"
	"fmt"

	"perfect-volume-control/internal/domain"
)

// EnvelopeType identifies the kind of envelope on the wire.
type EnvelopeType string

const (
	TypeCall           EnvelopeType = "call"
	TypeSuccess        EnvelopeType = "success"
	TypeError          EnvelopeType = "error"
	TypeNotImplemented EnvelopeType = "notImplemented"
)

// ErrorPayload is the wire form of a domain.MethodError.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Envelope is one frame on the channel. Calls with a zero ID are
// fire-and-forget and get no reply.
type Envelope struct {
	Type      EnvelopeType    `json:"type"`
	ID        uint64          `json:"id,omitempty"`
	Method    string          `json:"method,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *ErrorPayload   `json:"error,omitempty"`
}

// NewCall builds a call envelope, encoding arguments with the standard codec.
func NewCall(id uint64, method string, arguments any) (*Envelope, error) {
	raw, err := encodeValue(arguments)
	if err != nil {
		return nil, fmt.Errorf("encode %s arguments: %w", method, err)
	}
	return &Envelope{Type: TypeCall, ID: id, Method: method, Arguments: raw}, nil
}

// NewReply builds the reply to call id from a handler result.
func NewReply(id uint64, result any, err error) *Envelope {
	if err != nil {
		if errors.Is(err, domain.ErrNotImplemented) {
			return &Envelope{Type: TypeNotImplemented, ID: id}
		}
		me := domain.ToMethodError(err)
		return &Envelope{
			Type:  TypeError,
			ID:    id,
			Error: &ErrorPayload{Code: me.Code, Message: me.Message, Details: me.Details},
		}
	}
	raw, encErr := encodeValue(result)
	if encErr != nil {
		return &Envelope{
			Type:  TypeError,
			ID:    id,
			Error: &ErrorPayload{Code: domain.CodeInternal, Message: "encode result: " + encErr.Error()},
		}
	}
	return &Envelope{Type: TypeSuccess, ID: id, Result: raw}
}

func encodeValue(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func decodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Call converts a call envelope into a domain.MethodCall.
// Keyed arguments decode to map[string]any and numbers to float64.
func (e *Envelope) Call() (domain.MethodCall, error) {
	if e.Type != TypeCall {
		return domain.MethodCall{}, fmt.Errorf("envelope %q is not a call", e.Type)
	}
	args, err := decodeValue(e.Arguments)
	if err != nil {
		return domain.MethodCall{}, fmt.Errorf("%w: decode %s arguments: %v", domain.ErrInvalidArguments, e.Method, err)
	}
	return domain.MethodCall{Method: e.Method, Arguments: args}, nil
}

// Outcome converts a reply envelope into the result or error the caller sees.
func (e *Envelope) Outcome() (any, error) {
	switch e.Type {
	case TypeSuccess:
		return decodeValue(e.Result)
	case TypeNotImplemented:
		return nil, domain.ErrNotImplemented
	case TypeError:
		if e.Error == nil {
			return nil, &domain.MethodError{Code: domain.CodeInternal, Message: "error reply without payload"}
		}
		return nil, &domain.MethodError{
			Code:    e.Error.Code,
			Message: e.Error.Message,
			Details: e.Error.Details,
			Err:     domain.SentinelForCode(e.Error.Code),
		}
	default:
		return nil, fmt.Errorf("envelope %q is not a reply", e.Type)
	}
}

// Bytes returns the JSON encoding of e.
func (e *Envelope) Bytes() ([]byte, error) {
	return json.Marshal(e)
}

// ParseEnvelope decodes one frame.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to parse envelope: %w", err)
	}
	if e.Type == "" {
		return nil, errors.New("envelope without type")
	}
	return &e, nil
}
