package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	messageTypeResponse     = "response"
	messageTypeNotification = "notification"

	responseOK    = "ok"
	responseData  = "data"
	responseError = "error"
)

// Request is the client-to-backend envelope.
type Request struct {
	RequestID int64  `json:"request_id"`
	Name      string `json:"name"`
	Args      []any  `json:"args"`
}

// MarshalJSON always emits args as an array, never null.
func (r Request) MarshalJSON() ([]byte, error) {
	type alias Request
	if r.Args == nil {
		r.Args = []any{}
	}
	return json.Marshal(alias(r))
}

// Frame is one parsed inbound message: *Response or *Notification.
type Frame interface {
	isFrame()
}

// Response answers the request carrying the same RequestID.
type Response struct {
	RequestID int64
	Result    Result
}

// Result is the response variant: OK, Data, or Failure.
type Result interface {
	isResult()
}

// OK is a successful response without payload.
type OK struct{}

// Data is a successful response with payload. Name must equal the request's method name.
type Data struct {
	Name    string
	Payload json.RawMessage
}

// Failure is a backend-reported application error.
type Failure struct {
	Kind    string
	Message string
}

// Notification is an unsolicited backend event.
type Notification struct {
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
}

func (*Response) isFrame()     {}
func (*Notification) isFrame() {}
func (OK) isResult()           {}
func (Data) isResult()         {}
func (Failure) isResult()      {}

// Err converts the failure into the error that rejects the call.
func (f Failure) Err() *RemoteError {
	return &RemoteError{Name: f.Kind, Message: f.Message}
}

// ParseFrame decodes one inbound frame. Errors wrapping ErrMalformedFrame or
// ErrUnknownMessageType are droppable; a *ProtocolError is a contract breach.
func ParseFrame(data []byte) (Frame, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: frame is not an object", ErrMalformedFrame)
	}

	var messageType string
	raw, ok := fields["message_type"]
	if !ok || isNull(raw) {
		return nil, fmt.Errorf("%w: missing message_type", ErrMalformedFrame)
	}
	if err := json.Unmarshal(raw, &messageType); err != nil {
		return nil, fmt.Errorf("%w: message_type: %v", ErrMalformedFrame, err)
	}

	switch messageType {
	case messageTypeResponse:
		return parseResponse(fields)
	case messageTypeNotification:
		return parseNotification(fields)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, messageType)
	}
}

func parseResponse(fields map[string]json.RawMessage) (*Response, error) {
	rawID, ok := fields["request_id"]
	if !ok || isNull(rawID) {
		return nil, protocolErrorf("response missing request_id")
	}
	var id int64
	if err := json.Unmarshal(rawID, &id); err != nil {
		return nil, protocolErrorf("response request_id: %v", err)
	}

	kind, err := stringField(fields, "type")
	if err != nil {
		return nil, withID(err, id)
	}

	resp := &Response{RequestID: id}
	switch kind {
	case responseOK:
		resp.Result = OK{}
	case responseData:
		name, err := stringField(fields, "data_type")
		if err != nil {
			return nil, withID(err, id)
		}
		payload, ok := fields["data"]
		if !ok {
			return nil, withID(protocolErrorf("data response %q missing data", name), id)
		}
		resp.Result = Data{Name: name, Payload: payload}
	case responseError:
		errorType, _ := optionalString(fields, "error_type")
		message, _ := optionalString(fields, "message")
		resp.Result = Failure{Kind: errorType, Message: message}
	default:
		return nil, withID(protocolErrorf("unknown response type %q", kind), id)
	}
	return resp, nil
}

func parseNotification(fields map[string]json.RawMessage) (*Notification, error) {
	name, err := stringField(fields, "name")
	if err != nil {
		return nil, err
	}
	params, ok := fields["parameters"]
	if !ok {
		return nil, protocolErrorf("notification %q missing parameters", name)
	}
	return &Notification{Name: name, Parameters: params}, nil
}

func stringField(fields map[string]json.RawMessage, key string) (string, *ProtocolError) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return "", protocolErrorf("missing %s", key)
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", protocolErrorf("%s: %v", key, err)
	}
	return value, nil
}

// isNull reports a JSON null, which json.Unmarshal would silently skip.
func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func optionalString(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return string(raw), true
	}
	return value, true
}

func withID(err *ProtocolError, id int64) *ProtocolError {
	err.RequestID = id
	err.HasID = true
	return err
}
