package websocket

import (
	"encoding/json"
	"errors"
	"time"

	apierrors "unidash/internal/errors"
)

// Message types exchanged with the browser.
const (
	TypeConnection = "connection"
	TypeSelect     = "select"
	TypeHeartbeat  = "heartbeat"
	TypeDashboard  = "dashboard"
	TypeStatus     = "status"
	TypeError      = "error"
)

// Request is a client-to-server message.
//
//	{"type":"select","id":"7","year":2021,"term":"Fall"}
type Request struct {
	Type string        `json:"type"`
	ID   string        `json:"id,omitempty"`
	Year selectorValue `json:"year,omitempty"`
	Term selectorValue `json:"term,omitempty"`
}

// selectorValue accepts a JSON string or number.
type selectorValue string

func (v *selectorValue) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = selectorValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*v = selectorValue(n.String())
	return nil
}

// Message is a server-to-client message.
type Message struct {
	Type      string      `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorInfo carries the API error code of a failed request.
type ErrorInfo struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func newMessage(msgType, requestID string, data interface{}) Message {
	return Message{Type: msgType, RequestID: requestID, Data: data, Timestamp: time.Now().UTC()}
}

func errorMessage(requestID string, err error) Message {
	msg := newMessage(TypeError, requestID, nil)

	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		msg.Error = &ErrorInfo{Code: apiErr.ErrorCode, Message: apiErr.Message, Details: apiErr.Details}
		return msg
	}
	msg.Error = &ErrorInfo{
		Code:    apierrors.ErrInternalServer.ErrorCode,
		Message: apierrors.ErrInternalServer.Message,
	}
	return msg
}
