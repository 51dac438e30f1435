// Package events contains the message contracts of the QoL progress stream.
package events

import (
	"time"

	"github.com/google/uuid"

	"abrsqol/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeConnect acknowledges the upgrade and carries the trace ID.
	MessageTypeConnect MessageType = "connect"

	// Solver messages
	MessageTypeProgress       MessageType = "qol:progress"
	MessageTypeColumnComplete MessageType = "qol:column"
	MessageTypeResult         MessageType = "qol:result"

	MessageTypeError MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// NewMessage stamps data with a fresh ID and the current time.
func NewMessage(msgType MessageType, traceID string, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		BaseMessage: BaseMessage{
			ID:        uuid.NewString(),
			Type:      msgType,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		},
		Data: data,
	}
}

// ProgressEvent reports one completed update pass of one column.
type ProgressEvent struct {
	Column    int     `json:"column"`
	Iteration int     `json:"iteration"`
	MaxIter   int     `json:"maxiter"`
	Objective float64 `json:"objective"`
	Tolerance float64 `json:"tolerance"`
}

// ColumnCompleteEvent reports a finished column.
type ColumnCompleteEvent struct {
	Column int `json:"column"`
	domain.ColumnResult
}

// ErrorEvent ends a stream that could not produce a result.
type ErrorEvent struct {
	Code    string `json:"code"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}
