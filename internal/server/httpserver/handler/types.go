package handler

import (
	"time"

	"github.com/yndnr/respkv-go/internal/infra/buildinfo"
)

// Response is the standard response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// InfoResponse is the body of GET /info.
type InfoResponse struct {
	Role             string         `json:"role"`
	PrimaryAddr      string         `json:"primary_addr,omitempty"`
	RunID            string         `json:"run_id"`
	ReplOffset       int64          `json:"repl_offset"`
	Keys             int            `json:"keys"`
	ConnectedClients int            `json:"connected_clients"`
	Build            buildinfo.Info `json:"build"`
}
