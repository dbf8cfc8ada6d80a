package http

import (
	"time"

	"github.com/harborml/harbor/internal/dataset"
)

// CreateNamespaceRequest is the body of POST /namespaces.
type CreateNamespaceRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateTopicRequest is the body of POST /namespaces/:ns/topics.
type CreateTopicRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateSubscriptionRequest is the body of
// POST /namespaces/:ns/topics/:topic/subscriptions.
type CreateSubscriptionRequest struct {
	Name         string `json:"name" binding:"required"`
	DeliveryType string `json:"delivery_type" binding:"required"`
	PushEndpoint string `json:"push_endpoint"`
}

// CreateDatasetRequest is the body of POST /namespaces/:ns/datasets.
type CreateDatasetRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// PublishRequest is the body of POST /namespaces/:ns/topics/:topic/publish.
// Data carries base64 of a UTF-8 JSON string.
type PublishRequest struct {
	Data string `json:"data" binding:"required"`
}

// PublishResponse summarizes fan-out outcomes without exposing endpoints.
type PublishResponse struct {
	Subscriptions int `json:"subscriptions"`
	Delivered     int `json:"delivered"`
	Failed        int `json:"failed"`
}

// DatasetPayload is the envelope for dataset write requests and read
// responses: {"data": [ <record>, ... ]}.
type DatasetPayload struct {
	Data []dataset.Record `json:"data"`
}

// WriteResponse acknowledges a dataset write.
type WriteResponse struct {
	Written int `json:"written"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string    `json:"status"`
	Service string    `json:"service"`
	Version string    `json:"version"`
	Time    time.Time `json:"time"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
