// Package agent implements the client side of the harbor API: a typed HTTP
// client plus the dataset uploader consumed by the directory watcher.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"

	httpapi "github.com/harborml/harbor/internal/api/http"
	"github.com/harborml/harbor/internal/dataset"
	"github.com/harborml/harbor/internal/domain/metadata"
	"github.com/harborml/harbor/internal/shared/id"
)

// Client is a typed client for the harbor HTTP API.
type Client struct {
	resty *resty.Client
}

// NewClient creates a client for the server at baseURL.
//
// Transient transport failures are retried with backoff at the transport
// layer. Application-level errors (422, 400) are not retried; repeating an
// invalid request cannot make it valid.
func NewClient(baseURL string, timeout time.Duration) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = nil

	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "harbor-agent/1.0").
		SetTransport(retryClient.HTTPClient.Transport)

	return &Client{resty: rc}
}

// apiError extracts the server's error envelope, falling back to the status.
func apiError(resp *resty.Response) error {
	if envelope, ok := resp.Error().(*httpapi.ErrorResponse); ok && envelope.Error != "" {
		return fmt.Errorf("%s: %s", resp.Status(), envelope.Error)
	}
	return fmt.Errorf("%s", resp.Status())
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		SetError(&httpapi.ErrorResponse{}).
		Post(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetResult(result).
		SetError(&httpapi.ErrorResponse{}).
		Get(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

// Health checks server liveness.
func (c *Client) Health(ctx context.Context) (*httpapi.HealthResponse, error) {
	var out httpapi.HealthResponse
	if err := c.get(ctx, "/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateNamespace creates (or fetches, by name) a namespace.
func (c *Client) CreateNamespace(ctx context.Context, name string) (*metadata.Namespace, error) {
	var out metadata.Namespace
	if err := c.post(ctx, "/namespaces", httpapi.CreateNamespaceRequest{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTopic creates (or fetches, by name) a topic in a namespace.
func (c *Client) CreateTopic(ctx context.Context, nsID id.NamespaceID, name string) (*metadata.Topic, error) {
	var out metadata.Topic
	path := fmt.Sprintf("/namespaces/%s/topics", nsID)
	if err := c.post(ctx, path, httpapi.CreateTopicRequest{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSubscription attaches a push subscription to a topic.
func (c *Client) CreateSubscription(ctx context.Context, nsID id.NamespaceID, topicID id.TopicID, name, pushEndpoint string) (*metadata.Subscription, error) {
	var out metadata.Subscription
	path := fmt.Sprintf("/namespaces/%s/topics/%s/subscriptions", nsID, topicID)
	req := httpapi.CreateSubscriptionRequest{
		Name:         name,
		DeliveryType: string(metadata.DeliveryPush),
		PushEndpoint: pushEndpoint,
	}
	if err := c.post(ctx, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateDataset creates (or fetches, by name) a dataset in a namespace.
func (c *Client) CreateDataset(ctx context.Context, nsID id.NamespaceID, name, description string) (*metadata.Dataset, error) {
	var out metadata.Dataset
	path := fmt.Sprintf("/namespaces/%s/datasets", nsID)
	req := httpapi.CreateDatasetRequest{Name: name, Description: description}
	if err := c.post(ctx, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Publish sends a base64-encoded JSON message to a topic.
func (c *Client) Publish(ctx context.Context, nsID id.NamespaceID, topicID id.TopicID, data string) (*httpapi.PublishResponse, error) {
	var out httpapi.PublishResponse
	path := fmt.Sprintf("/namespaces/%s/topics/%s/publish", nsID, topicID)
	if err := c.post(ctx, path, httpapi.PublishRequest{Data: data}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WriteDataset appends a record batch to a dataset.
func (c *Client) WriteDataset(ctx context.Context, nsID id.NamespaceID, dsID id.DatasetID, records []dataset.Record) error {
	path := fmt.Sprintf("/namespaces/%s/datasets/%s/write", nsID, dsID)
	var out httpapi.WriteResponse
	return c.post(ctx, path, httpapi.DatasetPayload{Data: records}, &out)
}

// ReadDataset fetches every record of a dataset.
func (c *Client) ReadDataset(ctx context.Context, nsID id.NamespaceID, dsID id.DatasetID) ([]dataset.Record, error) {
	path := fmt.Sprintf("/namespaces/%s/datasets/%s/read", nsID, dsID)
	var out httpapi.DatasetPayload
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// DatasetUploader binds a client to one dataset so the watcher can ship
// batches without knowing about namespaces or routing.
type DatasetUploader struct {
	client *Client
	nsID   id.NamespaceID
	dsID   id.DatasetID
}

// NewDatasetUploader creates an uploader targeting one dataset.
func NewDatasetUploader(client *Client, nsID id.NamespaceID, dsID id.DatasetID) *DatasetUploader {
	return &DatasetUploader{client: client, nsID: nsID, dsID: dsID}
}

// Upload ships one record batch to the bound dataset.
func (u *DatasetUploader) Upload(ctx context.Context, records []dataset.Record) error {
	return u.client.WriteDataset(ctx, u.nsID, u.dsID, records)
}
