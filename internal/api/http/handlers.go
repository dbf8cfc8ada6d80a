package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harborml/harbor/internal/dataset"
	"github.com/harborml/harbor/internal/domain/metadata"
	"github.com/harborml/harbor/internal/infrastructure/logging"
	"github.com/harborml/harbor/internal/infrastructure/monitoring"
	"github.com/harborml/harbor/internal/pubsub"
	"github.com/harborml/harbor/internal/shared/errors"
	"github.com/harborml/harbor/internal/shared/id"
)

// Version reported by the health endpoints.
const Version = "0.3.0"

// Handlers contains all HTTP handlers.
//
// The handlers are the transport collaborator: they resolve namespace, topic
// and dataset through the metadata store and hand already-validated
// parameters to the delivery engine and the segment store. Missing entities
// surface as client errors here; the core components never see them.
type Handlers struct {
	meta     metadata.Store
	segments *dataset.Store
	engine   *pubsub.Engine
	logger   *logging.Logger
	metrics  *monitoring.Metrics
}

// NewHandlers creates a new handler set.
func NewHandlers(meta metadata.Store, segments *dataset.Store, engine *pubsub.Engine, logger *logging.Logger) *Handlers {
	return &Handlers{
		meta:     meta,
		segments: segments,
		engine:   engine,
		logger:   logger,
	}
}

// WithMetrics attaches a metrics collector.
func (h *Handlers) WithMetrics(m *monitoring.Metrics) *Handlers {
	h.metrics = m
	return h
}

// Root handles liveness checks.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "online",
		Service: "harbor",
		Version: Version,
		Time:    time.Now().UTC(),
	})
}

// Health handles detailed health checks.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: "harbor",
		Version: Version,
		Time:    time.Now().UTC(),
	})
}

// CreateNamespace creates a namespace, or returns the existing one by name.
func (h *Handlers) CreateNamespace(c *gin.Context) {
	var req CreateNamespaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		return
	}

	ns, err := h.meta.CreateNamespace(c.Request.Context(), req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ns)
}

// ListNamespaces lists namespaces, optionally filtered by name substring.
func (h *Handlers) ListNamespaces(c *gin.Context) {
	namespaces, err := h.meta.ListNamespaces(c.Request.Context(), c.Query("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, namespaces)
}

// GetNamespace fetches a namespace by ID.
func (h *Handlers) GetNamespace(c *gin.Context) {
	ns, ok, err := h.meta.GetNamespace(c.Request.Context(), id.NamespaceID(c.Param("ns")))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !ok {
		h.fail(c, errors.NotFound("namespace", c.Param("ns")))
		return
	}
	c.JSON(http.StatusOK, ns)
}

// DeleteNamespace removes a namespace, cascading to its topics,
// subscriptions and datasets, and removes the namespace's on-disk tree.
func (h *Handlers) DeleteNamespace(c *gin.Context) {
	nsID := id.NamespaceID(c.Param("ns"))

	ns, ok, err := h.meta.DeleteNamespace(c.Request.Context(), nsID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !ok {
		h.fail(c, errors.NotFound("namespace", c.Param("ns")))
		return
	}
	if err := h.segments.RemoveNamespaceDirectory(nsID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ns)
}

// CreateTopic creates a topic within a namespace.
func (h *Handlers) CreateTopic(c *gin.Context) {
	var req CreateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		return
	}

	nsID := id.NamespaceID(c.Param("ns"))
	if !h.namespaceExists(c, nsID) {
		return
	}

	topic, err := h.meta.CreateTopic(c.Request.Context(), nsID, req.Name)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, topic)
}

// ListTopics lists a namespace's topics.
func (h *Handlers) ListTopics(c *gin.Context) {
	nsID := id.NamespaceID(c.Param("ns"))
	if !h.namespaceExists(c, nsID) {
		return
	}

	topics, err := h.meta.ListTopics(c.Request.Context(), nsID, c.Query("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, topics)
}

// DeleteTopic removes a topic and all of its subscriptions.
func (h *Handlers) DeleteTopic(c *gin.Context) {
	nsID := id.NamespaceID(c.Param("ns"))

	topic, ok, err := h.meta.DeleteTopic(c.Request.Context(), nsID, id.TopicID(c.Param("topic")))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !ok {
		h.fail(c, errors.NotFound("topic", c.Param("topic")))
		return
	}
	c.JSON(http.StatusOK, topic)
}

// CreateSubscription attaches a push subscription to a topic. Non-HTTPS push
// endpoints are rejected before anything is persisted.
func (h *Handlers) CreateSubscription(c *gin.Context) {
	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		return
	}

	nsID := id.NamespaceID(c.Param("ns"))
	topicID := id.TopicID(c.Param("topic"))
	if !h.topicExists(c, nsID, topicID) {
		return
	}

	sub, err := h.meta.CreateSubscription(
		c.Request.Context(),
		topicID,
		req.Name,
		metadata.DeliveryType(req.DeliveryType),
		req.PushEndpoint,
	)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// ListSubscriptions lists a topic's subscriptions.
func (h *Handlers) ListSubscriptions(c *gin.Context) {
	nsID := id.NamespaceID(c.Param("ns"))
	topicID := id.TopicID(c.Param("topic"))
	if !h.topicExists(c, nsID, topicID) {
		return
	}

	subs, err := h.meta.ListSubscriptions(c.Request.Context(), topicID, c.Query("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}

// DeleteSubscription removes a subscription.
func (h *Handlers) DeleteSubscription(c *gin.Context) {
	nsID := id.NamespaceID(c.Param("ns"))
	topicID := id.TopicID(c.Param("topic"))
	if !h.topicExists(c, nsID, topicID) {
		return
	}

	sub, ok, err := h.meta.DeleteSubscription(c.Request.Context(), topicID, id.SubscriptionID(c.Param("sub")))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !ok {
		h.fail(c, errors.NotFound("subscription", c.Param("sub")))
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Publish validates a message and fans it out to the topic's subscriptions.
//
// Validation happens before the topic is even resolved, so a malformed
// payload never costs a delivery. Individual endpoint failures do not fail
// the publish; the response reports how many deliveries succeeded.
func (h *Handlers) Publish(c *gin.Context) {
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		return
	}

	if _, err := pubsub.Validate(req.Data); err != nil {
		h.fail(c, err)
		return
	}

	nsID := id.NamespaceID(c.Param("ns"))
	if !h.namespaceExists(c, nsID) {
		return
	}
	topic, ok, err := h.meta.GetTopicWithSubscriptions(c.Request.Context(), nsID, id.TopicID(c.Param("topic")))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !ok {
		h.fail(c, errors.NotFound("topic", c.Param("topic")))
		return
	}

	results, err := h.engine.Publish(c.Request.Context(), topic, pubsub.Message{Data: req.Data})
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := PublishResponse{Subscriptions: len(results)}
	for _, r := range results {
		if r.Err != nil {
			resp.Failed++
		} else {
			resp.Delivered++
		}
	}
	if h.metrics != nil {
		h.metrics.RecordPublish(publishStatus(resp))
	}
	c.JSON(http.StatusOK, resp)
}

// publishStatus classifies a fan-out outcome for the publish counter.
func publishStatus(resp PublishResponse) string {
	switch {
	case resp.Failed == 0:
		return "ok"
	case resp.Delivered == 0:
		return "failed"
	default:
		return "partial"
	}
}

// CreateDataset creates a dataset record and provisions its directory.
func (h *Handlers) CreateDataset(c *gin.Context) {
	var req CreateDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		return
	}

	nsID := id.NamespaceID(c.Param("ns"))
	if !h.namespaceExists(c, nsID) {
		return
	}

	ds, err := h.meta.CreateDataset(c.Request.Context(), nsID, req.Name, req.Description)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.segments.CreateDirectory(nsID, ds.ID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ds)
}

// ListDatasets lists a namespace's datasets.
func (h *Handlers) ListDatasets(c *gin.Context) {
	nsID := id.NamespaceID(c.Param("ns"))
	if !h.namespaceExists(c, nsID) {
		return
	}

	datasets, err := h.meta.ListDatasets(c.Request.Context(), nsID, c.Query("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, datasets)
}

// GetDataset fetches a dataset by ID.
func (h *Handlers) GetDataset(c *gin.Context) {
	nsID := id.NamespaceID(c.Param("ns"))
	if !h.namespaceExists(c, nsID) {
		return
	}

	ds, ok, err := h.meta.GetDataset(c.Request.Context(), nsID, id.DatasetID(c.Param("ds")))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !ok {
		h.fail(c, errors.NotFound("dataset", c.Param("ds")))
		return
	}
	c.JSON(http.StatusOK, ds)
}

// DeleteDataset removes a dataset record and its on-disk directory.
func (h *Handlers) DeleteDataset(c *gin.Context) {
	nsID := id.NamespaceID(c.Param("ns"))
	if !h.namespaceExists(c, nsID) {
		return
	}

	ds, ok, err := h.meta.DeleteDataset(c.Request.Context(), nsID, id.DatasetID(c.Param("ds")))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !ok {
		h.fail(c, errors.NotFound("dataset", c.Param("ds")))
		return
	}
	if err := h.segments.RemoveDirectory(nsID, ds.ID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ds)
}

// WriteDataset appends one batch of records to a dataset as a new segment.
func (h *Handlers) WriteDataset(c *gin.Context) {
	var req DatasetPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
		return
	}

	nsID, ds, ok := h.resolveDataset(c)
	if !ok {
		return
	}

	if err := h.segments.Write(c.Request.Context(), nsID, ds.ID, req.Data); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, WriteResponse{Written: len(req.Data)})
}

// ReadDataset returns every record across all of a dataset's segments.
func (h *Handlers) ReadDataset(c *gin.Context) {
	nsID, ds, ok := h.resolveDataset(c)
	if !ok {
		return
	}

	records, err := h.segments.Read(c.Request.Context(), nsID, ds.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, DatasetPayload{Data: records})
}

// namespaceExists resolves the :ns param, replying 400 when absent.
func (h *Handlers) namespaceExists(c *gin.Context, nsID id.NamespaceID) bool {
	_, ok, err := h.meta.GetNamespace(c.Request.Context(), nsID)
	if err != nil {
		h.fail(c, err)
		return false
	}
	if !ok {
		h.fail(c, errors.NotFound("namespace", nsID.String()))
		return false
	}
	return true
}

// topicExists resolves the :ns/:topic params, replying 400 when absent.
func (h *Handlers) topicExists(c *gin.Context, nsID id.NamespaceID, topicID id.TopicID) bool {
	if !h.namespaceExists(c, nsID) {
		return false
	}
	_, ok, err := h.meta.GetTopic(c.Request.Context(), nsID, topicID)
	if err != nil {
		h.fail(c, err)
		return false
	}
	if !ok {
		h.fail(c, errors.NotFound("topic", topicID.String()))
		return false
	}
	return true
}

// resolveDataset resolves the :ns/:ds params, replying 400 when absent.
func (h *Handlers) resolveDataset(c *gin.Context) (id.NamespaceID, *metadata.Dataset, bool) {
	nsID := id.NamespaceID(c.Param("ns"))
	if !h.namespaceExists(c, nsID) {
		return nsID, nil, false
	}
	ds, ok, err := h.meta.GetDataset(c.Request.Context(), nsID, id.DatasetID(c.Param("ds")))
	if err != nil {
		h.fail(c, err)
		return nsID, nil, false
	}
	if !ok {
		h.fail(c, errors.NotFound("dataset", c.Param("ds")))
		return nsID, nil, false
	}
	return nsID, ds, true
}

// fail maps an error to its HTTP status. Validation problems are the
// client's fault and come back 422, missing entities 400, storage failures
// 500. Push endpoint details never appear in responses.
func (h *Handlers) fail(c *gin.Context, err error) {
	switch {
	case errors.IsValidation(err),
		errors.Is(err, metadata.ErrInvalidPushEndpoint),
		errors.Is(err, metadata.ErrInvalidDeliveryType),
		errors.Is(err, metadata.ErrEmptyName):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.IsNotFound(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.IsStorage(err):
		h.logger.Error("storage failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "storage failure"})
	default:
		h.logger.Error("internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
