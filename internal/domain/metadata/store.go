// Package metadata defines the entity records harbor keeps about namespaces,
// topics, subscriptions and datasets, and the Store contract the rest of the
// system consumes.
//
// The delivery engine and the segment store never persist these entities
// themselves; they are handed already-resolved records by the transport layer.
// Ownership is a strict tree: a subscription stores its topic ID, a topic its
// namespace ID. Child entities never hold live back-pointers to parents.
package metadata

import (
	"context"
	"strings"
	"time"

	"github.com/harborml/harbor/internal/shared/id"
)

// DeliveryType selects how a subscription receives messages.
type DeliveryType string

// Delivery modes. Push is the only accepted type; anything else is rejected
// at subscription creation.
const (
	DeliveryPush DeliveryType = "push"
)

// Namespace is the isolation boundary owning topics and datasets.
type Namespace struct {
	ID        id.NamespaceID `json:"id"`
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Topic is a named channel within a namespace.
type Topic struct {
	ID          id.TopicID     `json:"id"`
	NamespaceID id.NamespaceID `json:"namespace_id"`
	Name        string         `json:"name"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Subscription is a named push delivery target attached to a topic.
type Subscription struct {
	ID           id.SubscriptionID `json:"id"`
	TopicID      id.TopicID        `json:"topic_id"`
	Name         string            `json:"name"`
	DeliveryType DeliveryType      `json:"delivery_type"`
	PushEndpoint string            `json:"push_endpoint"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Dataset maps 1:1 to a directory of immutable segment files.
type Dataset struct {
	ID          id.DatasetID   `json:"id"`
	NamespaceID id.NamespaceID `json:"namespace_id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TopicWithSubscriptions is a topic loaded with its live subscription set,
// as the delivery engine consumes it.
type TopicWithSubscriptions struct {
	Topic
	Subscriptions []*Subscription `json:"subscriptions"`
}

// ValidPushEndpoint reports whether the endpoint uses an encrypted transport
// scheme. Checked at subscription creation, not at delivery time.
func ValidPushEndpoint(endpoint string) bool {
	return strings.HasPrefix(endpoint, "https://")
}

// Store is the metadata collaborator contract.
//
// Creates are idempotent on (parent, name): creating an entity whose name
// already exists under the same parent returns the existing record. Lookups
// report absence with a false boolean, never an error. Deletes cascade to
// descendants and report whether anything was removed.
type Store interface {
	CreateNamespace(ctx context.Context, name string) (*Namespace, error)
	GetNamespace(ctx context.Context, nsID id.NamespaceID) (*Namespace, bool, error)
	ListNamespaces(ctx context.Context, nameFilter string) ([]*Namespace, error)
	DeleteNamespace(ctx context.Context, nsID id.NamespaceID) (*Namespace, bool, error)

	CreateTopic(ctx context.Context, nsID id.NamespaceID, name string) (*Topic, error)
	GetTopic(ctx context.Context, nsID id.NamespaceID, topicID id.TopicID) (*Topic, bool, error)
	GetTopicWithSubscriptions(ctx context.Context, nsID id.NamespaceID, topicID id.TopicID) (*TopicWithSubscriptions, bool, error)
	ListTopics(ctx context.Context, nsID id.NamespaceID, nameFilter string) ([]*Topic, error)
	DeleteTopic(ctx context.Context, nsID id.NamespaceID, topicID id.TopicID) (*Topic, bool, error)

	CreateSubscription(ctx context.Context, topicID id.TopicID, name string, deliveryType DeliveryType, pushEndpoint string) (*Subscription, error)
	GetSubscription(ctx context.Context, topicID id.TopicID, subID id.SubscriptionID) (*Subscription, bool, error)
	ListSubscriptions(ctx context.Context, topicID id.TopicID, nameFilter string) ([]*Subscription, error)
	DeleteSubscription(ctx context.Context, topicID id.TopicID, subID id.SubscriptionID) (*Subscription, bool, error)

	CreateDataset(ctx context.Context, nsID id.NamespaceID, name, description string) (*Dataset, error)
	GetDataset(ctx context.Context, nsID id.NamespaceID, dsID id.DatasetID) (*Dataset, bool, error)
	ListDatasets(ctx context.Context, nsID id.NamespaceID, nameFilter string) ([]*Dataset, error)
	DeleteDataset(ctx context.Context, nsID id.NamespaceID, dsID id.DatasetID) (*Dataset, bool, error)
}
