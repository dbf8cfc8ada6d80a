package metadata

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/harborml/harbor/internal/shared/id"
)

// ErrInvalidPushEndpoint is returned when a push subscription is created with
// a non-HTTPS endpoint. Nothing is persisted in that case.
var ErrInvalidPushEndpoint = errors.New("push_endpoint must be a HTTPS URL")

// ErrInvalidDeliveryType is returned when a subscription is created with a
// delivery type other than push.
var ErrInvalidDeliveryType = errors.New("delivery_type must be push")

// ErrEmptyName is returned when an entity is created with an empty name.
var ErrEmptyName = errors.New("name must not be empty")

// MemoryStore is an in-memory Store implementation.
//
// It backs the server in single-process deployments and the test suites.
// A relational store can replace it behind the same interface without the
// core components noticing.
type MemoryStore struct {
	mu            sync.RWMutex
	namespaces    map[id.NamespaceID]*Namespace
	topics        map[id.TopicID]*Topic
	subscriptions map[id.SubscriptionID]*Subscription
	datasets      map[id.DatasetID]*Dataset
}

// NewMemoryStore creates an empty in-memory metadata store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		namespaces:    make(map[id.NamespaceID]*Namespace),
		topics:        make(map[id.TopicID]*Topic),
		subscriptions: make(map[id.SubscriptionID]*Subscription),
		datasets:      make(map[id.DatasetID]*Dataset),
	}
}

var _ Store = (*MemoryStore)(nil)

// CreateNamespace creates a namespace or returns the existing one by name.
func (s *MemoryStore) CreateNamespace(_ context.Context, name string) (*Namespace, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ns := range s.namespaces {
		if ns.Name == name {
			return cloneNamespace(ns), nil
		}
	}

	now := time.Now().UTC()
	ns := &Namespace{
		ID:        id.NewNamespaceID(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.namespaces[ns.ID] = ns
	return cloneNamespace(ns), nil
}

// GetNamespace looks up a namespace by ID.
func (s *MemoryStore) GetNamespace(_ context.Context, nsID id.NamespaceID) (*Namespace, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.namespaces[nsID]
	if !ok {
		return nil, false, nil
	}
	return cloneNamespace(ns), true, nil
}

// ListNamespaces returns namespaces ordered by name, optionally filtered by
// name substring.
func (s *MemoryStore) ListNamespaces(_ context.Context, nameFilter string) ([]*Namespace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Namespace, 0, len(s.namespaces))
	for _, ns := range s.namespaces {
		if nameFilter != "" && !strings.Contains(ns.Name, nameFilter) {
			continue
		}
		out = append(out, cloneNamespace(ns))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteNamespace removes a namespace and cascades to its topics,
// subscriptions and datasets. On-disk dataset removal is the segment store's
// job; callers invoke its lifecycle hook alongside this.
func (s *MemoryStore) DeleteNamespace(_ context.Context, nsID id.NamespaceID) (*Namespace, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[nsID]
	if !ok {
		return nil, false, nil
	}

	for topicID, topic := range s.topics {
		if topic.NamespaceID != nsID {
			continue
		}
		s.deleteTopicSubscriptionsLocked(topicID)
		delete(s.topics, topicID)
	}
	for dsID, ds := range s.datasets {
		if ds.NamespaceID == nsID {
			delete(s.datasets, dsID)
		}
	}
	delete(s.namespaces, nsID)
	return cloneNamespace(ns), true, nil
}

// CreateTopic creates a topic or returns the existing one by name within the
// namespace.
func (s *MemoryStore) CreateTopic(_ context.Context, nsID id.NamespaceID, name string) (*Topic, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.topics {
		if t.NamespaceID == nsID && t.Name == name {
			return cloneTopic(t), nil
		}
	}

	now := time.Now().UTC()
	t := &Topic{
		ID:          id.NewTopicID(),
		NamespaceID: nsID,
		Name:        name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.topics[t.ID] = t
	return cloneTopic(t), nil
}

// GetTopic looks up a topic scoped to a namespace.
func (s *MemoryStore) GetTopic(_ context.Context, nsID id.NamespaceID, topicID id.TopicID) (*Topic, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.topics[topicID]
	if !ok || t.NamespaceID != nsID {
		return nil, false, nil
	}
	return cloneTopic(t), true, nil
}

// GetTopicWithSubscriptions loads a topic with its live subscription set.
func (s *MemoryStore) GetTopicWithSubscriptions(_ context.Context, nsID id.NamespaceID, topicID id.TopicID) (*TopicWithSubscriptions, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.topics[topicID]
	if !ok || t.NamespaceID != nsID {
		return nil, false, nil
	}

	loaded := &TopicWithSubscriptions{Topic: *cloneTopic(t)}
	for _, sub := range s.subscriptions {
		if sub.TopicID == topicID {
			loaded.Subscriptions = append(loaded.Subscriptions, cloneSubscription(sub))
		}
	}
	sort.Slice(loaded.Subscriptions, func(i, j int) bool {
		return loaded.Subscriptions[i].Name < loaded.Subscriptions[j].Name
	})
	return loaded, true, nil
}

// ListTopics returns a namespace's topics ordered by name.
func (s *MemoryStore) ListTopics(_ context.Context, nsID id.NamespaceID, nameFilter string) ([]*Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Topic, 0)
	for _, t := range s.topics {
		if t.NamespaceID != nsID {
			continue
		}
		if nameFilter != "" && !strings.Contains(t.Name, nameFilter) {
			continue
		}
		out = append(out, cloneTopic(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteTopic removes a topic and all of its subscriptions.
func (s *MemoryStore) DeleteTopic(_ context.Context, nsID id.NamespaceID, topicID id.TopicID) (*Topic, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.topics[topicID]
	if !ok || t.NamespaceID != nsID {
		return nil, false, nil
	}
	s.deleteTopicSubscriptionsLocked(topicID)
	delete(s.topics, topicID)
	return cloneTopic(t), true, nil
}

// CreateSubscription creates a subscription or returns the existing one by
// name within the topic. Only the push delivery type is accepted, and push
// endpoints must use HTTPS; invalid subscriptions are rejected before
// anything is persisted.
func (s *MemoryStore) CreateSubscription(_ context.Context, topicID id.TopicID, name string, deliveryType DeliveryType, pushEndpoint string) (*Subscription, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if deliveryType != DeliveryPush {
		return nil, ErrInvalidDeliveryType
	}
	if !ValidPushEndpoint(pushEndpoint) {
		return nil, ErrInvalidPushEndpoint
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subscriptions {
		if sub.TopicID == topicID && sub.Name == name {
			return cloneSubscription(sub), nil
		}
	}

	now := time.Now().UTC()
	sub := &Subscription{
		ID:           id.NewSubscriptionID(),
		TopicID:      topicID,
		Name:         name,
		DeliveryType: deliveryType,
		PushEndpoint: pushEndpoint,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.subscriptions[sub.ID] = sub
	return cloneSubscription(sub), nil
}

// GetSubscription looks up a subscription scoped to a topic.
func (s *MemoryStore) GetSubscription(_ context.Context, topicID id.TopicID, subID id.SubscriptionID) (*Subscription, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[subID]
	if !ok || sub.TopicID != topicID {
		return nil, false, nil
	}
	return cloneSubscription(sub), true, nil
}

// ListSubscriptions returns a topic's subscriptions ordered by name.
func (s *MemoryStore) ListSubscriptions(_ context.Context, topicID id.TopicID, nameFilter string) ([]*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Subscription, 0)
	for _, sub := range s.subscriptions {
		if sub.TopicID != topicID {
			continue
		}
		if nameFilter != "" && !strings.Contains(sub.Name, nameFilter) {
			continue
		}
		out = append(out, cloneSubscription(sub))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteSubscription removes a subscription.
func (s *MemoryStore) DeleteSubscription(_ context.Context, topicID id.TopicID, subID id.SubscriptionID) (*Subscription, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions[subID]
	if !ok || sub.TopicID != topicID {
		return nil, false, nil
	}
	delete(s.subscriptions, subID)
	return cloneSubscription(sub), true, nil
}

// CreateDataset creates a dataset or returns the existing one by name within
// the namespace.
func (s *MemoryStore) CreateDataset(_ context.Context, nsID id.NamespaceID, name, description string) (*Dataset, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ds := range s.datasets {
		if ds.NamespaceID == nsID && ds.Name == name {
			return cloneDataset(ds), nil
		}
	}

	now := time.Now().UTC()
	ds := &Dataset{
		ID:          id.NewDatasetID(),
		NamespaceID: nsID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.datasets[ds.ID] = ds
	return cloneDataset(ds), nil
}

// GetDataset looks up a dataset scoped to a namespace.
func (s *MemoryStore) GetDataset(_ context.Context, nsID id.NamespaceID, dsID id.DatasetID) (*Dataset, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.datasets[dsID]
	if !ok || ds.NamespaceID != nsID {
		return nil, false, nil
	}
	return cloneDataset(ds), true, nil
}

// ListDatasets returns a namespace's datasets ordered by name.
func (s *MemoryStore) ListDatasets(_ context.Context, nsID id.NamespaceID, nameFilter string) ([]*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Dataset, 0)
	for _, ds := range s.datasets {
		if ds.NamespaceID != nsID {
			continue
		}
		if nameFilter != "" && !strings.Contains(ds.Name, nameFilter) {
			continue
		}
		out = append(out, cloneDataset(ds))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteDataset removes a dataset record. The on-disk directory is removed by
// the segment store's lifecycle hook.
func (s *MemoryStore) DeleteDataset(_ context.Context, nsID id.NamespaceID, dsID id.DatasetID) (*Dataset, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, ok := s.datasets[dsID]
	if !ok || ds.NamespaceID != nsID {
		return nil, false, nil
	}
	delete(s.datasets, dsID)
	return cloneDataset(ds), true, nil
}

func (s *MemoryStore) deleteTopicSubscriptionsLocked(topicID id.TopicID) {
	for subID, sub := range s.subscriptions {
		if sub.TopicID == topicID {
			delete(s.subscriptions, subID)
		}
	}
}

func cloneNamespace(ns *Namespace) *Namespace { c := *ns; return &c }
func cloneTopic(t *Topic) *Topic              { c := *t; return &c }
func cloneDataset(ds *Dataset) *Dataset       { c := *ds; return &c }

func cloneSubscription(sub *Subscription) *Subscription { c := *sub; return &c }
