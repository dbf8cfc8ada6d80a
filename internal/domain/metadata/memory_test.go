package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborml/harbor/internal/shared/id"
)

func TestCreateNamespaceIsIdempotentByName(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.CreateNamespace(ctx, "prod")
	require.NoError(t, err)

	second, err := s.CreateNamespace(ctx, "prod")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	all, err := s.ListNamespaces(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateRejectsEmptyName(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.CreateNamespace(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = s.CreateTopic(ctx, id.NewNamespaceID(), "")
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestTopicsAreScopedToNamespace(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ns1, _ := s.CreateNamespace(ctx, "one")
	ns2, _ := s.CreateNamespace(ctx, "two")

	t1, err := s.CreateTopic(ctx, ns1.ID, "events")
	require.NoError(t, err)
	t2, err := s.CreateTopic(ctx, ns2.ID, "events")
	require.NoError(t, err)

	// Same name under different namespaces yields distinct topics.
	assert.NotEqual(t, t1.ID, t2.ID)

	// A topic is invisible through the wrong namespace.
	_, ok, err := s.GetTopic(ctx, ns2.ID, t1.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubscriptionRequiresHTTPSEndpoint(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ns, _ := s.CreateNamespace(ctx, "ns")
	topic, _ := s.CreateTopic(ctx, ns.ID, "events")

	_, err := s.CreateSubscription(ctx, topic.ID, "consumer", DeliveryPush, "http://insecure.example.com/hook")
	assert.ErrorIs(t, err, ErrInvalidPushEndpoint)

	subs, err := s.ListSubscriptions(ctx, topic.ID, "")
	require.NoError(t, err)
	assert.Empty(t, subs, "a rejected subscription must not be persisted")

	sub, err := s.CreateSubscription(ctx, topic.ID, "consumer", DeliveryPush, "https://secure.example.com/hook")
	require.NoError(t, err)
	assert.Equal(t, "https://secure.example.com/hook", sub.PushEndpoint)
}

func TestSubscriptionRejectsUnknownDeliveryType(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ns, _ := s.CreateNamespace(ctx, "ns")
	topic, _ := s.CreateTopic(ctx, ns.ID, "events")

	for _, dt := range []DeliveryType{"pull", "carrier-pigeon", ""} {
		_, err := s.CreateSubscription(ctx, topic.ID, "consumer", dt, "")
		assert.ErrorIs(t, err, ErrInvalidDeliveryType, "delivery type %q", dt)
	}

	subs, err := s.ListSubscriptions(ctx, topic.ID, "")
	require.NoError(t, err)
	assert.Empty(t, subs, "a rejected subscription must not be persisted")
}

func TestCreateSubscriptionIsIdempotentByName(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ns, _ := s.CreateNamespace(ctx, "ns")
	topic, _ := s.CreateTopic(ctx, ns.ID, "events")

	first, err := s.CreateSubscription(ctx, topic.ID, "c", DeliveryPush, "https://a.example.com")
	require.NoError(t, err)
	second, err := s.CreateSubscription(ctx, topic.ID, "c", DeliveryPush, "https://b.example.com")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "https://a.example.com", second.PushEndpoint, "idempotent create returns the original record")
}

func TestGetTopicWithSubscriptions(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ns, _ := s.CreateNamespace(ctx, "ns")
	topic, _ := s.CreateTopic(ctx, ns.ID, "events")
	s.CreateSubscription(ctx, topic.ID, "b", DeliveryPush, "https://b.example.com")
	s.CreateSubscription(ctx, topic.ID, "a", DeliveryPush, "https://a.example.com")

	loaded, ok, err := s.GetTopicWithSubscriptions(ctx, ns.ID, topic.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, loaded.Subscriptions, 2)
	assert.Equal(t, "a", loaded.Subscriptions[0].Name)
	assert.Equal(t, "b", loaded.Subscriptions[1].Name)
}

func TestDeleteTopicCascadesToSubscriptions(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ns, _ := s.CreateNamespace(ctx, "ns")
	topic, _ := s.CreateTopic(ctx, ns.ID, "events")
	sub, _ := s.CreateSubscription(ctx, topic.ID, "c", DeliveryPush, "https://c.example.com")

	_, ok, err := s.DeleteTopic(ctx, ns.ID, topic.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = s.GetSubscription(ctx, topic.ID, sub.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteNamespaceCascades(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ns, _ := s.CreateNamespace(ctx, "ns")
	topic, _ := s.CreateTopic(ctx, ns.ID, "events")
	sub, _ := s.CreateSubscription(ctx, topic.ID, "c", DeliveryPush, "https://c.example.com")
	ds, _ := s.CreateDataset(ctx, ns.ID, "training", "")

	_, ok, err := s.DeleteNamespace(ctx, ns.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, _ = s.GetTopic(ctx, ns.ID, topic.ID)
	assert.False(t, ok)
	_, ok, _ = s.GetSubscription(ctx, topic.ID, sub.ID)
	assert.False(t, ok)
	_, ok, _ = s.GetDataset(ctx, ns.ID, ds.ID)
	assert.False(t, ok)
}

func TestDeleteMissingEntityReportsFalse(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, ok, err := s.DeleteNamespace(ctx, id.NewNamespaceID())
	require.NoError(t, err)
	assert.False(t, ok)

	ns, _ := s.CreateNamespace(ctx, "ns")
	_, ok, err = s.DeleteTopic(ctx, ns.ID, id.NewTopicID())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListFiltersBySubstring(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.CreateNamespace(ctx, "prod-east")
	s.CreateNamespace(ctx, "prod-west")
	s.CreateNamespace(ctx, "staging")

	out, err := s.ListNamespaces(ctx, "prod")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "prod-east", out[0].Name)
	assert.Equal(t, "prod-west", out[1].Name)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ns, _ := s.CreateNamespace(ctx, "ns")
	ns.Name = "mutated"

	got, ok, err := s.GetNamespace(ctx, ns.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ns", got.Name)
}
