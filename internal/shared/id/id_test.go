package id

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUnique(t *testing.T) {
	g := NewGenerator()

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		s := g.GenerateString()
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate ULID after %d generations: %s", i, s)
		}
		seen[s] = struct{}{}
	}
}

func TestPrefixedIDs(t *testing.T) {
	assert.True(t, strings.HasPrefix(NewNamespaceID().String(), "ns_"))
	assert.True(t, strings.HasPrefix(NewTopicID().String(), "top_"))
	assert.True(t, strings.HasPrefix(NewSubscriptionID().String(), "sub_"))
	assert.True(t, strings.HasPrefix(NewDatasetID().String(), "ds_"))
}

func TestIsValid(t *testing.T) {
	nsID := NewNamespaceID().String()

	assert.True(t, IsValid(nsID, NamespacePrefix))
	assert.False(t, IsValid(nsID, TopicPrefix))
	assert.False(t, IsValid("ns_not-a-ulid", NamespacePrefix))
	assert.False(t, IsValid("", NamespacePrefix))
}

func TestTimestampRoundTrip(t *testing.T) {
	before := time.Now().Add(-time.Second)
	nsID := NewNamespaceID()
	after := time.Now().Add(time.Second)

	ts, err := Timestamp(nsID.String())
	require.NoError(t, err)
	assert.True(t, ts.After(before) && ts.Before(after), "timestamp %v outside [%v, %v]", ts, before, after)
}

func TestTimestampRejectsGarbage(t *testing.T) {
	_, err := Timestamp("ns_garbage")
	assert.Error(t, err)
}

func TestGeneratedIDsSortByTime(t *testing.T) {
	g := NewGenerator()

	a := g.GenerateString()
	time.Sleep(2 * time.Millisecond)
	b := g.GenerateString()

	assert.Less(t, a, b, "ULIDs must order lexicographically by creation time")
}
