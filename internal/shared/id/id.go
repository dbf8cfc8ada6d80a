// Package id provides centralized ID generation for harbor.
//
// All entity identifiers are ULIDs with a type prefix (ns_*, top_*, sub_*,
// ds_*). ULIDs are lexicographically sortable, which keeps listing stable and
// makes logs readable; the prefix prevents an ID of one kind from being used
// where another is expected.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// NamespaceID identifies a namespace.
type NamespaceID string

// TopicID identifies a topic within a namespace.
type TopicID string

// SubscriptionID identifies a subscription within a topic.
type SubscriptionID string

// DatasetID identifies a dataset within a namespace.
type DatasetID string

// Prefixes for each ID kind.
const (
	NamespacePrefix    = "ns"
	TopicPrefix        = "top"
	SubscriptionPrefix = "sub"
	DatasetPrefix      = "ds"
)

// Generator generates ULIDs with optional prefixes.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for tests that need deterministic IDs.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string.
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewNamespaceID generates a new namespace ID.
func NewNamespaceID() NamespaceID {
	return NamespaceID(Default().GenerateWithPrefix(NamespacePrefix))
}

// NewTopicID generates a new topic ID.
func NewTopicID() TopicID {
	return TopicID(Default().GenerateWithPrefix(TopicPrefix))
}

// NewSubscriptionID generates a new subscription ID.
func NewSubscriptionID() SubscriptionID {
	return SubscriptionID(Default().GenerateWithPrefix(SubscriptionPrefix))
}

// NewDatasetID generates a new dataset ID.
func NewDatasetID() DatasetID {
	return DatasetID(Default().GenerateWithPrefix(DatasetPrefix))
}

func (id NamespaceID) String() string    { return string(id) }
func (id TopicID) String() string        { return string(id) }
func (id SubscriptionID) String() string { return string(id) }
func (id DatasetID) String() string      { return string(id) }

// IsValid checks that s carries the given prefix and a parseable ULID.
func IsValid(s, prefix string) bool {
	rest, ok := strings.CutPrefix(s, prefix+"_")
	if !ok {
		return false
	}
	_, err := ulid.Parse(rest)
	return err == nil
}

// Timestamp extracts the creation time encoded in a prefixed ID.
func Timestamp(s string) (time.Time, error) {
	_, rest, ok := strings.Cut(s, "_")
	if !ok {
		rest = s
	}
	parsed, err := ulid.Parse(rest)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
