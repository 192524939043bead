package analytics

import (
	"hash/fnv"
	"strings"
	"time"
)

type TimeBucket struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}

// MetricsBucketIdentifier is the grouping key metric rows are reported
// under. Equality and hashing both go through the canonical string: two
// identifiers are equal iff their canonical hashes match. Keeping a single
// hash path is deliberate; a structural comparison next to a string hash is
// how semantically-equal keys end up in different buckets.
type MetricsBucketIdentifier struct {
	Currency          *string    `json:"currency,omitempty"`
	Status            *string    `json:"status,omitempty"`
	Connector         *string    `json:"connector,omitempty"`
	AuthType          *string    `json:"auth_type,omitempty"`
	PaymentMethod     *string    `json:"payment_method,omitempty"`
	PaymentMethodType *string    `json:"payment_method_type,omitempty"`
	TimeBucket        TimeBucket `json:"time_bucket"`
}

const fieldSeparator = "\x1f"

func renderField(f *string) string {
	if f == nil {
		return "none"
	}
	return *f
}

// canonical renders every field into one stable string.
func (id MetricsBucketIdentifier) canonical() string {
	parts := []string{
		renderField(id.Currency),
		renderField(id.Status),
		renderField(id.Connector),
		renderField(id.AuthType),
		renderField(id.PaymentMethod),
		renderField(id.PaymentMethodType),
		id.TimeBucket.Start.UTC().Format(time.RFC3339),
		id.TimeBucket.End.UTC().Format(time.RFC3339),
	}
	return strings.Join(parts, fieldSeparator)
}

// Hash returns the canonical fnv-1a hash of the identifier.
func (id MetricsBucketIdentifier) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id.canonical()))
	return h.Sum64()
}

// Equal compares through the canonical hash, the only equality this type has.
func (id MetricsBucketIdentifier) Equal(other MetricsBucketIdentifier) bool {
	return id.Hash() == other.Hash()
}

// normalizeTimeBucket clips a row's raw bucket timestamps to the requested
// granularity boundaries. Without a granularity the full requested range is
// used verbatim.
func normalizeTimeBucket(raw TimeBucket, g *Granularity, tr TimeRange) TimeBucket {
	if g == nil {
		return TimeBucket{Start: tr.StartTime, End: tr.EndTime}
	}
	start := g.Truncate(raw.Start)
	return TimeBucket{Start: start, End: start.Add(g.Duration())}
}
