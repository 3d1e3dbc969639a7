package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the day-bucket format stored in created_date.
const DateLayout = "2006-01-02"

// DefaultTTLDays is applied when Save is called without a lifetime.
const DefaultTTLDays = 1

// DefaultDaysToKeep is the retention used by the periodic sweep.
const DefaultDaysToKeep = 7

// Tag suffixes appended to a provider name to build the provider_type tag.
const (
	SuffixContent        = "_content"
	SuffixWebSearch      = "_web_search"
	SuffixNews           = "_news"
	SuffixSimulateSearch = "_simulate_search"
	SuffixSearch         = "_search"
)

// ContentTag returns the tag for plain completions of a provider ("groq_content").
func ContentTag(provider string) string { return provider + SuffixContent }

// WebSearchTag returns the tag for compound web-search results ("groq_web_search").
func WebSearchTag(provider string) string { return provider + SuffixWebSearch }

// NewsTag returns the tag under which finished news bodies are kept for history lookback.
func NewsTag(provider string) string { return provider + SuffixNews }

// SimulateSearchTag returns the tag for model-only searches ("groq_simulate_search").
func SimulateSearchTag(provider string) string { return provider + SuffixSimulateSearch }

// SearchTag returns the tag for raw search backend results ("tavily_search").
func SearchTag(backend string) string { return backend + SuffixSearch }

// PayloadKind discriminates the two payload shapes.
type PayloadKind string

const (
	PayloadText   PayloadKind = "text"
	PayloadRecord PayloadKind = "record"
)

// Payload is either raw text or a structured record. Exactly one side is set.
type Payload struct {
	Kind   PayloadKind    `json:"kind"`
	Text   string         `json:"text,omitempty"`
	Record map[string]any `json:"record,omitempty"`
}

// TextPayload wraps raw text.
func TextPayload(s string) Payload { return Payload{Kind: PayloadText, Text: s} }

// RecordPayload wraps a structured record.
func RecordPayload(r map[string]any) Payload { return Payload{Kind: PayloadRecord, Record: r} }

// IsText reports whether the payload holds raw text.
func (p Payload) IsText() bool { return p.Kind == PayloadText }

// AsText returns the payload as text. Records are rendered from their "content"
// field when present, otherwise as JSON.
func (p Payload) AsText() string {
	if p.Kind == PayloadText {
		return p.Text
	}
	if c, ok := p.Record["content"].(string); ok {
		return c
	}
	b, err := json.Marshal(p.Record)
	if err != nil {
		return ""
	}
	return string(b)
}

// Encode serializes the payload body for storage; the kind is stored separately.
func (p Payload) Encode() ([]byte, error) {
	switch p.Kind {
	case PayloadText:
		return json.Marshal(p.Text)
	case PayloadRecord:
		return json.Marshal(p.Record)
	default:
		return nil, fmt.Errorf("unknown payload kind %q", p.Kind)
	}
}

// DecodePayload rebuilds a payload from its stored kind and body.
func DecodePayload(kind string, body []byte) (Payload, error) {
	switch PayloadKind(kind) {
	case PayloadText:
		var s string
		if err := json.Unmarshal(body, &s); err != nil {
			return Payload{}, fmt.Errorf("failed to decode text payload: %w", err)
		}
		return TextPayload(s), nil
	case PayloadRecord:
		var r map[string]any
		if err := json.Unmarshal(body, &r); err != nil {
			return Payload{}, fmt.Errorf("failed to decode record payload: %w", err)
		}
		return RecordPayload(r), nil
	default:
		return Payload{}, fmt.Errorf("unknown payload kind %q", kind)
	}
}

// Entry is one persisted cache record.
type Entry struct {
	ID           uuid.UUID `json:"id"`
	CacheKey     string    `json:"cache_key"`
	Payload      Payload   `json:"payload"`
	CreatedAt    time.Time `json:"created_at"`
	CreatedDate  string    `json:"created_date"`
	ProviderType string    `json:"provider_type"`
	Query        *string   `json:"query,omitempty"`
	Tags         []string  `json:"tags"`
	TTLDays      int       `json:"ttl_days"`
}

// Stats summarizes cache usage since process start plus the stored entry count.
type Stats struct {
	Entries int64 `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}
