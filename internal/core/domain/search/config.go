package search

import "encoding/json"

// Backend identifies a web-search service.
type Backend string

const (
	BackendTavily  Backend = "tavily"
	BackendSerpAPI Backend = "serpapi"
)

// Depth values accepted in configuration. Backends map them to their own vocabulary.
const (
	DepthBasic         = "basic"
	DepthModerate      = "moderate"
	DepthAdvanced      = "advanced"
	DepthComprehensive = "comprehensive"
)

// Time ranges accepted in configuration.
const (
	RangeDay   = "day"
	RangeWeek  = "week"
	RangeMonth = "month"
	RangeYear  = "year"
)

// Config holds search options. Nil fields are "not set" so that overlays only
// replace what the caller actually specified. Decoding user JSON into this type
// drops option names it does not know.
type Config struct {
	MaxResults        *int     `json:"max_results,omitempty" yaml:"max_results,omitempty"`
	Topic             *string  `json:"topic,omitempty" yaml:"topic,omitempty"`
	SearchDepth       *string  `json:"search_depth,omitempty" yaml:"search_depth,omitempty"`
	TimeRange         *string  `json:"time_range,omitempty" yaml:"time_range,omitempty"`
	IncludeRawContent *bool    `json:"include_raw_content,omitempty" yaml:"include_raw_content,omitempty"`
	IncludeDomains    []string `json:"include_domains,omitempty" yaml:"include_domains,omitempty"`
	ExcludeDomains    []string `json:"exclude_domains,omitempty" yaml:"exclude_domains,omitempty"`
	Days              *int     `json:"days,omitempty" yaml:"days,omitempty"`
	SearchType        *string  `json:"search_type,omitempty" yaml:"search_type,omitempty"`
	SafeSearch        *string  `json:"safe_search,omitempty" yaml:"safe_search,omitempty"`
}

// Merge returns base with every field set in overlay replacing the base value.
// Neither argument is modified.
func Merge(base, overlay Config) Config {
	out := base
	if overlay.MaxResults != nil {
		out.MaxResults = overlay.MaxResults
	}
	if overlay.Topic != nil {
		out.Topic = overlay.Topic
	}
	if overlay.SearchDepth != nil {
		out.SearchDepth = overlay.SearchDepth
	}
	if overlay.TimeRange != nil {
		out.TimeRange = overlay.TimeRange
	}
	if overlay.IncludeRawContent != nil {
		out.IncludeRawContent = overlay.IncludeRawContent
	}
	if overlay.IncludeDomains != nil {
		out.IncludeDomains = append([]string(nil), overlay.IncludeDomains...)
	}
	if overlay.ExcludeDomains != nil {
		out.ExcludeDomains = append([]string(nil), overlay.ExcludeDomains...)
	}
	if overlay.Days != nil {
		out.Days = overlay.Days
	}
	if overlay.SearchType != nil {
		out.SearchType = overlay.SearchType
	}
	if overlay.SafeSearch != nil {
		out.SafeSearch = overlay.SafeSearch
	}
	return out
}

// ParseConfig decodes a user-supplied JSON document. Unknown keys are ignored.
func ParseConfig(raw []byte) (Config, error) {
	var c Config
	if len(raw) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// IsZero reports whether no option is set.
func (c Config) IsZero() bool {
	return c.MaxResults == nil && c.Topic == nil && c.SearchDepth == nil && c.TimeRange == nil &&
		c.IncludeRawContent == nil && c.IncludeDomains == nil && c.ExcludeDomains == nil &&
		c.Days == nil && c.SearchType == nil && c.SafeSearch == nil
}

// IntValue dereferences p or returns def.
func IntValue(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// StringValue dereferences p or returns def.
func StringValue(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

// BoolValue dereferences p or returns def.
func BoolValue(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func ptr[T any](v T) *T { return &v }

// Defaults returns the built-in options for a backend.
func Defaults(b Backend) Config {
	switch b {
	case BackendTavily:
		return Config{
			MaxResults:        ptr(5),
			Topic:             ptr("news"),
			SearchDepth:       ptr(DepthModerate),
			TimeRange:         ptr(RangeWeek),
			IncludeRawContent: ptr(true),
			IncludeDomains:    []string{},
			ExcludeDomains:    []string{},
			Days:              ptr(7),
		}
	case BackendSerpAPI:
		return Config{
			MaxResults:     ptr(5),
			SearchType:     ptr("news"),
			SafeSearch:     ptr("off"),
			TimeRange:      ptr(RangeWeek),
			IncludeDomains: []string{},
			ExcludeDomains: []string{},
		}
	default:
		return Config{}
	}
}

// Results is the native JSON document returned by a search backend.
type Results map[string]any
