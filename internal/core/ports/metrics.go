package ports

// EngineMetrics receives counters from the generation pipeline.
// A nil EngineMetrics is never passed to services; use NoopMetrics.
type EngineMetrics interface {
	CacheLookup(providerType string, hit bool)
	ExternalCall(provider, stage string, err error)
	CandidateResult(provider string, ok bool)
	SummarySource(source string)
	EmailSent(kind string, err error)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) CacheLookup(string, bool)           {}
func (NoopMetrics) ExternalCall(string, string, error) {}
func (NoopMetrics) CandidateResult(string, bool)       {}
func (NoopMetrics) SummarySource(string)               {}
func (NoopMetrics) EmailSent(string, error)            {}
