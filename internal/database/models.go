package database

// RulebookVersion is one immutable snapshot in the rulebook history.
// Rules, Sources, and Metadata hold raw JSON; the rulebook package owns
// their shape.
type RulebookVersion struct {
	Version   int
	Rules     string
	Sources   string
	Notes     string
	Metadata  string
	CreatedAt string
}

// RunRecord is the persisted outcome of one per-topic pipeline run.
type RunRecord struct {
	ID            int64
	SiteKey       string
	TopicTitle    string
	StartedAt     string
	DurationMS    int64
	Tokens        int
	CostUSD       float64
	QualityScore  int
	Decision      string
	PublishStatus *string
	Error         *string
	Report        *string
	ContentHTML   *string
}

// Failed reports whether the run aborted with an error.
func (r RunRecord) Failed() bool {
	return r.Error != nil && *r.Error != ""
}

// RunEvent is one append-only stage event within a run.
type RunEvent struct {
	ID        int64
	RunID     int64
	SiteKey   string
	Stage     string
	OK        bool
	Detail    *string
	CreatedAt string
}

// RunFilter narrows run queries. Zero values mean "no filter".
type RunFilter struct {
	SiteKey    string
	Since      string // inclusive lower bound on started_at, "YYYY-MM-DD"
	FailedOnly bool
	Limit      uint64
}

// Stats contains aggregate statistics for the status command.
type Stats struct {
	TotalRuns        int
	FailedRuns       int
	PublishedRuns    int
	Sites            int
	AvgQualityScore  float64
	RulebookVersions int
}
