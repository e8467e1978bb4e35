package store

import "time"

// SessionMode is a closed enumeration of processing controller modes
// (spec.md §4.3).
type SessionMode string

const (
	ModePreview SessionMode = "preview"
	ModeProcess SessionMode = "process"
)

// Action is the disposition applied (or recorded, in preview) to a
// message.
type Action string

const (
	ActionDeleted   Action = "DELETED"
	ActionPreserved Action = "PRESERVED"
	ActionSkipped   Action = "SKIPPED"
)

// ProcessingStatus is the ProcessedMessage lifecycle state from
// spec.md §4.5's state machine.
type ProcessingStatus string

const (
	StatusPreview   ProcessingStatus = "preview"
	StatusProcessed ProcessingStatus = "processed"
	StatusFlagged   ProcessingStatus = "flagged"
	StatusError     ProcessingStatus = "error"
)

// FlagType is a closed enumeration of override flag types (spec.md §4.4).
type FlagType string

const (
	FlagProtect  FlagType = "PROTECT"
	FlagDelete   FlagType = "DELETE"
	FlagResearch FlagType = "RESEARCH"
)

// Account mirrors spec.md §3's Account entity.
type Account struct {
	ID        int64
	Email     string
	Name      string
	Provider  string
	CreatedAt time.Time
}

// Session mirrors spec.md §3's Session entity.
type Session struct {
	ID         int64
	AccountID  int64
	Mode       SessionMode
	StartedAt  time.Time
	EndedAt    *time.Time
	Examined   int
	Deleted    int
	Preserved  int
	Skipped    int
	Errored    int
	Categories map[string]int
}

// Counted reports whether the session's counters sum to Examined, the
// invariant spec.md §3 and §8 require of every closed session.
func (s Session) Counted() bool {
	return s.Deleted+s.Preserved+s.Skipped+s.Errored == s.Examined
}

// GeoRecord is the geographic portion of a ProcessedMessage row.
type GeoRecord struct {
	IP          string
	CountryCode string
	CountryName string
	RiskScore   float64
	Method      string
}

// ProcessedMessage mirrors spec.md §3's ProcessedMessage entity, the
// single source of truth for processing state.
type ProcessedMessage struct {
	ID               int64
	MessageID        string
	SessionID        int64
	UID              uint32
	Folder           string
	Sender           string
	SenderDomain     string
	Subject          string
	Action           Action
	Reason           string
	Category         string
	Subcategory      string
	Confidence       float64
	TierUsed         int
	Geo              GeoRecord
	ProcessingStatus ProcessingStatus
	RetryCount       int
	StartedAt        time.Time
	CompletedAt      *time.Time
	RawData          []byte
	Fallback         bool
}

// OverrideFlag mirrors spec.md §3's OverrideFlag entity.
type OverrideFlag struct {
	ID        int64
	MessageID string
	FlagType  FlagType
	Reason    string
	AccountID int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DomainCacheEntry mirrors spec.md §3's DomainCache entity.
type DomainCacheEntry struct {
	Domain         string
	Reputation     string
	CountryCode    string
	CountryName    string
	RiskScore      float64
	Registrar      string
	LastAnalysedAt time.Time
}

// GeoCacheEntry caches a single IP's geographic verdict.
type GeoCacheEntry struct {
	IP             string
	CountryCode    string
	CountryName    string
	RiskScore      float64
	LastAnalysedAt time.Time
}

// Feedback mirrors spec.md §3's Feedback entity.
type Feedback struct {
	ID                  int64
	ProcessedMessageID  int64
	OriginalCategory    string
	CorrectedCategory   string
	ConfidenceRating    float64
	Comment             string
	Incorporated        bool
	CreatedAt           time.Time
}

// ModelKind is a closed enumeration of trainable model kinds
// (spec.md §3).
type ModelKind string

const (
	ModelNaiveBayes   ModelKind = "naive_bayes"
	ModelRandomForest ModelKind = "random_forest"
	ModelKeyword      ModelKind = "keyword"
	ModelEnsemble     ModelKind = "ensemble"
	ModelTaxonomyV2   ModelKind = "taxonomy_v2"
)

// ModelVersion mirrors spec.md §3's ModelVersion entity.
type ModelVersion struct {
	ID              int64
	UUID            string
	Kind            ModelKind
	Artifact        []byte
	TrainingSetSize int
	OfflineAccuracy float64
	CreatedAt       time.Time
	Live            bool
}

// SubcategoryPattern is one row of the pattern table spec.md §9
// prescribes in place of ad-hoc regex chains.
type SubcategoryPattern struct {
	ID          int64
	Category    string
	Subcategory string
	Pattern     string
	Weight      float64
	Kind        string
}
