package config

// DeletionStrategy identifies how the IMAP adapter should realize a
// delete action for a given provider (spec.md §4.1). Represented as a
// closed enumeration per spec.md §9 — unknown values are a
// configuration error at load time, never a runtime possibility.
type DeletionStrategy string

const (
	// DeletionBulkExpunge issues a bulk STORE +FLAGS (\Deleted) across
	// the whole UID set followed by a single EXPUNGE. Cheapest, but
	// unsafe on providers where EXPUNGE also removes other
	// \Deleted-flagged messages left behind by other clients.
	DeletionBulkExpunge DeletionStrategy = "bulk_expunge"

	// DeletionUIDExpunge issues UID EXPUNGE per UID (RFC 4315),
	// avoiding collateral damage to unrelated \Deleted messages.
	DeletionUIDExpunge DeletionStrategy = "uid_expunge"
)

// ProviderTuning holds the per-provider defaults consulted when an
// account does not set an explicit override (spec.md §9 Open Question 1).
type ProviderTuning struct {
	BatchSize           int
	ConfidenceThreshold float64
	Deletion            DeletionStrategy
	SkipSeenMarking     bool
}

// knownProviders is the closed set of provider tags sentryd understands.
// Loading a config with any other provider tag is a ConfigError.
var knownProviders = map[string]ProviderTuning{
	"gmail": {
		BatchSize:           200,
		ConfidenceThreshold: 0.85,
		Deletion:            DeletionBulkExpunge,
		SkipSeenMarking:     false,
	},
	"icloud": {
		BatchSize:           50,
		ConfidenceThreshold: 0.80,
		Deletion:            DeletionUIDExpunge,
		SkipSeenMarking:     true,
	},
	"outlook": {
		BatchSize:           100,
		ConfidenceThreshold: 0.75,
		Deletion:            DeletionUIDExpunge,
		SkipSeenMarking:     false,
	},
	"generic": {
		BatchSize:           100,
		ConfidenceThreshold: 0.75,
		Deletion:            DeletionUIDExpunge,
		SkipSeenMarking:     false,
	},
}

// ProviderDefaults returns the tuning table entry for a provider tag.
// Callers must validate the tag against knownProviders first (Validate
// does this at config-load time); an unknown tag here returns the
// generic defaults rather than panicking, since this may run before
// validation during defaulting.
func ProviderDefaults(provider string) ProviderTuning {
	if t, ok := knownProviders[provider]; ok {
		return t
	}
	return knownProviders["generic"]
}
