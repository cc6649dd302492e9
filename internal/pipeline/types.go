package pipeline

// Reason explains why an asset was flagged for processing. The enum is
// closed: classification checks the reasons in declared order and the
// first match wins.
type Reason int

const (
	// ReasonMissingProcessed means no processed artifact exists for the asset
	ReasonMissingProcessed Reason = iota
	// ReasonOriginalChanged means the original's checksum no longer matches
	// the ledger (including assets with no ledger entry at all)
	ReasonOriginalChanged
	// ReasonProcessedChanged means the processed artifact was modified or
	// corrupted externally while the original is untouched
	ReasonProcessedChanged
)

// String returns the log-friendly name of the reason
func (r Reason) String() string {
	switch r {
	case ReasonMissingProcessed:
		return "missing-processed"
	case ReasonOriginalChanged:
		return "original-changed"
	case ReasonProcessedChanged:
		return "processed-changed"
	default:
		return "unknown"
	}
}

// Task is one asset flagged for processing
type Task struct {
	Path   string // relative path, original-tree-rooted
	Reason Reason
}

// Failure records a per-asset transform error under the skip policy
type Failure struct {
	Task Task
	Err  error
}

// Report summarizes one run for the interface layer
type Report struct {
	OrphansRemoved []string  // ledger entries pruned by the reconciler
	Flagged        []Task    // assets classified as needing processing
	Committed      []string  // assets whose ledger entries were updated
	Failed         []Failure // assets skipped due to transform errors (skip policy only)
	UpToDate       int       // assets excluded from all work this run
}
