package ledger

import "sort"

// Entry records the last-known-good checksums for one asset
type Entry struct {
	Original  string `json:"original"`  // checksum of the original asset
	Processed string `json:"processed"` // checksum of the processed artifact
}

// Ledger maps relative asset paths to their recorded checksums. An entry
// exists iff the asset was successfully processed and committed in a prior
// run; it does not guarantee the processed artifact still exists on disk.
type Ledger map[string]Entry

// New creates an empty ledger
func New() Ledger {
	return make(Ledger)
}

// SortedPaths returns all ledger keys in lexicographic order
func (l Ledger) SortedPaths() []string {
	paths := make([]string, 0, len(l))
	for path := range l {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
