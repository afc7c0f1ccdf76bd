package buffer

// Snapshot is an immutable materialization of a buffer at one revision.
// It is safe to share between goroutines.
type Snapshot struct {
	text     string
	revision string
	lines    int
}

// Text returns the snapshot content.
func (s Snapshot) Text() string {
	return s.text
}

// Revision returns the buffer revision the snapshot was taken at.
func (s Snapshot) Revision() string {
	return s.revision
}

// LineCount returns the number of lines in the snapshot.
func (s Snapshot) LineCount() int {
	return s.lines
}
