package ledger

// Storage is a growable fixed-capacity byte region holding the encoded
// ledger state. Reads always return the full region; writes must cover
// it exactly, so a caller that changes the encoded length resizes first.
type Storage interface {
	// Read returns a copy of the region's current contents. A region that
	// has never been written reads as empty.
	Read() ([]byte, error)

	// Resize sets the region's capacity to exactly n bytes. Growth zero-fills
	// the tail; shrinking truncates it.
	Resize(n int) error

	// Write replaces the region's contents. len(b) must equal the current
	// capacity or the write is rejected.
	Write(b []byte) error
}
