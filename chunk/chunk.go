// Package chunk splits extracted document text into overlapping fixed-size
// windows for retrieval.
//
// Chunking is deliberately a pure character-offset policy: chunk k spans
// [k*stride, k*stride+size) of the input where stride = size - overlap.
// Retrieval quality comes from the embedding and the index, not from clever
// boundary placement.
package chunk

import "fmt"

// Default window parameters, matching the store's ingestion policy.
const (
	DefaultSize    = 500
	DefaultOverlap = 100
)

// Splitter splits text into overlapping windows.
type Splitter struct {
	size    int
	overlap int
}

// Options contains configuration options for a Splitter.
type Options struct {
	// Size is the target chunk length in bytes.
	Size int

	// Overlap is the trailing overlap with the previous chunk.
	Overlap int
}

// DefaultOptions contains the default configuration options for a Splitter.
var DefaultOptions = Options{
	Size:    DefaultSize,
	Overlap: DefaultOverlap,
}

// NewSplitter creates a new Splitter.
// The stride (size - overlap) must be >= 1 so the split always terminates.
func NewSplitter(optFns ...func(o *Options)) (*Splitter, error) {
	opts := DefaultOptions

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Size <= 0 {
		return nil, fmt.Errorf("chunk: size must be positive, got %d", opts.Size)
	}
	if opts.Overlap < 0 {
		return nil, fmt.Errorf("chunk: overlap must be non-negative, got %d", opts.Overlap)
	}
	if opts.Size-opts.Overlap < 1 {
		return nil, fmt.Errorf("chunk: stride must be >= 1, got size=%d overlap=%d", opts.Size, opts.Overlap)
	}

	return &Splitter{size: opts.Size, overlap: opts.Overlap}, nil
}

// Size returns the configured chunk size.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the configured chunk overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split splits text into overlapping chunks, clipped at the text's end.
// Empty input yields no chunks.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}

	stride := s.size - s.overlap

	var chunks []string
	for start := 0; start < len(text); start += stride {
		end := start + s.size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		// The last chunk ends at the text's end. A further window would
		// hold only bytes the overlap already covered.
		if end == len(text) {
			break
		}
	}

	return chunks
}
