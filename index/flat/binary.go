package flat

import (
	"io"

	"github.com/aggroso/knowspace/index"
	"github.com/aggroso/knowspace/persistence"
)

// WriteTo writes the index to w in the binary artifact format.
func (f *Flat) WriteTo(w io.Writer) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return persistence.WriteIndex(w, f.vectors, f.opts.Dimension, f.opts.Compression)
}

// Encode returns the serialized artifact bytes.
func (f *Flat) Encode() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return persistence.EncodeIndex(f.vectors, f.opts.Dimension, f.opts.Compression)
}

// Read reads an index artifact from r.
// If opts set a Dimension, it must match the stored one.
func Read(r io.Reader, optFns ...func(o *Options)) (*Flat, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	rows, dim, err := persistence.ReadIndex(r)
	if err != nil {
		return nil, err
	}

	if opts.Dimension == 0 {
		opts.Dimension = dim
	} else if opts.Dimension != dim {
		return nil, &index.ErrDimensionMismatch{Expected: opts.Dimension, Actual: dim}
	}

	f, err := New(func(o *Options) { *o = opts })
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if _, err := f.Insert(row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// SaveToFile atomically writes the index artifact to a file.
func (f *Flat) SaveToFile(filename string) error {
	return persistence.SaveToFile(filename, func(w io.Writer) error {
		return f.WriteTo(w)
	})
}

// LoadFromFile loads an index artifact from a file.
func LoadFromFile(filename string, optFns ...func(o *Options)) (*Flat, error) {
	var f *Flat
	err := persistence.LoadFromFile(filename, func(r io.Reader) error {
		var err error
		f, err = Read(r, optFns...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}
