// Package metadata holds the per-row side table of the vector index.
//
// List order is load-bearing: entry i describes exactly the vector stored at
// row i of the index. The store package owns the pairing; this package only
// provides the row-aligned representation and derived views.
package metadata

// Entry describes one indexed chunk.
// The JSON field names are the on-disk artifact format.
type Entry struct {
	Document string `json:"document"` // original filename
	Text     string `json:"text"`     // raw chunk text
	DocID    string `json:"doc_id"`   // owning document id
}

// List is an ordered sequence of entries, one per index row.
type List []Entry

// DocumentInfo is a derived per-document view of the metadata.
type DocumentInfo struct {
	DocID    string `json:"doc_id"`
	Filename string `json:"filename"`
}

// Documents returns one entry per distinct document id, in first-seen order.
// There is no separate document record; this view is the document listing.
func (l List) Documents() []DocumentInfo {
	seen := make(map[string]bool, len(l))

	var docs []DocumentInfo
	for _, e := range l {
		if seen[e.DocID] {
			continue
		}
		seen[e.DocID] = true
		docs = append(docs, DocumentInfo{DocID: e.DocID, Filename: e.Document})
	}

	return docs
}

// Contains reports whether any entry belongs to the given document id.
func (l List) Contains(docID string) bool {
	for _, e := range l {
		if e.DocID == docID {
			return true
		}
	}
	return false
}

// Rows returns the set of row positions whose entry matches the predicate.
func (l List) Rows(match func(Entry) bool) *RowSet {
	rs := NewRowSet()
	for i, e := range l {
		if match(e) {
			rs.Add(uint32(i))
		}
	}
	return rs
}

// RowsOfDocument returns the set of row positions owned by docID.
func (l List) RowsOfDocument(docID string) *RowSet {
	return l.Rows(func(e Entry) bool { return e.DocID == docID })
}

// Select returns the entries at the given row positions, in ascending row
// order. Rows beyond the list length are ignored.
func (l List) Select(rows *RowSet) List {
	out := make(List, 0, rows.Cardinality())
	for row := range rows.Iterator() {
		if int(row) >= len(l) {
			break
		}
		out = append(out, l[row])
	}
	return out
}

// Texts returns the chunk texts in row order.
func (l List) Texts() []string {
	texts := make([]string, len(l))
	for i, e := range l {
		texts[i] = e.Text
	}
	return texts
}
