package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleList() List {
	return List{
		{Document: "report.pdf", Text: "a", DocID: "d1"},
		{Document: "report.pdf", Text: "b", DocID: "d1"},
		{Document: "notes.txt", Text: "c", DocID: "d2"},
		{Document: "report.pdf", Text: "d", DocID: "d1"},
	}
}

func TestDocuments(t *testing.T) {
	docs := sampleList().Documents()

	require.Len(t, docs, 2)
	assert.Equal(t, DocumentInfo{DocID: "d1", Filename: "report.pdf"}, docs[0])
	assert.Equal(t, DocumentInfo{DocID: "d2", Filename: "notes.txt"}, docs[1])
}

func TestDocumentsEmpty(t *testing.T) {
	assert.Empty(t, List{}.Documents())
}

func TestContains(t *testing.T) {
	l := sampleList()
	assert.True(t, l.Contains("d1"))
	assert.True(t, l.Contains("d2"))
	assert.False(t, l.Contains("d3"))
}

func TestRowsOfDocument(t *testing.T) {
	l := sampleList()

	rows := l.RowsOfDocument("d1")
	assert.Equal(t, uint64(3), rows.Cardinality())
	assert.True(t, rows.Contains(0))
	assert.True(t, rows.Contains(1))
	assert.False(t, rows.Contains(2))
	assert.True(t, rows.Contains(3))
}

func TestComplementAndSelect(t *testing.T) {
	l := sampleList()

	removed := l.RowsOfDocument("d1")
	retained := removed.Complement(uint64(len(l)))

	require.Equal(t, uint64(1), retained.Cardinality())
	assert.True(t, retained.Contains(2))

	kept := l.Select(retained)
	require.Len(t, kept, 1)
	assert.Equal(t, "c", kept[0].Text)
	assert.Equal(t, "d2", kept[0].DocID)
}

func TestSelectPreservesRowOrder(t *testing.T) {
	l := sampleList()

	rs := NewRowSet()
	rs.Add(3)
	rs.Add(0)
	rs.Add(2)

	kept := l.Select(rs)
	require.Len(t, kept, 3)
	assert.Equal(t, []string{"a", "c", "d"}, List(kept).Texts())
}

func TestRowSetEmpty(t *testing.T) {
	rs := NewRowSet()
	assert.True(t, rs.IsEmpty())
	assert.Zero(t, rs.Cardinality())

	rs.Add(7)
	assert.False(t, rs.IsEmpty())
}

func TestTexts(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c", "d"}, sampleList().Texts())
}
