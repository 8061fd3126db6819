package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	t.Run("PlainText", func(t *testing.T) {
		text, err := Text("notes.txt", []byte("hello world"))
		require.NoError(t, err)
		assert.Equal(t, "hello world", text)
	})

	t.Run("Markdown", func(t *testing.T) {
		text, err := Text("README.md", []byte("# Title\n\nbody"))
		require.NoError(t, err)
		assert.Equal(t, "# Title\n\nbody", text)
	})

	t.Run("ExtensionCaseInsensitive", func(t *testing.T) {
		text, err := Text("NOTES.TXT", []byte("x"))
		require.NoError(t, err)
		assert.Equal(t, "x", text)
	})

	t.Run("Unsupported", func(t *testing.T) {
		_, err := Text("slides.pptx", []byte("x"))

		var uerr *ErrUnsupportedFileType
		require.ErrorAs(t, err, &uerr)
		assert.Equal(t, ".pptx", uerr.Extension)
	})

	t.Run("CorruptPDF", func(t *testing.T) {
		_, err := Text("broken.pdf", []byte("not a pdf"))
		require.Error(t, err)
	})
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a.txt"))
	assert.True(t, Supported("a.md"))
	assert.True(t, Supported("a.pdf"))
	assert.False(t, Supported("a.docx"))
	assert.False(t, Supported("noext"))
}
