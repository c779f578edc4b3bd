package pdfx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("doc.pdf"))
	assert.True(t, IsPDF("DOC.PDF"))
	assert.False(t, IsPDF("doc.txt"))
	assert.False(t, IsPDF("pdf"))
}

func TestExtractTextRejectsNonPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0o644))

	_, err := ExtractText(dir, path)
	assert.Error(t, err)
}

func TestExtractTextMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := ExtractText(dir, filepath.Join(dir, "absent.pdf"))
	assert.Error(t, err)
}
