// Package pdfx extracts text from PDF files for indexing. Extracted text is
// cached under .ck/pdf_cache/<sha256>.txt keyed by content hash, so repeated
// indexing passes skip the extraction cost.
package pdfx

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/semcs/ck/internal/core"
	ckerrors "github.com/semcs/ck/internal/errors"
)

// CacheDirName is the extraction cache directory under .ck/.
const CacheDirName = "pdf_cache"

// IsPDF reports whether a path looks like a PDF file.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// ExtractText returns the text content of a PDF, consulting the cache first.
// root locates the .ck/ cache; pass "" to bypass caching.
func ExtractText(root, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ckerrors.Wrap(ckerrors.KindIO, err, "read pdf")
	}

	var cachePath string
	if root != "" {
		sum := sha256.Sum256(data)
		cachePath = filepath.Join(root, core.IndexDirName, CacheDirName, hex.EncodeToString(sum[:])+".txt")
		if cached, err := os.ReadFile(cachePath); err == nil {
			return string(cached), nil
		}
	}

	text, err := extract(path)
	if err != nil {
		return "", err
	}

	if cachePath != "" {
		if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err == nil {
			tmp := cachePath + ".tmp"
			if err := os.WriteFile(tmp, []byte(text), 0o644); err == nil {
				_ = os.Rename(tmp, cachePath)
			}
		}
	}

	return text, nil
}

func extract(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", ckerrors.Wrap(ckerrors.KindParse, err, "open pdf %s", path)
	}
	defer func() { _ = f.Close() }()

	var b strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	return b.String(), nil
}
