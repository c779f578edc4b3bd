package index

import (
	"os"

	ckerrors "github.com/semcs/ck/internal/errors"
	"github.com/semcs/ck/internal/pdfx"
)

// readFileContent returns the indexable text of a file. PDFs run through the
// extractor service with the .ck/pdf_cache; everything else is read verbatim.
func readFileContent(absRoot, file string) (string, error) {
	if pdfx.IsPDF(file) {
		return pdfx.ExtractText(absRoot, file)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", ckerrors.Wrap(ckerrors.KindIO, err, "read %s", file)
	}
	return string(data), nil
}
