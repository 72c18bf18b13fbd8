package feedback

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractText returns the plain text of every page of a PDF. Pages that
// fail to decode are skipped.
func ExtractText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to read PDF text: %v", r)
		}
	}()

	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var b strings.Builder
	totalPages := pdfReader.NumPage()
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			Logger.Warn("Failed to extract text from page", "page", pageNum, "error", err)
			continue
		}
		b.WriteString(pageText)
	}
	return strings.TrimSpace(b.String()), nil
}
