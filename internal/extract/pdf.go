package extract

import (
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFStrategy extracts text from PDF files page by page. Non-empty pages
// are concatenated with a blank-line separator.
type PDFStrategy struct{}

func (s *PDFStrategy) SupportedExtensions() []string {
	return []string{".pdf"}
}

func (s *PDFStrategy) Extract(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	var pages []string
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return "", &ExtractionError{Path: path, Err: err}
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}

	return strings.Join(pages, "\n\n"), nil
}
