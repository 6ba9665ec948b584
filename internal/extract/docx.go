package extract

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// DocxStrategy extracts text from Word documents: paragraphs and table
// rows in document order, with cells joined by " | " and rows by line
// breaks.
type DocxStrategy struct{}

func (s *DocxStrategy) SupportedExtensions() []string {
	return []string{".docx"}
}

func (s *DocxStrategy) Extract(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	defer r.Close()

	text, err := flattenDocumentXML(r.Editable().GetContent())
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	return text, nil
}

// flattenDocumentXML walks word/document.xml and collects paragraph and
// table text. Paragraphs inside table cells belong to the cell, not the
// body.
func flattenDocumentXML(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))

	var (
		parts      []string
		paragraph  strings.Builder
		cell       strings.Builder
		row        []string
		tableDepth int
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "tbl":
				tableDepth++
			case "tr":
				row = row[:0]
			case "tc":
				cell.Reset()
			case "t":
				var text string
				if err := dec.DecodeElement(&text, &el); err != nil {
					return "", err
				}
				if tableDepth > 0 {
					cell.WriteString(text)
				} else {
					paragraph.WriteString(text)
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "tbl":
				tableDepth--
			case "tc":
				if trimmed := strings.TrimSpace(cell.String()); trimmed != "" {
					row = append(row, trimmed)
				}
			case "tr":
				if len(row) > 0 {
					parts = append(parts, strings.Join(row, " | "))
				}
			case "p":
				if tableDepth == 0 {
					if trimmed := strings.TrimSpace(paragraph.String()); trimmed != "" {
						parts = append(parts, trimmed)
					}
					paragraph.Reset()
				} else {
					// Paragraph breaks inside a cell become spaces.
					cell.WriteString(" ")
				}
			}
		}
	}

	return strings.Join(parts, "\n"), nil
}
