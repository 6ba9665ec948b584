package extract

import (
	"bytes"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// plainTextExtensions covers documents plus the code and config formats
// that are plain text on disk.
var plainTextExtensions = []string{
	".txt", ".md",
	".py", ".js", ".ts", ".jsx", ".tsx",
	".java", ".c", ".cpp", ".h", ".hpp",
	".go", ".rs", ".rb", ".php",
	".css", ".scss", ".less",
	".sh", ".bash", ".zsh", ".ps1",
	".json", ".yaml", ".yml", ".toml",
	".xml", ".html", ".htm",
	".csv", ".ini", ".cfg", ".conf",
	".rst", ".tex", ".log",
}

// PlainTextStrategy reads text files, trying UTF-8, UTF-8 with BOM,
// Latin-1, and Windows-1252 in that order. The first decoder that handles
// the whole file wins.
type PlainTextStrategy struct{}

func (s *PlainTextStrategy) SupportedExtensions() []string {
	return plainTextExtensions
}

func (s *PlainTextStrategy) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	return DecodeText(path, data)
}

// DecodeText runs the encoding ladder over raw bytes. Exposed so the
// indexing driver can reuse it as the fallback for text-like files not
// owned by a specialized strategy.
func DecodeText(path string, data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	if bytes.HasPrefix(data, utf8BOM) {
		trimmed := bytes.TrimPrefix(data, utf8BOM)
		if utf8.Valid(trimmed) {
			return string(trimmed), nil
		}
	}
	if decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data); err == nil {
		return string(decoded), nil
	}
	if decoded, err := charmap.Windows1252.NewDecoder().Bytes(data); err == nil {
		return string(decoded), nil
	}
	return "", &ExtractionError{Path: path, Err: fmt.Errorf("no supported encoding could decode the file")}
}
