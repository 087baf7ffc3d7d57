// Package csvgrid turns uploaded CSV text into a grid of string cells.
//
// Parsing is a plain split on newlines and commas. Quoted fields, escaped
// delimiters and embedded newlines are not supported.
package csvgrid

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/pzerone/webvirt-wizard/internal/apperr"
)

const MediaType = "text/csv"

const invalidFileMessage = "Please upload a valid CSV file."

// Grid is an ordered list of rows, header first. Rows may be ragged.
type Grid [][]string

func (g Grid) Header() []string {
	if len(g) == 0 {
		return nil
	}
	return g[0]
}

func (g Grid) Rows() [][]string {
	if len(g) < 2 {
		return nil
	}
	return g[1:]
}

// Parse splits text into lines and each line into comma separated cells.
// Empty input yields a single empty row.
func Parse(text string) Grid {
	lines := strings.Split(text, "\n")
	grid := make(Grid, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		grid = append(grid, strings.Split(line, ","))
	}
	return grid
}

// CheckMediaType rejects anything whose declared type is not text/csv.
func CheckMediaType(declared string) error {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil || !strings.EqualFold(mediaType, MediaType) {
		return apperr.Field(apperr.Ingestion, "file", invalidFileMessage)
	}
	return nil
}

// DeclaredMediaType returns the type a chosen file claims to be: the upload's
// own Content-Type when it carries one, otherwise the type registered for
// the file extension.
func DeclaredMediaType(filename, header string) string {
	if header != "" && header != "application/octet-stream" {
		return header
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".csv" {
		return MediaType
	}
	return mime.TypeByExtension(ext)
}

// Ingest checks the declared type of a chosen file and parses its content.
func Ingest(declared string, data []byte) (Grid, error) {
	if err := CheckMediaType(declared); err != nil {
		return nil, err
	}
	return Parse(string(data)), nil
}
