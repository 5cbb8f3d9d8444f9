package metadata

import (
	"encoding/csv"
	"io"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/agentstation/oztfix/pkg/errors"
	"github.com/agentstation/oztfix/pkg/types"
)

// tableSpec describes one source table on disk.
type tableSpec struct {
	source    types.SourceID
	path      string
	delimiter rune
	required  []string
}

// row is a single data row with access by column name.
type row struct {
	header []string
	index  map[string]int
	values []string
	line   int
}

// Get returns the value of the named column, or "" when absent.
func (r row) Get(name string) string {
	if i, ok := r.index[name]; ok {
		return r.values[i]
	}
	return ""
}

// readTable streams the rows of a delimited table to fn. A leading UTF-8 or
// UTF-16 byte order mark is honoured. Every row must have as many fields as the header.
func readTable(fs afero.Fs, spec tableSpec, fn func(row) error) (int, error) {
	f, err := fs.Open(spec.path)
	if err != nil {
		return 0, errors.NewSourceLoadError(string(spec.source), spec.path, err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.Comma = spec.delimiter
	// quotes inside unquoted fields are literal text, as in the exports
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err == io.EOF {
		return 0, &errors.SourceLoadError{
			Source: string(spec.source),
			Path:   spec.path,
			Err:    errors.New("table is empty"),
		}
	}
	if err != nil {
		return 0, wrapReadError(spec, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	for _, col := range spec.required {
		if _, ok := index[col]; !ok {
			return 0, &errors.SourceLoadError{
				Source: string(spec.source),
				Path:   spec.path,
				Column: col,
			}
		}
	}

	count := 0
	for {
		values, err := reader.Read()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, wrapReadError(spec, err)
		}

		line, _ := reader.FieldPos(0)
		if err := fn(row{header: header, index: index, values: values, line: line}); err != nil {
			return count, err
		}
		count++
	}
}

// wrapReadError converts a CSV error into a SourceLoadError carrying its line.
func wrapReadError(spec tableSpec, err error) error {
	loadErr := &errors.SourceLoadError{
		Source: string(spec.source),
		Path:   spec.path,
		Err:    err,
	}
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		loadErr.Line = parseErr.Line
		loadErr.Err = parseErr.Err
	}
	return loadErr
}
