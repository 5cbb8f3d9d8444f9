package metadata

import (
	"strings"

	"github.com/agentstation/oztfix/pkg/types"
)

// Known column names.
const (
	FieldSourceRef         = "sourceRef"
	FieldNederlabID        = "nederlabID"
	FieldTitle             = "title"
	FieldIngestTime        = "ingestTime"
	FieldUpdateTime        = "updateTime"
	FieldProcessingMethod  = "processingMethod"
	FieldWitnessYearMin    = "witnessYearMin"
	FieldWitnessYearMax    = "witnessYearMax"
	FieldWitnessYearApprox = "witnessYearApprox"
	FieldCurated           = "curated"
	FieldFileID            = "fileID"
)

// knownFields lists the fixed record fields in output order.
var knownFields = []string{
	FieldSourceRef,
	FieldNederlabID,
	FieldTitle,
	FieldIngestTime,
	FieldUpdateTime,
	FieldProcessingMethod,
	FieldWitnessYearMin,
	FieldWitnessYearMax,
	FieldWitnessYearApprox,
}

// Field is a single named metadata value.
type Field struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Record is one row of a metadata table: a document or an embedded title.
type Record struct {
	ID                string `yaml:"id"` // Lookup key
	SourceRef         string `yaml:"sourceRef"`
	NederlabID        string `yaml:"nederlabID"`
	Title             string `yaml:"title,omitempty"`
	IngestTime        string `yaml:"ingestTime,omitempty"`
	UpdateTime        string `yaml:"updateTime,omitempty"`
	ProcessingMethod  string `yaml:"processingMethod,omitempty"`
	WitnessYearMin    string `yaml:"witnessYearMin,omitempty"`
	WitnessYearMax    string `yaml:"witnessYearMax,omitempty"`
	WitnessYearApprox string `yaml:"witnessYearApprox,omitempty"`
	Curated           bool   `yaml:"curated,omitempty"`

	// Extra holds unrecognised columns in table order.
	Extra []Field `yaml:"extra,omitempty"`

	source  types.SourceID
	origins map[string]types.SourceID
}

// newRecord builds a record from a table row.
func newRecord(id string, source types.SourceID, r row) *Record {
	rec := &Record{ID: id, source: source}
	for i, name := range r.header {
		if name == "" {
			continue
		}
		rec.Set(name, r.values[i])
	}
	rec.NederlabID = strings.Trim(rec.NederlabID, "'")
	return rec
}

// Source returns the table that supplied the named field.
func (r *Record) Source(name string) types.SourceID {
	if src, ok := r.origins[name]; ok {
		return src
	}
	return r.source
}

// Get returns the value of a field, or "" when the record lacks it.
func (r *Record) Get(name string) string {
	if p := r.fixed(name); p != nil {
		return *p
	}
	if name == FieldCurated {
		if r.Curated {
			return "1"
		}
		return ""
	}
	for _, f := range r.Extra {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// Set assigns a field value, appending unknown names to Extra.
func (r *Record) Set(name, value string) {
	if p := r.fixed(name); p != nil {
		*p = value
		return
	}
	if name == FieldCurated {
		r.Curated = value != "" && value != "0"
		return
	}
	for i, f := range r.Extra {
		if f.Name == name {
			r.Extra[i].Value = value
			return
		}
	}
	r.Extra = append(r.Extra, Field{Name: name, Value: value})
}

// override sets a field and remembers which table supplied it.
func (r *Record) override(name, value string, source types.SourceID) {
	r.Set(name, value)
	if r.origins == nil {
		r.origins = make(map[string]types.SourceID)
	}
	r.origins[name] = source
}

// Fields returns every field in a stable order: known fields, unrecognised
// columns in table order, then the curated flag when set.
func (r *Record) Fields() []Field {
	fields := make([]Field, 0, len(knownFields)+len(r.Extra)+1)
	for _, name := range knownFields {
		fields = append(fields, Field{Name: name, Value: r.Get(name)})
	}
	fields = append(fields, r.Extra...)
	if r.Curated {
		fields = append(fields, Field{Name: FieldCurated, Value: "1"})
	}
	return fields
}

func (r *Record) fixed(name string) *string {
	switch name {
	case FieldSourceRef:
		return &r.SourceRef
	case FieldNederlabID:
		return &r.NederlabID
	case FieldTitle:
		return &r.Title
	case FieldIngestTime:
		return &r.IngestTime
	case FieldUpdateTime:
		return &r.UpdateTime
	case FieldProcessingMethod:
		return &r.ProcessingMethod
	case FieldWitnessYearMin:
		return &r.WitnessYearMin
	case FieldWitnessYearMax:
		return &r.WitnessYearMax
	case FieldWitnessYearApprox:
		return &r.WitnessYearApprox
	default:
		return nil
	}
}
