// Package constants provides shared constants used throughout the oztfix codebase.
// This includes metadata table locations, identifier conventions, file permissions,
// and other values that should be consistent across the application.
package constants

import "time"

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Metadata table locations, relative to the data directory
// (a clone of the nederlab-linguistic-enrichment repository).
const (
	// TitleTablePath is the primary per-document metadata table
	TitleTablePath = "metadata/from_sql/NLTitle.csv"

	// CuratedTablePath is the curated witness year override table
	CuratedTablePath = "metadata/witnessyears-all-extended.tsv"

	// DependentTitleTablePath is the embedded (dependent) title metadata table
	DependentTitleTablePath = "metadata/from_sql/NLDependentTitle.csv"
)

// Identifier conventions
const (
	// EditionSuffix pairs a bare sourceRef with its edition marker to form a document key
	EditionSuffix = "_01"

	// SequenceDigits is the zero padding width of an embedded title sequence number
	SequenceDigits = 4

	// SequenceSuffixLength is the length of the "_NNNN" suffix of an embedded title key
	SequenceSuffixLength = SequenceDigits + 1

	// TextSuffix is appended to an embedded title key to form its division identifier
	TextSuffix = ".text"

	// MetadataSuffix is appended to an embedded title key to form its metadata block identifier
	MetadataSuffix = ".metadata"

	// NativeMetadataType is the metadata block type for key/value metadata
	NativeMetadataType = "native"
)

// Document file extensions
const (
	// XMLExtension is the extension of uncompressed documents
	XMLExtension = ".xml"

	// GzipXMLExtension is the extension of gzip-compressed documents
	GzipXMLExtension = ".xml.gz"
)

// Processor identification written into document provenance
const (
	// ProcessorName is the name recorded in a document's provenance
	ProcessorName = "oztfix"

	// ProcessorType is the FoLiA processor type for automatic tools
	ProcessorType = "auto"
)

// Format constants
const (
	// TimeFormatISO8601 is the ISO 8601 time format
	TimeFormatISO8601 = time.RFC3339

	// TimeFormatFilename is the format used in generated filenames
	TimeFormatFilename = "20060102-150405"
)

// Application metadata
const (
	// AppName is the application name
	AppName = "oztfix"

	// EnvPrefix is the prefix of environment variables read by the CLI
	EnvPrefix = "OZTFIX"

	// ConfigFileName is the base name of the optional configuration file
	ConfigFileName = ".oztfix"
)
