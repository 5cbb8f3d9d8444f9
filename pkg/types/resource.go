package types

// ResourceType identifies the kind of record being merged or tracked.
type ResourceType string

const (
	// ResourceTypeDocument is a whole document, keyed by its edition-suffixed sourceRef.
	ResourceTypeDocument ResourceType = "document"

	// ResourceTypeEmbeddedTitle is an independent title bundled inside a document.
	ResourceTypeEmbeddedTitle ResourceType = "embedded-title"
)

// String returns the string representation of a resource type.
func (rt ResourceType) String() string {
	return string(rt)
}
