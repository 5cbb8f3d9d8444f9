// Package types provides shared type definitions used across the oztfix packages.
//
// This package contains fundamental types like SourceID and ResourceType that are
// referenced by multiple packages (metadata, authority, provenance, reconciler) to
// avoid import cycles while maintaining type safety.
//
//nolint:revive // Package name 'types' is appropriate for common type definitions
package types
