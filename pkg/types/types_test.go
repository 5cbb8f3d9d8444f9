package types_test

import (
	"testing"

	"github.com/agentstation/oztfix/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestSourceIDs(t *testing.T) {
	assert.Equal(t, []types.SourceID{types.TitlesID, types.CuratedID, types.DependentTitlesID}, types.SourceIDs())
	for _, id := range types.SourceIDs() {
		assert.True(t, id.IsValid(), id.String())
	}
	assert.False(t, types.SourceID("models_dev").IsValid())
}

func TestResourceTypeString(t *testing.T) {
	assert.Equal(t, "embedded-title", types.ResourceTypeEmbeddedTitle.String())
	assert.Equal(t, "document", types.ResourceTypeDocument.String())
}
