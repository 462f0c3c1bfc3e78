package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKeepsListsAndCollapsesBlankRuns(t *testing.T) {
	html := `<h2>Ingredients</h2><ul><li>2 eggs</li><li>1 tbsp butter</li></ul><p><br><br><br></p><p>Whisk the eggs.</p>`

	got, err := New().Normalize(html)
	require.NoError(t, err)

	assert.Contains(t, got, "## Ingredients")
	assert.Contains(t, got, "- 2 eggs\n- 1 tbsp butter")
	assert.Contains(t, got, "Whisk the eggs.")
	assert.NotContains(t, got, "\n\n\n")
	assert.Equal(t, strings.TrimSpace(got), got)
}

