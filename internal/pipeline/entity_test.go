package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntitiesDependencyOrder(t *testing.T) {
	order := map[string]int{}
	for i, e := range Entities() {
		order[e.Name] = i
	}

	// Facts must come after every dimension they reference, because the
	// surrogate-key lookup only sees rows curated before the fact batch
	// runs.
	assert.Less(t, order["students"], order["enrollments"])
	assert.Less(t, order["courses"], order["enrollments"])
	assert.Less(t, order["students"], order["submissions"])
	assert.Less(t, order["assignments"], order["submissions"])
	assert.Less(t, order["students"], order["activity"])
	assert.Less(t, order["courses"], order["activity"])
}

func TestEntitySpecsWellFormed(t *testing.T) {
	for _, e := range Entities() {
		t.Run(e.Name, func(t *testing.T) {
			require.NotEmpty(t, e.Fields)
			assert.Equal(t, e.BusinessKey, e.Fields[0].Column,
				"first field must be the business key")
			assert.NotEmpty(t, e.RawTable)
			assert.NotEmpty(t, e.TargetTable)

			seen := map[string]bool{}
			for _, f := range e.Fields {
				assert.False(t, seen[f.Column], "duplicate column %s", f.Column)
				seen[f.Column] = true
				assert.NotEmpty(t, f.Type)
			}
		})
	}
}

func TestEntityByName(t *testing.T) {
	spec, ok := EntityByName("activity")
	require.True(t, ok)
	assert.Equal(t, LoadAppend, spec.Mode)

	_, ok = EntityByName("bogus")
	assert.False(t, ok)
}
