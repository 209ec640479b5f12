package emitter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/json-schema-faker/json-schema-to/internal/model"
	"github.com/json-schema-faker/json-schema-to/internal/repository"
)

func TestUnique(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"A", "B"}, Unique([]string{"A", "B"}))
	assert.Equal(t, []string{"A", "A_2", "A_3"}, Unique([]string{"A", "A", "A"}))
	// a generated suffix never takes a name that is already in the list
	assert.Equal(t, []string{"A", "A_3", "A_2"}, Unique([]string{"A", "A", "A_2"}))
}

func TestEmpty(t *testing.T) {
	t.Parallel()

	repo := &repository.Repository{
		Models:  []*model.Model{{Name: "Blank"}, {Name: "Full", Fields: []model.Field{{Name: "x", Schema: "string"}}}},
		Imports: []repository.Import{{Name: "Far", From: "Other", Empty: true}},
	}
	for name, want := range map[string]bool{"Blank": true, "Full": false, "Far": true, "string": false} {
		ref, ok := Lookup(repo, name)
		assert.True(t, ok, name)
		assert.Equal(t, want, Empty(repo, ref), name)
	}
}
