package queryemitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/json-schema-faker/json-schema-to/internal/model"
	"github.com/json-schema-faker/json-schema-to/internal/repository"
	"github.com/json-schema-faker/json-schema-to/internal/schema"
)

func scenario() *repository.Repository {
	return &repository.Repository{
		Calls: []model.Call{
			{Set: "something", Resp: "Test", Input: schema.Input{Name: "Value"}, Required: schema.Required{All: true}},
			{Get: "anythingElse", Resp: "Test"},
		},
		Models: []*model.Model{
			{Name: "Test", Fields: []model.Field{
				{Name: "id", Schema: "integer"},
				{Name: "value", Schema: "Choice", Enum: true},
				{Name: "values", Schema: "string", Repeated: true},
			}},
			{Name: "Value", Fields: []model.Field{
				{Name: "value", Schema: "string"},
				{Name: "example", Schema: "number"},
			}},
		},
		Enums: []model.Enum{{Schema: "Choice", Values: []string{"A", "B"}}},
	}
}

func TestRenderScenario(t *testing.T) {
	t.Parallel()

	docs, err := Render(scenario(), Options{})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.True(t, docs[0].Mutation)
	assert.Equal(t, "something.gql", docs[0].File())
	assert.Equal(t, `mutation(
  $value: String!,
  $example: Float!,
) {
  something(input: {
    value: $value,
    example: $example,
  }) {
    id
    value
    values
  }
}
`, docs[0].Text)

	assert.Equal(t, "query {\n  anythingElse {\n    id\n    value\n    values\n  }\n}\n", docs[1].Text)

	assert.Equal(t, "export { default as SOMETHING } from './something.gql';\n"+
		"export { default as ANYTHING_ELSE } from './anythingElse.gql';\n", Index(docs))
}

func TestCyclesExpandOncePerPath(t *testing.T) {
	t.Parallel()

	repo := &repository.Repository{
		Calls: []model.Call{{Get: "a", Resp: "A"}},
		Models: []*model.Model{
			{Name: "A", Fields: []model.Field{{Name: "id", Schema: "string"}, {Name: "b", Schema: "B"}, {Name: "self", Schema: "A"}}},
			{Name: "B", Fields: []model.Field{{Name: "a", Schema: "A"}}},
		},
	}
	docs, err := Render(repo, Options{})
	require.NoError(t, err)
	assert.Equal(t, `query {
  a {
    id
    b {
      a {
        id
      }
    }
    self {
      id
    }
  }
}
`, docs[0].Text)
}

func TestMaxRevisits(t *testing.T) {
	t.Parallel()

	repo := &repository.Repository{
		Calls:  []model.Call{{Get: "node", Resp: "Node"}},
		Models: []*model.Model{{Name: "Node", Fields: []model.Field{{Name: "id", Schema: "string"}, {Name: "next", Schema: "Node"}}}},
	}
	docs, err := Render(repo, Options{MaxRevisits: 2})
	require.NoError(t, err)
	assert.Equal(t, "query {\n  node {\n    id\n    next {\n      id\n      next {\n        id\n      }\n    }\n  }\n}\n", docs[0].Text)
}

func TestArgumentsAndScalarInput(t *testing.T) {
	t.Parallel()

	repo := &repository.Repository{
		Calls: []model.Call{
			{Get: "search", Resp: "string", Repeated: true, Input: schema.Input{Args: []schema.Argument{{Name: "q", Type: "string"}, {Name: "n", Type: "integer"}}}, Required: schema.Required{Keys: []string{"q"}}},
			{Set: "tag", Input: schema.Input{Name: "Tags"}, Required: schema.Required{Keys: []string{"Tags"}}},
		},
		Defns: model.Defns{{Name: "Tags", Schema: "string", Repeated: true}},
	}
	docs, err := Render(repo, Options{})
	require.NoError(t, err)
	assert.Equal(t, "query(\n  $q: String!,\n  $n: Int,\n) {\n  search(q: $q, n: $n)\n}\n", docs[0].Text)
	assert.Equal(t, "mutation(\n  $input: [String]!,\n) {\n  tag(input: $input)\n}\n", docs[1].Text)
}
