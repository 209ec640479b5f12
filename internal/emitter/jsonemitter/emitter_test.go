package jsonemitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/json-schema-faker/json-schema-to/internal/model"
	"github.com/json-schema-faker/json-schema-to/internal/schema"
)

func decode(t *testing.T, src string) *schema.Document {
	t.Helper()
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &node))
	doc := new(schema.Document)
	require.NoError(t, node.Content[0].Decode(doc))
	doc.Node = node.Content[0]
	return doc
}

func TestSchemaKeepsOrderAndDropsService(t *testing.T) {
	t.Parallel()

	doc := decode(t, `
id: Test
properties:
  zeta: {type: string}
  alpha: {type: integer, default: 3}
  tags: {type: array, items: {type: boolean}}
service:
  calls:
    - get: tests
`)
	data, err := Schema(doc)
	require.NoError(t, err)
	assert.Equal(t, `{
  "id": "Test",
  "properties": {
    "zeta": {
      "type": "string"
    },
    "alpha": {
      "type": "integer",
      "default": 3
    },
    "tags": {
      "type": "array",
      "items": {
        "type": "boolean"
      }
    }
  }
}
`, string(data))
}

func TestRenderFiles(t *testing.T) {
	t.Parallel()

	docs := []*schema.Document{
		decode(t, "id: Test\nproperties:\n  a: {type: string}\n"),
		decode(t, "id: Log\noptions:\n  database: audit\n"),
	}
	refs := []*schema.Document{decode(t, "id: dataTypes\ndefinitions:\n  pk: {type: integer}\n")}
	enums := []model.Enum{{Schema: "Choice", Values: []string{"A", "B"}}}

	files, err := Render(docs, refs, enums, Options{})
	require.NoError(t, err)
	require.Len(t, files, 4)
	assert.Equal(t, "Test.json", files[0].Path)
	assert.Equal(t, "Log.json", files[1].Path)
	assert.Equal(t, "common.json", files[2].Path)
	assert.Contains(t, string(files[2].Content), "\"id\": \"dataTypes\"")
	assert.Equal(t, "common.js", files[3].Path)
	assert.Equal(t, `/* eslint-disable */
const __factory = {};
__factory['@default'] = [
  require('./Test.json'),
].concat(require('./common.json'));
__factory['@audit'] = [
  require('./Log.json'),
].concat(require('./common.json'));
__factory.Choice = Object.freeze({ "A": "A", "B": "B" });
module.exports = __factory;
`, string(files[3].Content))
}

func TestModuleESM(t *testing.T) {
	t.Parallel()

	docs := []*schema.Document{decode(t, "id: test-one\n")}
	out := Module(docs, []model.Enum{{Schema: "E", Values: []string{"x"}}}, Options{ESM: true, Common: "shared"})
	assert.Equal(t, `/* eslint-disable */
import SharedJson from './shared.json' with { type: 'json' };
import TestOneJson from './test-one.json' with { type: 'json' };
const __factory = {};
__factory['@default'] = [
  TestOneJson,
].concat(SharedJson);
export const E = Object.freeze({ "x": "x" });
__factory.E = E;
export default __factory;
`, out)
}

func TestSchemaWithoutNode(t *testing.T) {
	t.Parallel()

	_, err := Schema(&schema.Document{ID: "Bare"})
	assert.Error(t, err)
}

func TestModuleQuotesEnumNames(t *testing.T) {
	t.Parallel()

	enums := []model.Enum{
		{Schema: "my-status", Values: []string{"on"}},
		{Schema: "my_status", Values: []string{"off"}},
	}
	out := Module(nil, enums, Options{})
	assert.Contains(t, out, "__factory['my-status'] = Object.freeze({ \"on\": \"on\" });\n")
	assert.Contains(t, out, "__factory.my_status = Object.freeze({ \"off\": \"off\" });\n")

	out = Module(nil, enums, Options{ESM: true})
	assert.Contains(t, out, "export const my_status = Object.freeze({ \"on\": \"on\" });\n__factory['my-status'] = my_status;\n")
	assert.Contains(t, out, "export const my_status_2 = Object.freeze({ \"off\": \"off\" });\n__factory.my_status = my_status_2;\n")
}
