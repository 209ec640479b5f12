package verify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioProto = `syntax = "proto3";
package demo;

import "google/protobuf/empty.proto";
import "shared.proto";

service DemoService {
  rpc something(Value) returns(Test);
  rpc anythingElse(Empty) returns(Test);
}

message Empty {}

message Test {
  int32 id = 1;
  Choice value = 2;
  repeated string values = 3;
}

message Value {
  string value = 1;
  double example = 2;
}

enum Choice {
  CHOICE_A = 0;
  CHOICE_B = 1;
}
`

func TestProtoAcceptsGeneratedIDL(t *testing.T) {
	t.Parallel()

	require.NoError(t, Proto(map[string]string{"common.proto": scenarioProto}))
	require.NoError(t, Proto(nil))
}

func TestProtoResolvesSiblingFiles(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"Alpha.proto": "syntax = \"proto3\";\npackage demo;\n\nmessage Value {\n  string v = 1;\n}\n",
		"Beta.proto":  "syntax = \"proto3\";\npackage demo;\n\nimport \"Alpha.proto\";\n\nmessage Beta {\n  repeated Value value = 1;\n}\n",
	}
	require.NoError(t, Proto(files))
}

func TestProtoRejectsBrokenIDL(t *testing.T) {
	t.Parallel()

	err := Proto(map[string]string{"common.proto": "syntax = \"proto3\";\nmessage Test {\n  undefined id = 1;\n}\n"})
	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "protobuf", se.Target)
	assert.Equal(t, "common.proto", se.File)
}

const scenarioSDL = `extend type Query {
  anythingElse: Test
}

extend type Mutation {
  "Saves it"
  something(input: Value!): Test
  search(q: String!, limit: Int): [String]
}

type Test {
  id: Int
  value: Choice
  values: [String]
  type: String
}

input Value {
  value: String
  example: Float!
}

enum Choice {
  A
  B
}
`

func TestGraphQLAcceptsGeneratedSDL(t *testing.T) {
	t.Parallel()

	require.NoError(t, GraphQL("common.gql", scenarioSDL))
}

func TestGraphQLRejectsUndeclaredTypes(t *testing.T) {
	t.Parallel()

	err := GraphQL("common.gql", "type Test {\n  value: Missing\n}\n")
	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Error(), `undeclared type "Missing" in Test.value`)
}

func TestGraphQLRejectsDuplicatesAndBadSyntax(t *testing.T) {
	t.Parallel()

	err := GraphQL("a.gql", "enum A {\n  X\n}\n\nenum A {\n  Y\n}\n")
	assert.ErrorContains(t, err, `duplicate type "A"`)

	err = GraphQL("b.gql", "type Test {\n  value: undefined,\n")
	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "b.gql", se.File)
}
