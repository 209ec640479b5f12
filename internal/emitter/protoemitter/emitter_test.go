package protoemitter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/json-schema-faker/json-schema-to/internal/emitter"
	"github.com/json-schema-faker/json-schema-to/internal/model"
	"github.com/json-schema-faker/json-schema-to/internal/repository"
	"github.com/json-schema-faker/json-schema-to/internal/schema"
	"github.com/json-schema-faker/json-schema-to/internal/verify"
)

func scenario() *repository.Repository {
	return &repository.Repository{
		Name: "demo",
		Pkg:  "demo",
		Noop: "Empty",
		Calls: []model.Call{
			{Set: "something", Resp: "Test", Input: schema.Input{Name: "Value"}, Required: schema.Required{All: true}, Schema: "Test"},
			{Get: "anythingElse", Resp: "Test", Schema: "Test"},
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
		Defns: model.Defns{{Name: "ItemValue", Schema: "string"}, {Name: "primaryKey", Schema: "integer"}},
	}
}

func TestRenderScenario(t *testing.T) {
	t.Parallel()

	out, err := Render(scenario(), Options{})
	require.NoError(t, err)

	assert.Equal(t, `syntax = "proto3";
package demo;

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
`, out)
	assert.NotContains(t, out, "message ItemValue")
	for _, bad := range []string{"undefined", "null", "NaN"} {
		assert.NotContains(t, out, bad)
	}
}

func TestScalarMapping(t *testing.T) {
	t.Parallel()

	for from, to := range map[string]string{"string": "string", "boolean": "bool", "number": "double", "integer": "int32"} {
		repo := &repository.Repository{Pkg: "p", Models: []*model.Model{{Name: "S", Fields: []model.Field{{Name: "v", Schema: from}}}}}
		out, err := Render(repo, Options{})
		require.NoError(t, err)
		assert.Contains(t, out, "  "+to+" v = 1;\n", from)
	}
}

func TestFieldNumbersFollowDeclarationOrder(t *testing.T) {
	t.Parallel()

	repo := &repository.Repository{Pkg: "p", Models: []*model.Model{{Name: "M", Fields: []model.Field{
		{Name: "a", Schema: "string"},
		{Name: "b", Schema: "string"},
		{Name: "c", Schema: "string", Format: "date-time"},
	}}}}
	out, err := Render(repo, Options{})
	require.NoError(t, err)
	assert.Contains(t, out, "message M {\n  string a = 1;\n  string b = 2;\n  int64 c = 3;\n}")
}

func TestProto2Labels(t *testing.T) {
	t.Parallel()

	repo := &repository.Repository{Pkg: "p", Models: []*model.Model{{Name: "M", Fields: []model.Field{
		{Name: "a", Schema: "string", Required: true},
		{Name: "b", Schema: "string"},
		{Name: "c", Schema: "string", Repeated: true, Required: true},
	}}}}
	out, err := Render(repo, Options{Syntax: Proto2})
	require.NoError(t, err)
	assert.Contains(t, out, `syntax = "proto2";`)
	assert.Contains(t, out, "  required string a = 1;\n  optional string b = 2;\n  repeated string c = 3;\n")
}

func TestBelongsToAddsForeignKey(t *testing.T) {
	t.Parallel()

	repo := &repository.Repository{Pkg: "p", Models: []*model.Model{
		{Name: "Post", Fields: []model.Field{
			{Name: "owner", Schema: "OtherModel", Association: &model.Association{Kind: model.BelongsTo, Model: "OtherModel", Key: "id", KeyType: "integer"}},
			{Name: "title", Schema: "string"},
		}},
		{Name: "OtherModel", Fields: []model.Field{{Name: "id", Schema: "integer"}}},
	}}
	out, err := Render(repo, Options{})
	require.NoError(t, err)
	assert.Contains(t, out, "message Post {\n  OtherModel owner = 1;\n  int32 otherModelId = 2;\n  string title = 3;\n}")
}

func TestWrapperMessages(t *testing.T) {
	t.Parallel()

	repo := &repository.Repository{
		Name: "shop",
		Pkg:  "my-shop",
		Refs: []string{"common"},
		Noop: "ShopEmpty",
		Calls: []model.Call{
			{Get: "tags", Resp: "Tags"},
			{Get: "count", Resp: "integer", Input: schema.Input{Args: []schema.Argument{{Name: "q", Type: "string"}, {Name: "n", Type: "integer"}}}, Required: schema.Required{Keys: []string{"q"}}},
			{Get: "all", Resp: "Item", Repeated: true, Params: "string"},
			{Set: "ping"},
		},
		Models: []*model.Model{{Name: "Item", Fields: []model.Field{{Name: "v", Schema: "string"}}}},
		Defns:  model.Defns{{Name: "Tags", Schema: "string", Repeated: true}},
	}
	out, err := Render(repo, Options{Syntax: Proto2})
	require.NoError(t, err)

	assert.Contains(t, out, "package my_shop;\n\nimport \"common.proto\";\n")
	assert.Contains(t, out, "service ShopService {\n")
	assert.Contains(t, out, "  rpc tags(ShopEmpty) returns(Tags);\n")
	assert.Contains(t, out, "  rpc count(CountInput) returns(CountResponse);\n")
	assert.Contains(t, out, "  rpc all(AllInput) returns(AllResponse);\n")
	assert.Contains(t, out, "  rpc ping(ShopEmpty) returns(ShopEmpty);\n")
	assert.Contains(t, out, "message Tags {\n  repeated string data = 1;\n}")
	assert.Contains(t, out, "message CountInput {\n  required string q = 1;\n  optional int32 n = 2;\n}")
	assert.Contains(t, out, "message CountResponse {\n  optional int32 data = 1;\n}")
	assert.Contains(t, out, "message AllResponse {\n  repeated Item data = 1;\n}")
	assert.Equal(t, 1, countOf(out, "message ShopEmpty {}"))
}

func TestEnumValuesArePrefixed(t *testing.T) {
	t.Parallel()

	out, err := New(Options{}).Enumeration(nil, &model.Enum{Schema: "Test_status_1", Values: []string{"on", "off-line", "2x"}})
	require.NoError(t, err)
	assert.Equal(t, "enum Test_status_1 {\n  TEST_STATUS_1_ON = 0;\n  TEST_STATUS_1_OFF_LINE = 1;\n  TEST_STATUS_1_2X = 2;\n}", out)
}

func TestWrapperNamesAvoidModels(t *testing.T) {
	t.Parallel()

	repo := &repository.Repository{
		Name: "demo",
		Pkg:  "demo",
		Noop: "Empty",
		Calls: []model.Call{
			{Get: "count", Resp: "integer", Input: schema.Input{Args: []schema.Argument{{Name: "q", Type: "string"}}}},
		},
		Models: []*model.Model{
			{Name: "CountResponse", Fields: []model.Field{{Name: "total", Schema: "integer"}}},
			{Name: "CountInput", Fields: []model.Field{{Name: "q", Schema: "string"}}},
		},
	}
	out, err := Render(repo, Options{})
	require.NoError(t, err)
	assert.Contains(t, out, "  rpc count(CountInput2) returns(CountResponse2);\n")
	assert.Contains(t, out, "message CountResponse2 {\n  int32 data = 1;\n}")
	assert.Equal(t, 1, countOf(out, "message CountResponse {"))
	require.NoError(t, verify.Proto(map[string]string{"demo.proto": out}))
}

func TestEnumValuesStayDistinct(t *testing.T) {
	t.Parallel()

	out, err := New(Options{}).Enumeration(nil, &model.Enum{Schema: "K_1", Values: []string{"a-b", "a_b", "A B"}})
	require.NoError(t, err)
	assert.Equal(t, "enum K_1 {\n  K_1_A_B = 0;\n  K_1_A_B_2 = 1;\n  K_1_A_B_3 = 2;\n}", out)
	require.NoError(t, verify.Proto(map[string]string{"k.proto": "syntax = \"proto3\";\npackage k;\n\n" + out + "\n"}))
}

func TestUnresolvedType(t *testing.T) {
	t.Parallel()

	repo := &repository.Repository{Pkg: "p", Models: []*model.Model{{Name: "M", Fields: []model.Field{{Name: "v", Schema: "Ghost"}}}}}
	_, err := Render(repo, Options{})
	var ute *emitter.UnresolvedTypeError
	require.True(t, errors.As(err, &ute))
	assert.Equal(t, fmt.Sprintf("%s: unresolved type 'Ghost' in 'M'", target), err.Error())
}

func countOf(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}
