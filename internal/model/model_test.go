package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/json-schema-faker/json-schema-to/internal/schema"
)

func TestEnumKeyIgnoresOrderAndCase(t *testing.T) {
	t.Parallel()

	a := Enum{Schema: "A", Values: []string{"A", "B", "C"}}
	b := Enum{Schema: "B", Values: []string{"C", "B", "A"}}
	c := Enum{Schema: "C", Values: []string{"a", "b-", "c"}}
	d := Enum{Schema: "D", Values: []string{"A", "B"}}

	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, a.Key(), c.Key())
	assert.NotEqual(t, a.Key(), d.Key())
}

func TestEnumLookup(t *testing.T) {
	t.Parallel()

	e := Enum{Schema: "Choice", Values: []string{"A", "B"}}

	v, err := e.Lookup("B")
	require.NoError(t, err)
	assert.Equal(t, "B", v)

	_, err = e.Lookup("Z")
	var uem *UnknownEnumMemberError
	require.True(t, errors.As(err, &uem))
	assert.Equal(t, "missing 'Z' in 'A | B'", err.Error())
}

func TestNaming(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Something", Caps("something"))
	assert.Equal(t, "TestValue", Caps("test-value"))
	assert.Equal(t, "Test_value", Caps("Test_value"))
	assert.Equal(t, "otherModel", LowerCamel("OtherModel"))
	assert.Equal(t, "my_App_v2", Safe("myApp-v2", "_"))
	assert.Equal(t, "TEST_VALUE_1", UpperSnake("Test_value_1"))
	assert.Equal(t, "SOME_THING", UpperSnake("someThing"))
}

func TestForeignKey(t *testing.T) {
	t.Parallel()

	a := &Association{Kind: BelongsTo, Model: "OtherModel", Key: "id", KeyType: "integer"}
	name, ok := a.ForeignKey()
	require.True(t, ok)
	assert.Equal(t, "otherModelId", name)

	a.As = "owner"
	name, _ = a.ForeignKey()
	assert.Equal(t, "ownerId", name)

	_, ok = (&Association{Kind: HasMany, Model: "X", Key: "id", KeyType: "integer"}).ForeignKey()
	assert.False(t, ok)
	_, ok = (&Association{Kind: BelongsTo, Model: "X"}).ForeignKey()
	assert.False(t, ok)
}

func TestPrimaryKeyFallsBackToID(t *testing.T) {
	t.Parallel()

	m := &Model{Name: "A", Fields: []Field{{Name: "code", Schema: "string"}, {Name: "id", Schema: "integer"}}}
	pk, ok := m.PrimaryKey()
	require.True(t, ok)
	assert.Equal(t, "id", pk.Name)

	m.Fields[0].PrimaryKey = true
	pk, _ = m.PrimaryKey()
	assert.Equal(t, "code", pk.Name)
}

func TestExtractCallsTagsSchema(t *testing.T) {
	t.Parallel()

	doc := &schema.Document{ID: "Test", Service: &schema.Service{Calls: []schema.CallSpec{
		{Set: "something", Resp: "Test", Input: schema.Input{Name: "Value"}, Required: schema.Required{All: true}},
		{Get: "anythingElse", Resp: "Test"},
	}}}
	calls := ExtractCalls(doc)
	require.Len(t, calls, 2)
	assert.Equal(t, "Test", calls[0].Schema)
	assert.True(t, calls[0].Mutation())
	assert.Equal(t, "Value", calls[0].Request())
	assert.Equal(t, "anythingElse", calls[1].Name())
	assert.False(t, calls[1].Mutation())

	assert.Nil(t, ExtractCalls(&schema.Document{ID: "Plain"}))
}

func TestValidateCalls(t *testing.T) {
	t.Parallel()

	known := func(name string) bool { return name == "Test" || name == "Value" || schema.IsScalar(name) }

	require.NoError(t, ValidateCalls([]Call{
		{Set: "something", Resp: "Test", Input: schema.Input{Name: "Value"}},
		{Get: "find", Resp: "Test", Input: schema.Input{Args: []schema.Argument{{Name: "q", Type: "string"}}}},
	}, known))

	var mce *MalformedCallError
	err := ValidateCalls([]Call{{Resp: "Test", Schema: "Test"}}, known)
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, "missing get or set", mce.Reason)

	err = ValidateCalls([]Call{{Input: schema.Input{Name: "Value"}, Schema: "Test"}}, known)
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, "unexpected input without get or set", mce.Reason)

	err = ValidateCalls([]Call{{Get: "a", Set: "b"}}, known)
	require.True(t, errors.As(err, &mce))

	var umr *UnknownModelReferenceError
	err = ValidateCalls([]Call{{Get: "find", Resp: "Nope"}}, known)
	require.True(t, errors.As(err, &umr))
	assert.Equal(t, "resp", umr.Field)
	assert.Equal(t, "Nope", umr.Name)

	err = ValidateCalls([]Call{{Get: "find", Resp: "Test", Input: schema.Input{Args: []schema.Argument{{Name: "x", Type: "Missing"}}}}}, known)
	require.True(t, errors.As(err, &umr))
	assert.Equal(t, "input", umr.Field)

	err = ValidateCalls([]Call{{Get: "find", Params: "Missing"}}, known)
	require.True(t, errors.As(err, &umr))
	assert.Equal(t, "params", umr.Field)
}
