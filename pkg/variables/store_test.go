package variables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/opencollection/pkg/collection"
)

func v(name, value string) collection.Variable {
	return collection.Variable{Name: name, Value: collection.VariableValue{Data: value}}
}

func TestBuild_Precedence(t *testing.T) {
	env := &collection.Environment{Name: "dev", Variables: []collection.Variable{
		v("host", "env-host"),
		v("envOnly", "e"),
		v("shared", "from-env"),
	}}
	chain := []collection.Config{
		{Variables: []collection.Variable{v("shared", "from-base"), v("baseOnly", "b")}},
		{Variables: []collection.Variable{v("shared", "from-outer")}},
		{Variables: []collection.Variable{v("shared", "from-inner"), v("folder", "f")}},
		{Variables: []collection.Variable{v("item", "i")}},
	}

	store := Build(env, chain)

	tests := []struct {
		name      string
		wantValue string
		wantScope Scope
	}{
		{"host", "env-host", ScopeEnvironment},
		{"envOnly", "e", ScopeEnvironment},
		{"baseOnly", "b", ScopeCollection},
		{"shared", "from-inner", ScopeFolder},
		{"folder", "f", ScopeFolder},
		{"item", "i", ScopeItem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := store.Lookup(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.wantValue, got)
			scope, _ := store.Scope(tt.name)
			assert.Equal(t, tt.wantScope, scope)
		})
	}
}

func TestBuild_ItemWinsOverEverything(t *testing.T) {
	env := &collection.Environment{Variables: []collection.Variable{v("x", "env")}}
	store := Build(env, []collection.Config{
		{Variables: []collection.Variable{v("x", "base")}},
		{Variables: []collection.Variable{v("x", "item")}},
	})
	got, _ := store.Lookup("x")
	assert.Equal(t, "item", got)
}

func TestBuild_LastDeclaredWinsWithinScope(t *testing.T) {
	env := &collection.Environment{Variables: []collection.Variable{v("x", "first"), v("x", "second")}}
	got, ok := Build(env, nil).Lookup("x")
	require.True(t, ok)
	assert.Equal(t, "second", got)
}

func TestBuild_DisabledIsAbsent(t *testing.T) {
	disabled := v("token", "item-token")
	disabled.Disabled = true

	store := Build(
		&collection.Environment{Variables: []collection.Variable{v("token", "env-token")}},
		[]collection.Config{{}, {Variables: []collection.Variable{disabled}}},
	)
	got, _ := store.Lookup("token")
	assert.Equal(t, "env-token", got, "a disabled inner variable must not shadow an outer one")

	onlyDisabled := Build(nil, []collection.Config{{Variables: []collection.Variable{disabled}}})
	_, ok := onlyDisabled.Lookup("token")
	assert.False(t, ok)
}

func TestLookup_NotFoundIsNotEmpty(t *testing.T) {
	store := Build(nil, []collection.Config{{Variables: []collection.Variable{v("empty", "")}}})

	got, ok := store.Lookup("empty")
	assert.True(t, ok)
	assert.Equal(t, "", got)

	_, ok = store.Lookup("missing")
	assert.False(t, ok)

	var nilStore *Store
	_, ok = nilStore.Lookup("anything")
	assert.False(t, ok)
}

func TestBuild_Variants(t *testing.T) {
	region := collection.Variable{
		Name: "region",
		Value: collection.VariableValue{
			Data: "us-east-1",
			Type: "string",
			Variants: []collection.Variant{
				{Data: "eu-west-1", Description: "europe"},
				{Data: "ap-south-1", Description: "asia"},
			},
		},
	}
	chain := []collection.Config{{Variables: []collection.Variable{region}}}

	got, _ := Build(nil, chain).Lookup("region")
	assert.Equal(t, "us-east-1", got, "no selector uses the top-level value")

	got, _ = Build(nil, chain, WithSelector(SelectByDescription("asia"))).Lookup("region")
	assert.Equal(t, "ap-south-1", got)

	got, _ = Build(nil, chain, WithSelector(SelectByDescription("mars"))).Lookup("region")
	assert.Equal(t, "us-east-1", got, "unmatched selector falls back to the top-level value")
}

func TestExported_SkipsTransient(t *testing.T) {
	secret := v("secret", "s3cr3t")
	secret.Transient = true
	store := Build(nil, []collection.Config{{Variables: []collection.Variable{secret, v("public", "p")}}})

	got, ok := store.Lookup("secret")
	require.True(t, ok, "transient variables are usable during resolution")
	assert.Equal(t, "s3cr3t", got)
	assert.Equal(t, map[string]string{"public": "p"}, store.Exported())
	assert.Equal(t, []string{"public", "secret"}, store.Names())
}

func TestBuild_DoesNotAliasInput(t *testing.T) {
	vars := []collection.Variable{v("x", "before")}
	store := Build(nil, []collection.Config{{Variables: vars}})
	vars[0].Value.Data = "after"

	got, _ := store.Lookup("x")
	assert.Equal(t, "before", got)
}
