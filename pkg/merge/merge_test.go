package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/opencollection/pkg/collection"
	"github.com/blackcoderx/opencollection/pkg/collection/collectiontest"
)

func header(name, value string) collection.Header {
	return collection.Header{Name: name, Value: value}
}

func variable(name, value string) collection.Variable {
	return collection.Variable{Name: name, Value: collection.VariableValue{Data: value}}
}

// nested builds base -> L1 -> L2 -> L3 -> leaf with a conflicting X-Level
// header at every level.
func nested(leafHeaders []collection.Header) (*collection.Collection, collection.ItemID) {
	b := collectiontest.New("api").Base(collection.Config{
		Headers: []collection.Header{header("X-Level", "base"), header("Accept", "application/json")},
		Auth:    collection.BearerAuth{Token: "{{token}}"},
		Variables: []collection.Variable{
			variable("level", "base"),
			variable("baseOnly", "yes"),
		},
	})
	l1 := b.Folder("", "L1", collection.Config{
		Headers:   []collection.Header{header("X-Level", "l1")},
		Variables: []collection.Variable{variable("level", "l1")},
	})
	l2 := b.Folder(l1, "L2", collection.Config{
		Headers: []collection.Header{header("x-level", "l2"), header("X-L2", "only")},
		Auth:    collection.BasicAuth{Username: "folder-user"},
	})
	l3 := b.Folder(l2, "L3", collection.Config{
		Headers:   []collection.Header{header("X-Level", "l3")},
		Variables: []collection.Variable{variable("level", "l3")},
	})
	leaf := b.HTTP(l3, "leaf", &collection.HTTPRequest{Method: "GET", URL: "/", Headers: leafHeaders})
	return b.Build(), leaf
}

func find(headers []collection.Header, name string) (collection.Header, bool) {
	for _, h := range headers {
		if h.Name == name {
			return h, true
		}
	}
	return collection.Header{}, false
}

func TestMerge_DeepestScopeWins(t *testing.T) {
	c, leaf := nested([]collection.Header{header("X-Level", "leaf")})
	path, err := collection.PathTo(c, leaf)
	require.NoError(t, err)

	got, err := Merge(c, path)
	require.NoError(t, err)

	h, ok := find(got.Headers, "X-Level")
	require.True(t, ok)
	assert.Equal(t, "leaf", h.Value)

	_, ok = find(got.Headers, "Accept")
	assert.True(t, ok, "ancestor-only headers are kept")
	_, ok = find(got.Headers, "X-L2")
	assert.True(t, ok)
	assert.Len(t, got.Headers, 3, "same-name headers collapse case-insensitively")

	assert.Equal(t, collection.BasicAuth{Username: "folder-user"}, got.Auth)

	vars := map[string]string{}
	for _, v := range got.Variables {
		vars[v.Name] = v.Value.Data
	}
	assert.Equal(t, map[string]string{"level": "l3", "baseOnly": "yes"}, vars)
}

func TestMerge_LeafWithoutOverridesInheritsNearestFolder(t *testing.T) {
	c, leaf := nested(nil)
	path, err := collection.PathTo(c, leaf)
	require.NoError(t, err)

	got, err := Merge(c, path)
	require.NoError(t, err)

	h, _ := find(got.Headers, "X-Level")
	assert.Equal(t, "l3", h.Value)
}

func TestMerge_IdentityOnBase(t *testing.T) {
	base := collection.Config{
		Headers: []collection.Header{header("Content-Type", "application/json")},
		Auth:    collection.BearerAuth{Token: "{{authToken}}"},
	}
	b := collectiontest.New("api").Base(base)
	f := b.Folder("", "Empty folder", collection.Config{})
	leaf := b.HTTP(f, "leaf", &collection.HTTPRequest{Method: "GET", URL: "/"})
	c := b.Build()

	got, err := Merge(c, []collection.ItemID{f, leaf})
	require.NoError(t, err)
	assert.Equal(t, base.Headers, got.Headers)
	assert.Equal(t, base.Auth, got.Auth)
	assert.Empty(t, got.Variables)
}

func TestMerge_DisabledLayerEntriesAreAbsent(t *testing.T) {
	disabledHeader := header("X-Level", "off")
	disabledHeader.Disabled = true
	c, leaf := nested([]collection.Header{disabledHeader})
	path, _ := collection.PathTo(c, leaf)

	got, err := Merge(c, path)
	require.NoError(t, err)
	h, _ := find(got.Headers, "X-Level")
	assert.Equal(t, "l3", h.Value)

	acc := Apply(Config{}, collection.Config{Headers: []collection.Header{disabledHeader}})
	assert.Empty(t, acc.Headers)
}

func TestMerge_NoAuthReplacesInheritedAuth(t *testing.T) {
	b := collectiontest.New("api").Base(collection.Config{Auth: collection.BearerAuth{Token: "t"}})
	leaf := b.HTTP("", "public", &collection.HTTPRequest{Auth: collection.NoAuth{}})
	got, err := Merge(b.Build(), []collection.ItemID{leaf})
	require.NoError(t, err)
	assert.Equal(t, collection.NoAuth{}, got.Auth)
}

func TestMerge_PathErrors(t *testing.T) {
	c, leaf := nested(nil)

	_, err := Merge(c, []collection.ItemID{"ghost"})
	assert.ErrorIs(t, err, collection.ErrItemNotFound)

	_, err = Merge(c, []collection.ItemID{"L1", "L1"})
	assert.ErrorIs(t, err, collection.ErrCycle)

	_, err = Merge(c, []collection.ItemID{"L1", leaf})
	assert.ErrorIs(t, err, collection.ErrDanglingReference, "skipping ancestors is rejected")

	b := collectiontest.New("api")
	req := b.HTTP("", "req", &collection.HTTPRequest{})
	other := b.HTTP("", "other", &collection.HTTPRequest{})
	_, err = Merge(b.Build(), []collection.ItemID{req, other})
	assert.ErrorIs(t, err, collection.ErrNotAFolder)
}

func TestMerge_EmptyPathIsBase(t *testing.T) {
	c, _ := nested(nil)
	got, err := Merge(c, nil)
	require.NoError(t, err)
	assert.Len(t, got.Headers, 2)
}

func TestApply_DoesNotMutateAccumulator(t *testing.T) {
	acc := Config{Headers: []collection.Header{header("A", "1")}}
	_ = Apply(acc, collection.Config{Headers: []collection.Header{header("A", "2")}})
	assert.Equal(t, "1", acc.Headers[0].Value)
}
