package collection_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/opencollection/pkg/collection"
	"github.com/blackcoderx/opencollection/pkg/collection/collectiontest"
)

func sample() *collection.Collection {
	b := collectiontest.New("api")
	users := b.Folder("", "Users", collection.Config{})
	admin := b.Folder(users, "Admin", collection.Config{})
	b.HTTP(admin, "Delete user", &collection.HTTPRequest{Method: "DELETE", URL: "/users/:id"})
	b.HTTP(users, "List users", &collection.HTTPRequest{Method: "GET", URL: "/users"})
	b.HTTP("", "Health", &collection.HTTPRequest{Method: "GET", URL: "/health"})
	b.Folder("", "Empty", collection.Config{})
	return b.Build()
}

func TestValidate_Valid(t *testing.T) {
	require.NoError(t, collection.Validate(sample()))
}

func TestValidate_StructuralErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *collection.Collection)
		wantErr error
	}{
		{
			name: "cycle through folder children",
			mutate: func(c *collection.Collection) {
				admin := c.Items["Users/Admin"].(*collection.Folder)
				admin.Children = append(admin.Children, "Users")
			},
			wantErr: collection.ErrCycle,
		},
		{
			name: "folder containing itself",
			mutate: func(c *collection.Collection) {
				empty := c.Items["Empty"].(*collection.Folder)
				empty.Children = []collection.ItemID{"Empty"}
			},
			wantErr: collection.ErrCycle,
		},
		{
			name: "shared child",
			mutate: func(c *collection.Collection) {
				empty := c.Items["Empty"].(*collection.Folder)
				empty.Children = []collection.ItemID{"Health"}
			},
			wantErr: collection.ErrSharedItem,
		},
		{
			name: "dangling child",
			mutate: func(c *collection.Collection) {
				empty := c.Items["Empty"].(*collection.Folder)
				empty.Children = []collection.ItemID{"ghost"}
			},
			wantErr: collection.ErrDanglingReference,
		},
		{
			name: "apikey without placement",
			mutate: func(c *collection.Collection) {
				c.Items["Health"].(*collection.HTTPRequest).Auth = collection.APIKeyAuth{Key: "X-Key", Value: "v"}
			},
			wantErr: collection.ErrMissingAuthField,
		},
		{
			name: "bearer without token on the base",
			mutate: func(c *collection.Collection) {
				c.Base.Auth = collection.BearerAuth{}
			},
			wantErr: collection.ErrMissingAuthField,
		},
		{
			name: "unknown param type",
			mutate: func(c *collection.Collection) {
				c.Items["Health"].(*collection.HTTPRequest).Params = []collection.Param{{Name: "x", Type: "cookie"}}
			},
			wantErr: collection.ErrUnknownType,
		},
		{
			name: "raw body with form discriminator",
			mutate: func(c *collection.Collection) {
				c.Items["Health"].(*collection.HTTPRequest).Body = collection.RawBody{Kind: collection.BodyFormURLEncoded}
			},
			wantErr: collection.ErrUnknownType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := sample()
			tt.mutate(c)

			err := collection.Validate(c)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.True(t, collection.IsStructural(err))
		})
	}
}

func TestValidateShape_IgnoresItemContents(t *testing.T) {
	c := sample()
	c.Items["Health"].(*collection.HTTPRequest).Auth = collection.BearerAuth{}
	assert.NoError(t, collection.ValidateShape(c))

	empty := c.Items["Empty"].(*collection.Folder)
	empty.Children = []collection.ItemID{"ghost"}
	assert.ErrorIs(t, collection.ValidateShape(c), collection.ErrDanglingReference)
}

func TestValidatePath(t *testing.T) {
	c := sample()
	c.Items["Health"].(*collection.HTTPRequest).Auth = collection.BearerAuth{}

	path, err := collection.PathTo(c, "Users/Admin/Delete user")
	require.NoError(t, err)
	assert.NoError(t, collection.ValidatePath(c, path))

	err = collection.ValidatePath(c, []collection.ItemID{"Health"})
	assert.ErrorIs(t, err, collection.ErrMissingAuthField)
	assert.True(t, collection.IsStructural(err))

	c.Items["Users"].(*collection.Folder).Config.Auth = collection.BasicAuth{}
	assert.ErrorIs(t, collection.ValidatePath(c, path), collection.ErrMissingAuthField)

	c = sample()
	c.Base.Auth = collection.BearerAuth{}
	assert.ErrorIs(t, collection.ValidatePath(c, nil), collection.ErrMissingAuthField)
}

func TestPathTo(t *testing.T) {
	c := sample()

	path, err := collection.PathTo(c, "Users/Admin/Delete user")
	require.NoError(t, err)
	assert.Equal(t, []collection.ItemID{"Users", "Users/Admin", "Users/Admin/Delete user"}, path)

	path, err = collection.PathTo(c, "Health")
	require.NoError(t, err)
	assert.Equal(t, []collection.ItemID{"Health"}, path)

	_, err = collection.PathTo(c, "nope")
	assert.ErrorIs(t, err, collection.ErrItemNotFound)
}

func TestPathTo_Cycle(t *testing.T) {
	c := sample()
	admin := c.Items["Users/Admin"].(*collection.Folder)
	admin.Children = []collection.ItemID{"Users"}

	_, err := collection.PathTo(c, "missing")
	assert.ErrorIs(t, err, collection.ErrCycle)
}

func TestFindByPath(t *testing.T) {
	c := sample()

	id, err := collection.FindByPath(c, "Users/Admin/Delete user")
	require.NoError(t, err)
	assert.Equal(t, collection.ItemID("Users/Admin/Delete user"), id)

	id, err = collection.FindByPath(c, "/Health")
	require.NoError(t, err)
	assert.Equal(t, collection.ItemID("Health"), id)

	_, err = collection.FindByPath(c, "Health/child")
	assert.ErrorIs(t, err, collection.ErrItemNotFound)
	_, err = collection.FindByPath(c, "Users/Nobody")
	assert.ErrorIs(t, err, collection.ErrItemNotFound)
}

func TestWalk_DocumentOrder(t *testing.T) {
	var names []string
	var depths []int
	err := collection.Walk(sample(), func(item collection.Item, depth int) error {
		names = append(names, item.Info().Name)
		depths = append(depths, depth)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Users", "Admin", "Delete user", "List users", "Health", "Empty"}, names)
	assert.Equal(t, []int{0, 1, 2, 1, 0, 0}, depths)
}

func TestEnvironmentLookup(t *testing.T) {
	c := &collection.Collection{Environments: []collection.Environment{
		{ID: "env-1", Name: "dev"},
		{ID: "dev", Name: "staging"},
	}}

	env, ok := c.Environment("dev")
	require.True(t, ok)
	assert.Equal(t, "staging", env.Name, "uid match takes priority over name")

	env, ok = c.Environment("env-1")
	require.True(t, ok)
	assert.Equal(t, "dev", env.Name)

	_, ok = c.Environment("prod")
	assert.False(t, ok)
	_, ok = c.Environment("")
	assert.False(t, ok)
}

func TestParseDiscriminators(t *testing.T) {
	_, err := collection.ParseItemType("websocket")
	assert.ErrorIs(t, err, collection.ErrUnknownType)
	_, err = collection.ParseAuthType("oauth1")
	assert.ErrorIs(t, err, collection.ErrUnknownType)
	_, err = collection.ParseBodyType("graphql")
	assert.ErrorIs(t, err, collection.ErrUnknownType)

	bt, err := collection.ParseBodyType("sparql")
	require.NoError(t, err)
	assert.True(t, bt.IsRaw())
}
