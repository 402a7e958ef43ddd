// Package collectiontest builds collections in tests without going through
// the YAML loader.
package collectiontest

import "github.com/blackcoderx/opencollection/pkg/collection"

// Builder assembles a collection arena. Item ids are the slash joined names
// of the item and its ancestors, e.g. "Users/Get user".
type Builder struct {
	c *collection.Collection
}

// New starts a collection with the given name.
func New(name string) *Builder {
	return &Builder{c: &collection.Collection{
		Name:  name,
		Items: make(map[collection.ItemID]collection.Item),
	}}
}

// Base sets the collection base config.
func (b *Builder) Base(cfg collection.Config) *Builder {
	b.c.Base = cfg
	return b
}

// Environment appends an environment.
func (b *Builder) Environment(env collection.Environment) *Builder {
	b.c.Environments = append(b.c.Environments, env)
	return b
}

// Folder adds a folder under parent ("" for the root) and returns its id.
func (b *Builder) Folder(parent collection.ItemID, name string, cfg collection.Config) collection.ItemID {
	f := &collection.Folder{Config: cfg}
	f.Name = name
	return b.add(parent, f, &f.Meta)
}

// HTTP adds a request under parent and returns its id. The request's ID and
// Name fields are filled in when empty.
func (b *Builder) HTTP(parent collection.ItemID, name string, req *collection.HTTPRequest) collection.ItemID {
	if req.Name == "" {
		req.Name = name
	}
	return b.add(parent, req, &req.Meta)
}

// Add inserts an arbitrary item under parent.
func (b *Builder) Add(parent collection.ItemID, item collection.Item, meta *collection.Meta) collection.ItemID {
	return b.add(parent, item, meta)
}

func (b *Builder) add(parent collection.ItemID, item collection.Item, meta *collection.Meta) collection.ItemID {
	if meta.ID == "" {
		id := collection.ItemID(meta.Name)
		if parent != "" {
			id = parent + "/" + id
		}
		meta.ID = id
	}
	b.c.Items[meta.ID] = item
	if parent == "" {
		b.c.Root = append(b.c.Root, meta.ID)
		return meta.ID
	}
	if f, ok := b.c.Items[parent].(*collection.Folder); ok {
		f.Children = append(f.Children, meta.ID)
	}
	return meta.ID
}

// Build returns the assembled collection.
func (b *Builder) Build() *collection.Collection {
	return b.c
}
