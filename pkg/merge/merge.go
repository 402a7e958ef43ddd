// Package merge folds inheritable configuration from the collection root down
// to a target item.
package merge

import (
	"fmt"
	"slices"
	"strings"

	"github.com/blackcoderx/opencollection/pkg/collection"
)

// Config is the effective configuration for one item. It carries no record of
// which level supplied a field.
type Config struct {
	Headers   []collection.Header
	Auth      collection.Auth
	Variables []collection.Variable
}

// Layers returns the collection base followed by the declarations of every
// item on path, root first. path must come from collection.PathTo or an
// equivalent root-to-leaf walk; it is checked against the tree.
func Layers(c *collection.Collection, path []collection.ItemID) ([]collection.Config, error) {
	layers := make([]collection.Config, 0, len(path)+1)
	layers = append(layers, c.Base)

	seen := make(map[collection.ItemID]bool, len(path))
	siblings := c.Root
	for i, id := range path {
		if seen[id] {
			return nil, &collection.StructuralError{Item: id, Reason: "item repeats on path", Err: collection.ErrCycle}
		}
		seen[id] = true

		if !slices.Contains(siblings, id) {
			if _, ok := c.Item(id); !ok {
				return nil, fmt.Errorf("%q: %w", id, collection.ErrItemNotFound)
			}
			return nil, &collection.StructuralError{Item: id, Reason: "not a child of the previous path element", Err: collection.ErrDanglingReference}
		}
		item, _ := c.Item(id)
		if item == nil {
			return nil, &collection.StructuralError{Item: id, Err: collection.ErrDanglingReference}
		}
		layers = append(layers, item.Declared())

		if i < len(path)-1 {
			folder, ok := item.(*collection.Folder)
			if !ok {
				return nil, &collection.StructuralError{Item: id, Err: collection.ErrNotAFolder}
			}
			siblings = folder.Children
		}
	}
	return layers, nil
}

// Merge computes the effective configuration of the last item on path.
func Merge(c *collection.Collection, path []collection.ItemID) (Config, error) {
	layers, err := Layers(c, path)
	if err != nil {
		return Config{}, err
	}
	var acc Config
	for _, layer := range layers {
		acc = Apply(acc, layer)
	}
	return acc, nil
}

// Apply merges one layer over acc and returns a new Config; acc is not
// modified.
//
// Headers merge by case-insensitive name with the layer winning and keep
// first-seen order. Auth is replaced wholesale when the layer declares one.
// Variables merge by name with the layer winning. Disabled headers and
// variables in the layer are treated as absent.
func Apply(acc Config, layer collection.Config) Config {
	out := Config{
		Headers:   mergeHeaders(acc.Headers, layer.Headers),
		Auth:      acc.Auth,
		Variables: mergeVariables(acc.Variables, layer.Variables),
	}
	if layer.Auth != nil {
		out.Auth = layer.Auth
	}
	return out
}

func mergeHeaders(base, over []collection.Header) []collection.Header {
	out := make([]collection.Header, 0, len(base)+len(over))
	out = append(out, base...)
	for _, h := range over {
		if h.Disabled {
			continue
		}
		replaced := false
		for i := range out {
			if strings.EqualFold(out[i].Name, h.Name) {
				out[i] = h
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, h)
		}
	}
	return out
}

func mergeVariables(base, over []collection.Variable) []collection.Variable {
	out := make([]collection.Variable, 0, len(base)+len(over))
	for _, v := range base {
		out = append(out, copyVariable(v))
	}
	for _, v := range over {
		if v.Disabled {
			continue
		}
		replaced := false
		for i := range out {
			if out[i].Name == v.Name {
				out[i] = copyVariable(v)
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, copyVariable(v))
		}
	}
	return out
}

func copyVariable(v collection.Variable) collection.Variable {
	if len(v.Value.Variants) > 0 {
		v.Value.Variants = append([]collection.Variant(nil), v.Value.Variants...)
	}
	return v
}
