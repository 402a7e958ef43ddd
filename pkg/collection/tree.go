package collection

import (
	"fmt"
	"strings"
)

// Validate checks the structural invariants of the whole document: the item
// graph reachable from Root is a tree (no cycles, no shared children, no
// dangling references) and every auth and body block is well formed.
func Validate(c *Collection) error {
	if err := ValidateShape(c); err != nil {
		return err
	}
	if err := ValidateAuth(c.Base.Auth); err != nil {
		return structural("", "collection base auth", err)
	}
	return walkTree(c, func(id ItemID, item Item) error {
		if err := validateItem(item); err != nil {
			return structural(id, "", err)
		}
		return nil
	})
}

// ValidateShape checks only that the item graph reachable from Root is a
// tree. Auth and body blocks are not inspected.
func ValidateShape(c *Collection) error {
	if c == nil {
		return structural("", "nil collection", nil)
	}
	return walkTree(c, nil)
}

// ValidatePath checks the collection base and every item on path, as
// returned by PathTo. Items off the path are not inspected.
func ValidatePath(c *Collection, path []ItemID) error {
	if c == nil {
		return structural("", "nil collection", nil)
	}
	if err := ValidateAuth(c.Base.Auth); err != nil {
		return structural("", "collection base auth", err)
	}
	for _, id := range path {
		item, ok := c.Items[id]
		if !ok || item == nil {
			return structural(id, "", ErrItemNotFound)
		}
		if err := validateItem(item); err != nil {
			return structural(id, "", err)
		}
	}
	return nil
}

// walkTree visits every item reachable from Root depth first and fails on
// cycles, shared children and dangling references. fn may be nil.
func walkTree(c *Collection, fn func(ItemID, Item) error) error {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[ItemID]int, len(c.Items))

	var visit func(parent, id ItemID) error
	visit = func(parent, id ItemID) error {
		switch state[id] {
		case visiting:
			return structural(id, fmt.Sprintf("reached again from %q", parent), ErrCycle)
		case done:
			return structural(id, fmt.Sprintf("also referenced from %q", parent), ErrSharedItem)
		}
		item, ok := c.Items[id]
		if !ok || item == nil {
			return structural(parent, fmt.Sprintf("child %q", id), ErrDanglingReference)
		}
		state[id] = visiting
		if fn != nil {
			if err := fn(id, item); err != nil {
				return err
			}
		}
		if f, ok := item.(*Folder); ok {
			for _, child := range f.Children {
				if err := visit(id, child); err != nil {
					return err
				}
			}
		}
		state[id] = done
		return nil
	}

	for _, id := range c.Root {
		if err := visit("", id); err != nil {
			return err
		}
	}
	return nil
}

func validateItem(item Item) error {
	if err := ValidateAuth(item.Declared().Auth); err != nil {
		return err
	}
	switch v := item.(type) {
	case *HTTPRequest:
		for _, p := range v.Params {
			if p.Type != ParamQuery && p.Type != ParamPath {
				return fmt.Errorf("param %q type %q: %w", p.Name, p.Type, ErrUnknownType)
			}
		}
		return ValidateBody(v.Body)
	case *Folder, *Script, *GraphQLRequest, *GRPCRequest:
		return nil
	default:
		return fmt.Errorf("item variant %T: %w", item, ErrUnknownType)
	}
}

// PathTo returns the ancestor chain from a root item down to id, inclusive.
func PathTo(c *Collection, id ItemID) ([]ItemID, error) {
	seen := make(map[ItemID]bool)
	onPath := make(map[ItemID]bool)
	var path []ItemID

	var search func(cur ItemID) (bool, error)
	search = func(cur ItemID) (bool, error) {
		if onPath[cur] {
			return false, structural(cur, "", ErrCycle)
		}
		if seen[cur] {
			return false, structural(cur, "", ErrSharedItem)
		}
		seen[cur] = true
		onPath[cur] = true
		path = append(path, cur)
		if cur == id {
			return true, nil
		}
		if f, ok := c.Items[cur].(*Folder); ok {
			for _, child := range f.Children {
				found, err := search(child)
				if found || err != nil {
					return found, err
				}
			}
		}
		path = path[:len(path)-1]
		delete(onPath, cur)
		return false, nil
	}

	for _, root := range c.Root {
		found, err := search(root)
		if err != nil {
			return nil, err
		}
		if found {
			return path, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", id, ErrItemNotFound)
}

// FindByPath resolves a slash separated path of item names, e.g.
// "Users/Get user", to an item id. Matching follows document order.
func FindByPath(c *Collection, namePath string) (ItemID, error) {
	parts := strings.Split(strings.Trim(namePath, "/"), "/")
	level := c.Root
	var found ItemID
	for i, name := range parts {
		found = ""
		for _, id := range level {
			if item, ok := c.Items[id]; ok && item.Info().Name == name {
				found = id
				break
			}
		}
		if found == "" {
			return "", fmt.Errorf("%q: %w", namePath, ErrItemNotFound)
		}
		if i < len(parts)-1 {
			f, ok := c.Items[found].(*Folder)
			if !ok {
				return "", fmt.Errorf("%q: %w", namePath, ErrItemNotFound)
			}
			level = f.Children
		}
	}
	return found, nil
}

// Walk visits every reachable item in document order, depth first.
// depth is 0 for root items. Walk assumes a validated collection.
func Walk(c *Collection, fn func(item Item, depth int) error) error {
	var walk func(ids []ItemID, depth int) error
	walk = func(ids []ItemID, depth int) error {
		for _, id := range ids {
			item, ok := c.Items[id]
			if !ok {
				continue
			}
			if err := fn(item, depth); err != nil {
				return err
			}
			if f, ok := item.(*Folder); ok {
				if err := walk(f.Children, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(c.Root, 0)
}
