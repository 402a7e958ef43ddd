package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/blackcoderx/opencollection/pkg/collection"
	"github.com/blackcoderx/opencollection/pkg/engine"
	"github.com/blackcoderx/opencollection/pkg/merge"
	"github.com/blackcoderx/opencollection/pkg/template"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the collection document and its item tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := collection.Validate(a.collection); err != nil {
			return fmt.Errorf("invalid collection: %w", err)
		}

		counts := map[collection.ItemType]int{}
		err = collection.Walk(a.collection, func(item collection.Item, _ int) error {
			counts[item.Type()]++
			return nil
		})
		if err != nil {
			return err
		}

		name := a.collection.Name
		if name == "" {
			name = collectionPath
		}
		fmt.Println(PassStyle.Render(fmt.Sprintf("✓ %s is valid", name)))
		for _, t := range []collection.ItemType{
			collection.ItemFolder,
			collection.ItemHTTP,
			collection.ItemGraphQL,
			collection.ItemGRPC,
			collection.ItemScript,
		} {
			if counts[t] > 0 {
				fmt.Println(DimStyle.Render(fmt.Sprintf("%s%d %s", InfoPrefix, counts[t], t)))
			}
		}
		fmt.Println(DimStyle.Render(fmt.Sprintf("%s%d environments", InfoPrefix, len(a.collection.Environments))))

		undeclared, err := undeclaredPlaceholders(a.collection)
		if err != nil {
			return err
		}
		for _, u := range undeclared {
			fmt.Println(WarnStyle.Render(fmt.Sprintf("! %s uses undeclared %v", u.item, u.names)))
		}
		return nil
	},
}

type undeclaredNames struct {
	item  collection.ItemID
	names []string
}

// undeclaredPlaceholders lists, per HTTP request in document order, the
// placeholder names that no environment and no scope on the request's path
// declares. Such placeholders stay verbatim in every resolution.
func undeclaredPlaceholders(c *collection.Collection) ([]undeclaredNames, error) {
	fromEnvs := map[string]bool{}
	for _, env := range c.Environments {
		for _, v := range env.Variables {
			if !v.Disabled {
				fromEnvs[v.Name] = true
			}
		}
	}

	ids, err := engine.HTTPItems(c, "")
	if err != nil {
		return nil, err
	}
	var out []undeclaredNames
	for _, id := range ids {
		path, err := collection.PathTo(c, id)
		if err != nil {
			return nil, err
		}
		layers, err := merge.Layers(c, path)
		if err != nil {
			return nil, err
		}

		declared := make(map[string]bool, len(fromEnvs))
		for name := range fromEnvs {
			declared[name] = true
		}
		var texts []string
		for _, layer := range layers {
			for _, v := range layer.Variables {
				if !v.Disabled {
					declared[v.Name] = true
				}
			}
			for _, h := range layer.Headers {
				texts = append(texts, h.Value)
			}
		}
		req := c.Items[id].(*collection.HTTPRequest)
		texts = append(texts, req.URL)
		for _, p := range req.Params {
			texts = append(texts, p.Value)
		}
		if raw, ok := req.Body.(collection.RawBody); ok {
			texts = append(texts, raw.Data)
		}

		seen := map[string]bool{}
		var names []string
		for _, text := range texts {
			for _, name := range template.Placeholders(text) {
				if !declared[name] && !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			}
		}
		if len(names) > 0 {
			sort.Strings(names)
			out = append(out, undeclaredNames{item: id, names: names})
		}
	}
	return out, nil
}
