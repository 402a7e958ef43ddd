package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blackcoderx/opencollection/pkg/collection"
	"github.com/blackcoderx/opencollection/pkg/engine"
	"github.com/blackcoderx/opencollection/pkg/resolve"
)

var (
	resolveJSON bool
	resolveCurl bool
	resolveCopy bool
	resolvePick bool
)

func init() {
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Print the resolved request as JSON")
	resolveCmd.Flags().BoolVar(&resolveCurl, "curl", false, "Print the resolved request as a curl command")
	resolveCmd.Flags().BoolVar(&resolveCopy, "copy", false, "Copy the curl command to the clipboard")
	resolveCmd.Flags().BoolVar(&resolvePick, "pick", false, "Choose the environment interactively")
	rootCmd.AddCommand(resolveCmd)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <item>",
	Short: "Resolve a request against an environment and print it",
	Long: `Resolve builds the concrete request for an item: variables are substituted,
folder and collection headers and auth are inherited, and path and query
params are applied. The item is given by id or by name path ("Users/Get user").`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		id, err := a.findItem(args[0])
		if err != nil {
			return err
		}

		envKey := viper.GetString("environment")
		if resolvePick {
			envKey, err = pickEnvironment(a.collection)
			if err != nil {
				return err
			}
		}

		res, err := a.engine.Resolve(a.collection, id, envKey)
		if err != nil {
			return err
		}

		if resolveCopy {
			if err := clipboard.WriteAll(res.Request.Curl()); err != nil {
				return fmt.Errorf("failed to copy to clipboard: %w", err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), DimStyle.Render("curl command copied to clipboard"))
		}

		switch {
		case resolveJSON:
			data, err := json.MarshalIndent(res.Request, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
		case resolveCurl:
			fmt.Println(res.Request.Curl())
		default:
			printMarkdown(requestMarkdown(res))
		}

		if len(res.Unresolved) > 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), WarnStyle.Render("unresolved: "+strings.Join(res.Unresolved, ", ")))
		}
		return nil
	},
}

func pickEnvironment(c *collection.Collection) (string, error) {
	if len(c.Environments) == 0 {
		return "", errors.New("the collection has no environments to pick from")
	}
	options := make([]huh.Option[string], 0, len(c.Environments))
	for _, env := range c.Environments {
		options = append(options, huh.NewOption(env.Name, env.ID))
	}

	var selected string
	err := huh.NewSelect[string]().
		Title("Environment").
		Options(options...).
		Value(&selected).
		Run()
	return selected, err
}

// printMarkdown renders md with glamour, falling back to the raw text.
func printMarkdown(md string) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Println(md)
		return
	}

	out, err := renderer.Render(md)
	if err != nil {
		fmt.Println(md)
		return
	}
	fmt.Print(out)
}

// requestMarkdown describes a resolved request as a markdown document.
func requestMarkdown(res *engine.Result) string {
	req := res.Request
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", res.Item.Name)
	fmt.Fprintf(&sb, "`%s %s`\n\n", req.Method, req.URL)
	if res.Environment != "" {
		fmt.Fprintf(&sb, "**Environment:** %s\n\n", res.Environment)
	}

	writeTable(&sb, "Headers", req.Headers)
	writeTable(&sb, "Query", req.QueryParams)

	if fields := resolve.AuthFields(req.Auth); fields != nil {
		authType := fields["type"]
		delete(fields, "type")
		fmt.Fprintf(&sb, "## Auth: %s\n\n", authType)
		writeRows(&sb, fields)
	}

	switch b := req.Body.(type) {
	case collection.RawBody:
		fmt.Fprintf(&sb, "## Body (%s)\n\n```%s\n%s\n```\n\n", b.Kind, b.Kind, b.Data)
	case collection.FormBody:
		fmt.Fprintf(&sb, "## Body (%s)\n\n| Name | Value |\n|---|---|\n", b.Kind)
		for _, f := range b.Fields {
			value := f.Value
			if f.IsFile {
				value = "@" + value
			}
			fmt.Fprintf(&sb, "| %s | %s |\n", f.Name, value)
		}
		sb.WriteString("\n")
	case collection.FileBody:
		sb.WriteString("## Body (file)\n\n")
		for _, f := range b.Files {
			fmt.Fprintf(&sb, "- `%s`\n", f.FilePath)
		}
		sb.WriteString("\n")
	}

	if names := res.Variables.Names(); len(names) > 0 {
		sb.WriteString("## Variables\n\n| Name | Value | Scope |\n|---|---|---|\n")
		for _, name := range names {
			value, _ := res.Variables.Lookup(name)
			scope, _ := res.Variables.Scope(name)
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", name, value, scope)
		}
		sb.WriteString("\n")
	}

	if len(res.Unresolved) > 0 {
		sb.WriteString("## Unresolved\n\n")
		for _, name := range res.Unresolved {
			fmt.Fprintf(&sb, "- `{{%s}}`\n", name)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeTable(sb *strings.Builder, title string, values map[string]string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(sb, "## %s\n\n", title)
	writeRows(sb, values)
}

func writeRows(sb *strings.Builder, values map[string]string) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteString("| Name | Value |\n|---|---|\n")
	for _, k := range keys {
		fmt.Fprintf(sb, "| %s | %s |\n", k, values[k])
	}
	sb.WriteString("\n")
}
