package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/spf13/cobra"

	"github.com/blackcoderx/opencollection/pkg/engine"
)

func init() {
	rootCmd.AddCommand(diffCmd)
}

var diffCmd = &cobra.Command{
	Use:   "diff <item> <environment> <environment>",
	Short: "Show how a request differs between two environments",
	Args:  cobra.ExactArgs(3),
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
		before, err := a.engine.Resolve(a.collection, id, args[1])
		if err != nil {
			return err
		}
		after, err := a.engine.Resolve(a.collection, id, args[2])
		if err != nil {
			return err
		}

		unified, err := requestDiff(before, after)
		if err != nil {
			return err
		}
		if unified == "" {
			fmt.Println(DimStyle.Render("No differences"))
			return nil
		}
		fmt.Print(colorDiff(unified))
		return nil
	},
}

// requestDiff returns a unified diff of the JSON form of two resolutions.
func requestDiff(before, after *engine.Result) (string, error) {
	a, err := json.MarshalIndent(before.Request, "", "  ")
	if err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(after.Request, "", "  ")
	if err != nil {
		return "", err
	}
	original, modified := string(a)+"\n", string(b)+"\n"

	edits := udiff.Strings(original, modified)
	return udiff.ToUnified(before.Environment, after.Environment, original, edits, 3)
}

func colorDiff(unified string) string {
	var sb strings.Builder
	for _, line := range strings.SplitAfter(unified, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			sb.WriteString(TitleStyle.Render(strings.TrimSuffix(line, "\n")))
		case strings.HasPrefix(line, "@@"):
			sb.WriteString(DimStyle.Render(strings.TrimSuffix(line, "\n")))
		case strings.HasPrefix(line, "+"):
			sb.WriteString(PassStyle.Render(strings.TrimSuffix(line, "\n")))
		case strings.HasPrefix(line, "-"):
			sb.WriteString(ErrorStyle.Render(strings.TrimSuffix(line, "\n")))
		default:
			sb.WriteString(strings.TrimSuffix(line, "\n"))
		}
		if strings.HasSuffix(line, "\n") {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
