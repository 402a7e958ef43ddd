package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/blackcoderx/opencollection/pkg/collection"
	"github.com/blackcoderx/opencollection/pkg/engine"
	"github.com/blackcoderx/opencollection/pkg/runner"
)

func init() {
	flags := runCmd.Flags()
	flags.Float64("rate", 0, "Maximum requests per second (0 means unlimited)")
	flags.String("on-failure", "stop", "What to do when a request fails: stop or continue")
	flags.String("results-dir", "", "Directory to write a JSON results file to")
	flags.Duration("timeout", 0, "Per-request timeout (default 30s)")
	flags.BoolP("verbose", "v", false, "Print every response received")

	_ = viper.BindPFlag("runner.rate", flags.Lookup("rate"))
	_ = viper.BindPFlag("runner.on_failure", flags.Lookup("on-failure"))
	_ = viper.BindPFlag("runner.results_dir", flags.Lookup("results-dir"))
	_ = viper.BindPFlag("runner.timeout", flags.Lookup("timeout"))
	_ = viper.BindPFlag("runner.verbose", flags.Lookup("verbose"))

	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [folder|item]",
	Short: "Send the requests of the collection and check their assertions",
	Long: `Run resolves every HTTP request of the collection (or of one folder) and
sends them in document order. Each request passes when it gets a response and
all its enabled assertions hold.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		var root collection.ItemID
		if len(args) == 1 {
			if root, err = a.findItem(args[0]); err != nil {
				return err
			}
		}
		ids, err := engine.HTTPItems(a.collection, root)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println(DimStyle.Render("No HTTP requests to run"))
			return nil
		}

		r, err := runner.New(a.engine, a.logger, runner.Options{
			Rate:       viper.GetFloat64("runner.rate"),
			OnFailure:  viper.GetString("runner.on_failure"),
			ResultsDir: viper.GetString("runner.results_dir"),
			Timeout:    viper.GetDuration("runner.timeout"),
			BaseDir:    a.baseDir,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		name := a.collection.Name
		if name == "" {
			name = "collection"
		}
		result, err := r.Run(ctx, name, a.collection, ids, viper.GetString("environment"))
		if err != nil {
			return err
		}

		printSuite(result, viper.GetBool("runner.verbose"))
		if result.Failed > 0 {
			return fmt.Errorf("%d of %d requests failed", result.Failed, result.TotalTests)
		}
		return nil
	},
}

func printSuite(result *runner.SuiteResult, verbose bool) {
	fmt.Println(TitleStyle.Render(result.Name))
	for _, test := range result.Tests {
		detail := DimStyle.Render(fmt.Sprintf(" %s %s (%dms)", test.Method, test.URL, test.Duration.Milliseconds()))
		if test.Passed {
			fmt.Println(PassStyle.Render(PassPrefix+test.Name) + detail)
		} else {
			fmt.Println(ErrorStyle.Render(FailPrefix+test.Name) + detail)
			if test.Error != "" {
				fmt.Println(ErrorStyle.Render("      " + test.Error))
			}
		}
		for _, check := range test.Assertions {
			if check.Passed {
				continue
			}
			line := fmt.Sprintf("      %s %s %s: got %v", check.Expression, check.Operator, check.Expected, check.Actual)
			if check.Reason != "" {
				line += " (" + check.Reason + ")"
			}
			fmt.Println(DimStyle.Render(line))
		}
		if len(test.Unresolved) > 0 {
			fmt.Println(WarnStyle.Render(fmt.Sprintf("      unresolved: %v", test.Unresolved)))
		}
		if resp := test.Response(); verbose && resp != nil {
			fmt.Println(TextStyle.Render(indent(resp.FormatResponse(), "      ")))
		}
	}

	summary := fmt.Sprintf("%d passed, %d failed, %d total in %dms",
		result.Passed, result.Failed, result.TotalTests, result.Duration.Milliseconds())
	if skipped := result.TotalTests - len(result.Tests); skipped > 0 {
		summary += fmt.Sprintf(" (%d skipped)", skipped)
	}
	if result.Failed > 0 {
		fmt.Println(ErrorStyle.Render(summary))
	} else {
		fmt.Println(PassStyle.Render(summary))
	}
	if result.ResultsFile != "" {
		fmt.Println(DimStyle.Render("Results saved to " + result.ResultsFile))
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
