package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackcoderx/opencollection/pkg/collection"
	"github.com/blackcoderx/opencollection/pkg/engine"
	"github.com/blackcoderx/opencollection/pkg/storage"
	"github.com/blackcoderx/opencollection/pkg/variables"
)

func init() {
	envsCmd.AddCommand(envsExportCmd)
	rootCmd.AddCommand(envsCmd)
}

var envsCmd = &cobra.Command{
	Use:   "envs",
	Short: "List the environments of the collection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if len(a.collection.Environments) == 0 {
			fmt.Println(DimStyle.Render("No environments defined"))
			return nil
		}
		fmt.Println(TitleStyle.Render("Environments"))
		for _, env := range a.collection.Environments {
			line := fmt.Sprintf("%s%s", InfoPrefix, env.Name)
			if env.ID != env.Name {
				line += DimStyle.Render(fmt.Sprintf(" (%s)", env.ID))
			}
			line += DimStyle.Render(fmt.Sprintf(" %d variables", len(env.Variables)))
			fmt.Println(line)
		}

		files, err := storage.ListEnvironments(a.baseDir)
		if err != nil {
			return err
		}
		if len(files) > 0 {
			fmt.Println(DimStyle.Render(fmt.Sprintf("Loaded from %s: %v", storage.EnvironmentsDir(a.baseDir), files)))
		}
		return nil
	},
}

var envsExportCmd = &cobra.Command{
	Use:   "export <environment> <file>",
	Short: "Write the effective collection variables of an environment to a file",
	Long: `Export flattens the environment and the collection base variables with the
usual precedence and writes the non-transient values to a flat YAML file that
can be placed in the environments directory.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		env, ok := a.collection.Environment(args[0])
		if !ok {
			return fmt.Errorf("%q: %w", args[0], engine.ErrEnvironmentNotFound)
		}
		store := variables.Build(env, []collection.Config{a.collection.Base})
		vars := store.Exported()
		if err := storage.SaveEnvironment(vars, args[1]); err != nil {
			return err
		}
		fmt.Println(PassStyle.Render(fmt.Sprintf("✓ exported %d variables to %s", len(vars), args[1])))
		return nil
	},
}
