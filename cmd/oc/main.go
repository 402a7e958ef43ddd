package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/blackcoderx/opencollection/pkg/collection"
	"github.com/blackcoderx/opencollection/pkg/engine"
	"github.com/blackcoderx/opencollection/pkg/logging"
	"github.com/blackcoderx/opencollection/pkg/storage"
	"github.com/blackcoderx/opencollection/pkg/variables"
)

// ConfigFolderName holds the optional config.json.
const ConfigFolderName = ".oc"

var (
	cfgFile        string
	collectionPath string
	rootCmd        = &cobra.Command{
		Use:   "oc",
		Short: "OC - resolve and run OpenCollection API requests",
		Long: `OC loads an OpenCollection document, resolves its requests against an
environment (variables, inherited headers and auth, path and query params) and
optionally sends them and checks their assertions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if it exists (optional, warn if malformed)
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "Warning: Failed to load .env file: %v\n", err)
			}
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .oc/config.json)")
	flags.StringVarP(&collectionPath, "collection", "c", "collection.yaml", "OpenCollection document (YAML or JSON)")
	flags.StringP("env", "e", "", "Environment id or name used for variable substitution")
	flags.String("variant", "", "Variant description used to pick variable variants")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")

	_ = viper.BindPFlag("environment", flags.Lookup("env"))
	_ = viper.BindPFlag("variant", flags.Lookup("variant"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(ConfigFolderName)
		viper.SetConfigType("json")
		viper.SetConfigName("config")
	}

	viper.SetDefault("runner.on_failure", "stop")
	viper.SetDefault("runner.timeout", "30s")

	viper.SetEnvPrefix("OC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

// app is the state shared by the subcommands.
type app struct {
	logger     *zap.Logger
	engine     *engine.Engine
	collection *collection.Collection
	baseDir    string
}

// newApp builds the logger, loads and validates the collection and creates
// an engine configured from viper.
func newApp() (*app, error) {
	logger, err := logging.New(viper.GetString("log_level"))
	if err != nil {
		return nil, err
	}

	c, err := storage.LoadCollection(collectionPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	if err := collection.ValidateShape(c); err != nil {
		return nil, fmt.Errorf("invalid collection: %w", err)
	}

	var opts []engine.Option
	if variant := viper.GetString("variant"); variant != "" {
		opts = append(opts, engine.WithSelector(variables.SelectByDescription(variant)))
	}

	logger.Debug("collection loaded",
		zap.String("path", collectionPath),
		zap.Int("items", len(c.Items)),
		zap.Int("environments", len(c.Environments)))

	return &app{
		logger:     logger,
		engine:     engine.New(logger, opts...),
		collection: c,
		baseDir:    filepath.Dir(collectionPath),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// findItem accepts an item id or a slash separated name path.
func (a *app) findItem(key string) (collection.ItemID, error) {
	if _, ok := a.collection.Item(collection.ItemID(key)); ok {
		return collection.ItemID(key), nil
	}
	return collection.FindByPath(a.collection, key)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render(err.Error()))
		if hint := errorHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, DimStyle.Render(hint))
		}
		os.Exit(1)
	}
}

func errorHint(err error) string {
	if collection.IsStructural(err) {
		return "The collection document is malformed. Run 'oc validate' to list the problem."
	}
	return ""
}
