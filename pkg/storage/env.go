package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blackcoderx/opencollection/pkg/collection"
)

// processEnvPattern matches {{process.env.NAME}} and the shorter {{env:NAME}}.
var processEnvPattern = regexp.MustCompile(`\{\{\s*(?:process\.env\.|env:)([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// EnvironmentsDir returns the environments directory next to a collection.
func EnvironmentsDir(baseDir string) string {
	return filepath.Join(baseDir, "environments")
}

// LoadEnvironment loads an environment file: a flat mapping of variable names
// to values. The environment is named after the file.
func LoadEnvironment(filePath string) (collection.Environment, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return collection.Environment{}, fmt.Errorf("failed to read environment file: %w", err)
	}

	var values map[string]string
	if err := yaml.Unmarshal(data, &values); err != nil {
		return collection.Environment{}, fmt.Errorf("failed to parse environment YAML: %w", err)
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	stem := environmentName(filepath.Base(filePath))
	env := collection.Environment{ID: "file:" + stem, Name: stem}
	for _, name := range names {
		env.Variables = append(env.Variables, collection.Variable{
			Name:  name,
			Value: collection.VariableValue{Data: ResolveProcessEnv(values[name])},
		})
	}
	return env, nil
}

// LoadEnvironments loads every environment file in baseDir's environments
// directory, sorted by name. A missing directory yields no environments.
func LoadEnvironments(baseDir string) ([]collection.Environment, error) {
	names, err := ListEnvironments(baseDir)
	if err != nil {
		return nil, err
	}
	dir := EnvironmentsDir(baseDir)
	envs := make([]collection.Environment, 0, len(names))
	for _, file := range names {
		env, err := LoadEnvironment(filepath.Join(dir, file))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		envs = append(envs, env)
	}
	return envs, nil
}

// SaveEnvironment writes variables as an environment file.
func SaveEnvironment(vars map[string]string, filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if !strings.HasSuffix(filePath, ".yaml") && !strings.HasSuffix(filePath, ".yml") {
		filePath = filePath + ".yaml"
	}

	data, err := yaml.Marshal(vars)
	if err != nil {
		return fmt.Errorf("failed to marshal environment: %w", err)
	}

	return os.WriteFile(filePath, data, 0644)
}

// ListEnvironments lists the environment file names in baseDir's
// environments directory.
func ListEnvironments(baseDir string) ([]string, error) {
	envDir := EnvironmentsDir(baseDir)

	if _, err := os.Stat(envDir); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(envDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read environments directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && (strings.HasSuffix(entry.Name(), ".yaml") || strings.HasSuffix(entry.Name(), ".yml")) {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// ResolveProcessEnv replaces process environment references with their
// values. References to unset variables are left untouched.
func ResolveProcessEnv(text string) string {
	return processEnvPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := processEnvPattern.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

func environmentName(file string) string {
	return strings.TrimSuffix(strings.TrimSuffix(file, ".yaml"), ".yml")
}
