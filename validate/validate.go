// Command validate provides a small CLI that validates time-control preset
// files (.json, .yaml, .yml) in a configs directory. It checks:
//   - File syntax, rejecting unknown keys
//   - Required fields (name, description)
//   - time_limit format and range
//   - Player names (exactly two, non-empty, distinct) when given
//   - That a game can actually be started from the preset
//   - That no two files resolve to the same preset ID
//
// Usage: validate [configs-dir]   (default ../configs)
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/gobblets/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// decodeStrict decodes a preset and fails on keys GameConfig does not know
func decodeStrict(ext string, data []byte) (*engine.GameConfig, error) {
	var config engine.GameConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&config); err != nil {
			return nil, err
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&config); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported extension %q", ext)
	}
	return &config, nil
}

// validateConfig loads and validates a single preset file
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	config, err := decodeStrict(filepath.Ext(filePath), data)
	if err != nil {
		result.fail("Invalid syntax: %v", err)
		return result
	}

	if strings.TrimSpace(config.Description) == "" {
		result.fail("description is required")
	}

	if err := engine.ValidateGameConfig(config); err != nil {
		result.fail("%s", strings.TrimPrefix(err.Error(), engine.ErrInvalidConfig.Error()+": "))
		return result
	}

	eng, err := engine.NewEngine(config)
	if err != nil {
		result.fail("Cannot start a game: %v", err)
		return result
	}

	if !result.Valid {
		return result
	}

	names := config.PlayerNames()
	snap := eng.Snapshot()
	result.Errors = append(result.Errors,
		fmt.Sprintf("✓ Name: %s", config.Name),
		fmt.Sprintf("✓ Time limit: %s", engine.FormatTimeLimit(config.TimeLimitDuration())),
		fmt.Sprintf("✓ Stack preview: %t", config.StackPreview),
		fmt.Sprintf("✓ Players: %s vs %s", names[0], names[1]),
		fmt.Sprintf("✓ Opening: %s", snap.Status),
	)
	return result
}

// validateDir validates every preset file in dir, sorted by name, and flags
// files that share a preset ID
func validateDir(dir string) ([]ValidationResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && engine.IsConfigFile(entry.Name()) {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	seen := make(map[string]string)
	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		result := validateConfig(filepath.Join(dir, file))

		id := strings.ToLower(strings.TrimSuffix(file, filepath.Ext(file)))
		if first, ok := seen[id]; ok {
			result.fail("Preset ID %q already defined by %s", id, first)
		} else {
			seen[id] = file
		}

		results = append(results, result)
	}
	return results, nil
}

// main validates every preset in the directory given as first argument,
// printing a concise report and exiting with non-zero status if any are
// invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	results, err := validateDir(configDir)
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Printf("No preset files found in %s\n", configDir)
		os.Exit(1)
	}

	allValid := true
	for _, result := range results {
		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
