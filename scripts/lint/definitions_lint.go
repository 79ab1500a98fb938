package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stripe/pg-schema-fx/internal/definition"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "definitions-lint",
		Short: "Lints view and function definition files, replacing tabs with spaces and adding the trailing newline",
	}
	dirPath := rootCmd.Flags().String("dir", "./db", "Directory containing the views/ and functions/ definition directories")
	fix := rootCmd.Flags().Bool("fix", false, "Apply changes (without this flag, only shows what would change)")
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if !*fix {
			fmt.Println("Running in dry-run mode. Use --fix to apply changes.")
		}

		result, err := lint(*dirPath, *fix)
		if err != nil {
			return err
		}

		for _, p := range result.problems {
			fmt.Printf("error: %s\n", p)
		}
		if len(result.filesRequiringChanges) > 0 {
			verb := "require changes"
			if *fix {
				verb = "fixed"
			}
			fmt.Printf("The following files %s:\n", verb)
			for _, f := range result.filesRequiringChanges {
				fmt.Printf(" - %s\n", f)
			}
		}
		if len(result.problems) > 0 || (len(result.filesRequiringChanges) > 0 && !*fix) {
			os.Exit(1)
		}
		if len(result.filesRequiringChanges) == 0 {
			fmt.Println("No changes required!")
		}
		return nil
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

type lintResult struct {
	filesRequiringChanges []string
	// problems cannot be fixed automatically, e.g., a misnamed file
	problems []string
}

func lint(dirPath string, fix bool) (lintResult, error) {
	var result lintResult
	store := definition.NewStore(os.DirFS(dirPath))
	for _, kind := range []definition.Kind{definition.KindView, definition.KindFunction} {
		kindDir := filepath.Join(dirPath, string(kind))
		entries, err := os.ReadDir(kindDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return lintResult{}, fmt.Errorf("reading %s: %w", kindDir, err)
		}

		names := make(map[string]bool)
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
				continue
			}
			path := filepath.Join(kindDir, entry.Name())
			name, _, ok := definition.ParseFileName(entry.Name())
			if !ok {
				result.problems = append(result.problems, fmt.Sprintf("%s is not named <name>_v<NN>.sql", path))
				continue
			}
			names[name] = true

			changed, err := processFile(path, fix)
			if err != nil {
				return lintResult{}, fmt.Errorf("processFile: %w", err)
			}
			if changed {
				result.filesRequiringChanges = append(result.filesRequiringChanges, path)
			}
		}

		var sortedNames []string
		for name := range names {
			sortedNames = append(sortedNames, name)
		}
		sort.Strings(sortedNames)
		for _, name := range sortedNames {
			// Surfaces duplicate versions, e.g., foo_v1.sql and foo_v01.sql
			if _, err := store.Latest(kind, name); err != nil {
				result.problems = append(result.problems, err.Error())
			}
		}
	}
	return result, nil
}

// processFile replaces tabs with four spaces and ensures the file ends with exactly one newline. It returns whether
// changes are required. If fix is false, the file is not updated.
func processFile(filePath string, fix bool) (bool, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", filePath, err)
	}
	fixed := formatDefinition(string(content))
	if fixed == string(content) {
		return false, nil
	}
	if !fix {
		return true, nil
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return false, fmt.Errorf("os.Stat: %w", err)
	}
	if err := os.WriteFile(filePath, []byte(fixed), info.Mode()&fs.ModePerm); err != nil {
		return false, fmt.Errorf("writing %s: %w", filePath, err)
	}
	return true, nil
}

func formatDefinition(content string) string {
	content = strings.ReplaceAll(content, "\t", "    ")
	return strings.TrimRight(content, "\n") + "\n"
}
