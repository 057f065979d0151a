//go:build tools
// +build tools

package main

import (
	"encoding/json"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Schema represents the context-fact schema from config/context-schema.json
type Schema struct {
	Required []string `json:"required"`
}

// getRequiredFacts parses the schema to get the fact IDs the CLI consumes
func getRequiredFacts(schemaPath string) (map[string]bool, error) {
	data, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	var schema Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to parse schema JSON: %w", err)
	}

	requiredFacts := make(map[string]bool)
	for _, factID := range schema.Required {
		requiredFacts[factID] = false // not found yet
	}

	return requiredFacts, nil
}

// getProvidedFacts scans internal/source for context provider implementations
func getProvidedFacts() (map[string]bool, error) {
	providedFacts := make(map[string]bool)

	err := filepath.Walk("internal/source", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Only process Go files
		if !info.IsDir() && strings.HasSuffix(path, ".go") && !strings.HasSuffix(path, "_test.go") {
			fset := token.NewFileSet()
			file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
			if err != nil {
				return err
			}

			// Look for Describe method implementations
			ast.Inspect(file, func(n ast.Node) bool {
				funcDecl, ok := n.(*ast.FuncDecl)
				if !ok || funcDecl.Name.Name != "Describe" || funcDecl.Recv == nil || funcDecl.Body == nil {
					return true
				}

				// Extract the Schema{ID: "..."} literal from the method body
				src, err := os.ReadFile(path)
				if err != nil {
					return true
				}
				r := regexp.MustCompile(`Schema\{ID:\s*"([^"]+)"`)
				ast.Inspect(funcDecl.Body, func(n ast.Node) bool {
					ret, ok := n.(*ast.ReturnStmt)
					if !ok || len(ret.Results) == 0 || ret.Results[0] == nil {
						return true
					}
					pos := fset.Position(ret.Results[0].Pos())
					end := fset.Position(ret.Results[0].End())
					if pos.Offset >= 0 && end.Offset <= len(src) {
						matches := r.FindStringSubmatch(string(src[pos.Offset:end.Offset]))
						if len(matches) > 1 {
							providedFacts[matches[1]] = true
						}
					}
					return true
				})
				return true
			})
		}
		return nil
	})

	return providedFacts, err
}

func main() {
	// Get the facts the CLI expects from the schema
	requiredFacts, err := getRequiredFacts("config/context-schema.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting required facts: %v\n", err)
		os.Exit(1)
	}

	// Get provided facts from the codebase
	providedFacts, err := getProvidedFacts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning providers: %v\n", err)
		os.Exit(1)
	}

	// Verify that all required facts have providers
	missingFacts := []string{}
	for factID := range requiredFacts {
		if !providedFacts[factID] {
			missingFacts = append(missingFacts, factID)
		}
	}

	// Report missing facts
	if len(missingFacts) > 0 {
		fmt.Fprintf(os.Stderr, "ERROR: The following context facts have no provider implementations:\n")
		for _, factID := range missingFacts {
			fmt.Fprintf(os.Stderr, "  - %s\n", factID)
		}
		os.Exit(1)
	}

	fmt.Println("SUCCESS: All required context facts have provider implementations.")
}
