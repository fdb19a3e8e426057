// Command validate provides a small CLI that validates tool manifest JSON
// files shipped by Pulsar packages. It checks:
//   - JSON structure and required fields
//   - Tool names against the bridge's route shape (UpperCamelCase)
//   - Duplicate tool names and empty descriptions
//   - Input schemas: object type, declared properties, required fields
//   - Annotation hints against the MCP tool annotation set
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Manifest mirrors the JSON shape a Pulsar package ships to declare the
// tools it registers with the bridge.
type Manifest struct {
	Package string         `json:"package"`
	Tools   []ManifestTool `json:"tools"`
}

// ManifestTool is one declared tool.
type ManifestTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
	Annotations map[string]any `json:"annotations"`
}

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// The bridge only routes tool names of this shape, anything else is
// unreachable over REST.
var toolNamePattern = regexp.MustCompile(`^[A-Z][a-zA-Z]*$`)

// Hints defined by the MCP tool annotation set.
var knownAnnotations = map[string]bool{
	"title":           true,
	"readOnlyHint":    true,
	"destructiveHint": true,
	"idempotentHint":  true,
	"openWorldHint":   true,
}

// validateManifest loads and validates a single manifest JSON file.
// It performs structural checks, name and annotation validation, and
// schema analysis for every declared tool.
func validateManifest(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if manifest.Package == "" {
		result.Valid = false
		result.Errors = append(result.Errors, "Missing package name")
	}

	if len(manifest.Tools) == 0 {
		result.Valid = false
		result.Errors = append(result.Errors, "No tools declared")
	}

	seen := map[string]bool{}
	readOnlyCount := 0
	destructiveCount := 0

	for i, tool := range manifest.Tools {
		if tool.Name == "" {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Tool %d: name is empty", i+1))
			continue
		}

		if !toolNamePattern.MatchString(tool.Name) {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Tool %s: name must match %s", tool.Name, toolNamePattern.String()))
		}

		if seen[tool.Name] {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Duplicate tool name: %s", tool.Name))
		}
		seen[tool.Name] = true

		if strings.TrimSpace(tool.Description) == "" {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Tool %s: description is empty", tool.Name))
		}

		readOnly := false
		destructive := false
		for key, value := range tool.Annotations {
			if !knownAnnotations[key] {
				result.Valid = false
				result.Errors = append(result.Errors, fmt.Sprintf("Tool %s: unknown annotation %q", tool.Name, key))
				continue
			}
			if hint, ok := value.(bool); ok && hint {
				switch key {
				case "readOnlyHint":
					readOnly = true
					readOnlyCount++
				case "destructiveHint":
					destructive = true
					destructiveCount++
				}
			}
		}
		if readOnly && destructive {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Tool %s: readOnlyHint and destructiveHint are both set", tool.Name))
		}

		schemaResult := validateSchema(tool.Name, tool.InputSchema)
		if !schemaResult.Valid {
			result.Valid = false
		}
		result.Errors = append(result.Errors, schemaResult.Errors...)
	}

	// Add informational data
	if result.Valid {
		info := []string{
			fmt.Sprintf("✓ Package: %s", manifest.Package),
			fmt.Sprintf("✓ Tools: %d", len(manifest.Tools)),
			fmt.Sprintf("✓ Read-only: %d", readOnlyCount),
			fmt.Sprintf("✓ Destructive: %d", destructiveCount),
		}
		result.Errors = append(info, result.Errors...)
	}

	return result
}

// validateSchema checks one tool's input schema: the type must be
// "object", properties must be objects, and every required field must
// be declared in properties. A nil schema is allowed, the bridge
// substitutes an empty object schema at listing time.
func validateSchema(toolName string, schema map[string]any) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	if schema == nil {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ %s: no parameters", toolName))
		return result
	}

	if typ, ok := schema["type"].(string); !ok || typ != "object" {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Tool %s: inputSchema.type must be \"object\", got %v", toolName, schema["type"]))
		return result
	}

	properties := map[string]any{}
	if raw, exists := schema["properties"]; exists {
		props, ok := raw.(map[string]any)
		if !ok {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Tool %s: properties must be an object", toolName))
			return result
		}
		properties = props
	}

	for name, raw := range properties {
		if _, ok := raw.(map[string]any); !ok {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Tool %s: property %q is not an object", toolName, name))
		}
	}

	requiredCount := 0
	if raw, exists := schema["required"]; exists {
		required, ok := raw.([]any)
		if !ok {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Tool %s: required must be an array", toolName))
			return result
		}
		for _, entry := range required {
			name, ok := entry.(string)
			if !ok {
				result.Valid = false
				result.Errors = append(result.Errors, fmt.Sprintf("Tool %s: required entries must be strings, got %v", toolName, entry))
				continue
			}
			if _, declared := properties[name]; !declared {
				result.Valid = false
				result.Errors = append(result.Errors, fmt.Sprintf("Tool %s: required field %q is not declared in properties", toolName, name))
			}
			requiredCount++
		}
	}

	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ %s: %d parameters, %d required", toolName, len(properties), requiredCount))
	}

	return result
}

// main validates the manifest files named on the command line, or every
// *.json file in the current directory when none are given. It prints a
// concise report and exits with non-zero status if any are invalid.
func main() {
	files := os.Args[1:]
	if len(files) == 0 {
		matches, err := filepath.Glob("*.json")
		if err != nil {
			fmt.Printf("Error finding manifest files: %v\n", err)
			os.Exit(1)
		}
		files = matches
	}
	sort.Strings(files)

	if len(files) == 0 {
		fmt.Println("No manifest files found")
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateManifest(file)

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
		fmt.Println("✅ All manifests are valid!")
	} else {
		fmt.Println("❌ Some manifests have errors")
		os.Exit(1)
	}
}
