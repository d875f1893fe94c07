// generator.go provides config templates for dirsync init.
//
// Fields with defaults (interval, state_dir) are only written by templates
// that change them.

package config

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Template represents a configuration template type.
type Template string

const (
	// TemplateMinimal writes only the three roots.
	TemplateMinimal Template = "minimal"
	// TemplateBackup adds byte verification, a longer interval and common
	// excludes for an unattended backup replica.
	TemplateBackup Template = "backup"
)

// Templates lists the available templates in display order.
var Templates = []Template{TemplateMinimal, TemplateBackup}

// Roots are the user-chosen paths every template needs.
type Roots struct {
	Source  string
	Replica string
	LogFile string
}

// TemplateConfig holds a Config and the comments to insert before some of its keys.
type TemplateConfig struct {
	Config   Config
	Comments map[string]string // TOML key -> comment
}

// GenerateConfig returns the TOML content for the given template.
func GenerateConfig(template Template, roots Roots) (string, error) {
	tc := getTemplateConfig(template)
	tc.Config.Source = roots.Source
	tc.Config.Replica = roots.Replica
	tc.Config.LogFile = roots.LogFile

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(tc.Config); err != nil {
		return "", fmt.Errorf("encode template: %w", err)
	}

	content := buf.String()
	for key, comment := range tc.Comments {
		content = insertComment(content, key, comment)
	}

	return SchemaComment + content, nil
}

func getTemplateConfig(template Template) TemplateConfig {
	switch template {
	case TemplateMinimal:
		return TemplateConfig{}
	case TemplateBackup:
		return TemplateConfig{
			Config: Config{
				Interval:    Duration(5 * time.Minute),
				Exclude:     []string{".DS_Store", "Thumbs.db", "*.swp", "*.tmp"},
				VerifyBytes: true,
			},
			Comments: map[string]string{
				"exclude":      "gitignore-style patterns, matched against paths relative to the roots",
				"verify_bytes": "compare bytes after fingerprints match; slower, but immune to hash collisions",
			},
		}
	default:
		return getTemplateConfig(TemplateMinimal)
	}
}

// insertComment inserts a comment line before the first top-level line
// assigning key.
func insertComment(content, key, comment string) string {
	lines := strings.Split(content, "\n")
	result := make([]string, 0, len(lines)+1)
	done := false

	for _, line := range lines {
		if !done && isKeyLine(line, key) {
			result = append(result, "# "+comment)
			done = true
		}
		result = append(result, line)
	}

	return strings.Join(result, "\n")
}

func isKeyLine(line, key string) bool {
	rest, ok := strings.CutPrefix(line, key)
	return ok && strings.HasPrefix(strings.TrimSpace(rest), "=")
}
