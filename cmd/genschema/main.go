// Command genschema prints the JSON Schema of .dirsync.toml, or writes it to
// the path given as the first argument.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/bolasblack/dirsync/internal/config"
)

func main() {
	r := jsonschema.Reflector{
		// Property names follow the toml tags users write.
		FieldNameTag:               "toml",
		RequiredFromJSONSchemaTags: true,
	}

	schema := r.Reflect(&config.SchemaConfig{})
	schema.Title = "dirsync Configuration"
	schema.Description = "Configuration schema for .dirsync.toml"
	schema.ID = ""

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 {
		if err := os.WriteFile(os.Args[1], append(data, '\n'), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
		return
	}
	fmt.Println(string(data))
}
