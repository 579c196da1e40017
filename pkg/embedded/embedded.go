// Package embedded provides embedded static assets for the application.
package embedded

import (
	"embed"
	"fmt"
)

// Schemas contains the SQL schema files embedded in the Go binary.
// Each database (config, results, cache) has one schema file, applied
// by database.Migrate on startup. Embedding them keeps migration
// independent of the working directory and the install layout.
//
//go:embed schemas
var Schemas embed.FS

// Schema returns the contents of a single schema file by name,
// e.g. "results_schema.sql".
func Schema(name string) ([]byte, error) {
	content, err := Schemas.ReadFile("schemas/" + name)
	if err != nil {
		return nil, fmt.Errorf("embedded schema %s: %w", name, err)
	}
	return content, nil
}
