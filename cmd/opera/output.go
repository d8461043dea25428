// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	yaml "go.yaml.in/yaml/v3"
)

// addFormatFlag registers the shared output-format flag on list commands.
func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "text", "output format: text, json, or yaml")
}

// emit renders v in the requested structured format, or calls text for the
// human-readable default.
func emit(cmd *cobra.Command, v any, text func()) error {
	format, _ := cmd.Flags().GetString("output")
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		_, err = os.Stdout.Write(data)
		return err
	case "text", "":
		text()
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
