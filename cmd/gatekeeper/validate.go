package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the gate policy document",
	Long: `Validate loads the policy document (with any override applied) and checks
schema and semantic rules: undefined gate references, circular depends_on,
ordering consistency, glob syntax, and version format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bundle, err := loadBundle(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Valid: %d gates, %d exemption rules (policy %s)\n",
			len(bundle.Doc.Gates), len(bundle.Doc.Exemptions), bundle.ID[:12])
		return nil
	},
}
