package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TheNeerajGarg/gatekeeper/internal/bypass"
)

var flagBypassDir string

var bypassesCmd = &cobra.Command{
	Use:   "bypasses",
	Short: "List recorded emergency bypasses, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := flagBypassDir
		if dir == "" {
			bundle, err := loadBundle(cmd.Context())
			if err != nil {
				return err
			}
			dir = bundle.Doc.Bypass.RecordDirName()
		}

		records, err := bypass.New(dir, nil).List()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No bypasses recorded.")
			return nil
		}

		for _, rec := range records {
			fmt.Printf("%s  %s  %s\n", rec.Timestamp.Format("2006-01-02 15:04:05"), rec.User, rec.Reason)
			if rec.Branch != "" {
				fmt.Printf("    branch: %s", rec.Branch)
				if rec.Stage != "" {
					fmt.Printf("  stage: %s", rec.Stage)
				}
				fmt.Println()
			}
			if len(rec.SkippedGates) > 0 {
				fmt.Printf("    skipped: %s\n", strings.Join(rec.SkippedGates, ", "))
			}
			for _, s := range rec.Suggestions {
				fmt.Printf("    hint: %s\n", s)
			}
		}
		return nil
	},
}

func init() {
	bypassesCmd.Flags().StringVar(&flagBypassDir, "dir", "", "bypass record directory (default: from the policy document)")
}
