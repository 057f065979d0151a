package main

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/TheNeerajGarg/gatekeeper/internal/match"
)

var flagDebugDump bool

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show the effective gate set for a changeset without running anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		bundle, err := loadBundle(ctx)
		if err != nil {
			return err
		}

		cs, err := buildChangeset(ctx)
		if err != nil {
			return err
		}

		engine, err := match.New(bundle)
		if err != nil {
			return err
		}

		res, err := engine.Resolve(cs)
		if err != nil {
			return err
		}

		if flagDebugDump {
			fmt.Print(spew.Sdump(res))
			return nil
		}

		stage := res.Stage
		if stage == "" {
			stage = "(none - base standard)"
		}
		fmt.Printf("Policy:  %s\n", res.PolicyID[:12])
		fmt.Printf("Branch:  %s\n", res.Branch)
		fmt.Printf("Stage:   %s\n", stage)
		fmt.Printf("Files:   %d changed\n", len(res.Files))
		if len(res.MatchedRules) > 0 {
			fmt.Printf("Rules:   %v\n", res.MatchedRules)
		}
		fmt.Println()

		for _, g := range res.Gates {
			switch {
			case g.Exempted && g.ExemptedBy != "":
				fmt.Printf("  - %-20s exempted by rule %q\n", g.Name, g.ExemptedBy)
			case g.Exempted:
				fmt.Printf("  - %-20s exempted (%s)\n", g.Name, g.ExemptReason)
			default:
				kind := "optional"
				if g.Required {
					kind = "required"
				}
				detail := ""
				if g.Threshold != nil {
					detail = fmt.Sprintf(", threshold %d", *g.Threshold)
				}
				fmt.Printf("  * %-20s %s (%s%s)\n", g.Name, kind, g.Tool, detail)
			}
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&flagStage, "stage", "", "stage to resolve for (default: auto-detect)")
	resolveCmd.Flags().StringVar(&flagBranch, "branch", "", "branch name (default: from git)")
	resolveCmd.Flags().StringSliceVar(&flagFiles, "files", nil, "changed files (default: from git)")
	resolveCmd.Flags().BoolVar(&flagDebugDump, "debug", false, "dump the full resolution structure")
}
