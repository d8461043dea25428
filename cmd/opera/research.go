// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Run and inspect research cycles",
	Long: `Research runs automated research cycles. A cycle generates search queries
from the project's items, searches the web, scrapes and mines the results,
and queues novel findings for review. One cycle runs at a time per
project.`,
}

var researchStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run one research cycle to completion",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		projectID, _ := cmd.Flags().GetString("project")
		user, _ := cmd.Flags().GetString("user")

		cycle, err := a.manager.StartCycle(context.Background(), projectID, user)
		if err != nil {
			return err
		}
		// Let queued scrape jobs from any immediate approvals drain; the
		// cycle itself queues review items, not jobs.
		a.jobs.Wait()

		fmt.Printf("cycle %d %s: %d sources, %d findings queued for review\n",
			cycle.CycleNumber, cycle.Status, cycle.SourcesFound, cycle.FindingsQueued)
		return nil
	},
}

var researchStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the project's cycle history",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		projectID, _ := cmd.Flags().GetString("project")
		cycles, err := a.store.CyclesFor(context.Background(), projectID)
		if err != nil {
			return err
		}
		return emit(cmd, cycles, func() {
			if len(cycles) == 0 {
				fmt.Println("no cycles yet")
				return
			}
			for _, c := range cycles {
				line := fmt.Sprintf("cycle %d  %s  %d sources  %d findings",
					c.CycleNumber, c.Status, c.SourcesFound, c.FindingsQueued)
				if c.CompletedAt != nil {
					line += fmt.Sprintf("  finished %s", c.CompletedAt.Format("2006-01-02 15:04"))
				}
				fmt.Println(line)
			}
		})
	},
}

func init() {
	researchStartCmd.Flags().String("project", "", "project ID")
	researchStartCmd.MarkFlagRequired("project")
	researchStartCmd.Flags().String("user", "", "user recorded on queued findings")

	researchStatusCmd.Flags().String("project", "", "project ID")
	researchStatusCmd.MarkFlagRequired("project")
	addFormatFlag(researchStatusCmd)

	researchCmd.AddCommand(researchStartCmd, researchStatusCmd)
	rootCmd.AddCommand(researchCmd)
}
