// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review findings queued by research cycles",
	Long: `Review lists and resolves findings awaiting human judgment. Approving a
finding promotes it into the project's items (locations are geocoded on
demand) and may trigger a background scrape of its source page. Rejecting
discards it. Findings are addressed by ID or by their position in the
pending list.`,
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending findings",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		projectID, _ := cmd.Flags().GetString("project")
		all, _ := cmd.Flags().GetBool("all")

		items, err := a.reviews.ItemsFor(context.Background(), projectID)
		if err != nil {
			return err
		}
		if !all {
			pending := items[:0]
			for _, item := range items {
				if !item.Reviewed {
					pending = append(pending, item)
				}
			}
			items = pending
		}

		return emit(cmd, items, func() {
			if len(items) == 0 {
				fmt.Println("review queue is empty")
				return
			}
			n := 0
			for _, item := range items {
				ref := item.ID
				if !item.Reviewed {
					n++
					ref = fmt.Sprintf("%d", n)
				}
				line := fmt.Sprintf("%s  [%s] %s  confidence %.1f", ref, item.FindingKind, item.DisplayName(), item.Confidence)
				if item.Reviewed {
					line += fmt.Sprintf("  (%s)", item.Status)
				}
				fmt.Println(line)
				if item.ContextSnippet != "" {
					fmt.Printf("    %s\n", item.ContextSnippet)
				}
				if item.SourceURL != "" {
					fmt.Printf("    source: %s\n", item.SourceURL)
				}
			}
		})
	},
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve [id-or-index]",
	Short: "Approve a pending finding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		projectID, _ := cmd.Flags().GetString("project")
		user, _ := cmd.Flags().GetString("user")

		item, err := a.reviews.Approve(context.Background(), projectID, args[0], user)
		if err != nil {
			return err
		}
		// Give the approval-triggered scrape, if any, time to run.
		a.jobs.Wait()
		fmt.Printf("approved [%s] %s\n", item.FindingKind, item.DisplayName())
		return nil
	},
}

var reviewRejectCmd = &cobra.Command{
	Use:   "reject [id-or-index]",
	Short: "Reject a pending finding",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		projectID, _ := cmd.Flags().GetString("project")
		user, _ := cmd.Flags().GetString("user")

		item, err := a.reviews.Reject(context.Background(), projectID, args[0], user)
		if err != nil {
			return err
		}
		fmt.Printf("rejected [%s] %s\n", item.FindingKind, item.DisplayName())
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{reviewListCmd, reviewApproveCmd, reviewRejectCmd} {
		c.Flags().String("project", "", "project ID")
		c.MarkFlagRequired("project")
	}
	reviewListCmd.Flags().Bool("all", false, "include reviewed findings")
	addFormatFlag(reviewListCmd)
	reviewApproveCmd.Flags().String("user", "", "user recorded as the reviewer")
	reviewRejectCmd.Flags().String("user", "", "user recorded as the reviewer")

	reviewCmd.AddCommand(reviewListCmd, reviewApproveCmd, reviewRejectCmd)
	rootCmd.AddCommand(reviewCmd)
}
