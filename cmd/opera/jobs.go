// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect the background job queue",
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending job counts by status and type",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		status := a.jobs.GetStatus()
		return emit(cmd, status, func() {
			fmt.Printf("%d job(s) pending, processing: %v\n", status.Total, status.Processing)
			for jobType, n := range status.ByType {
				fmt.Printf("  %s: %d\n", jobType, n)
			}
		})
	},
}

func init() {
	addFormatFlag(jobsStatusCmd)
	jobsCmd.AddCommand(jobsStatusCmd)
	rootCmd.AddCommand(jobsCmd)
}
