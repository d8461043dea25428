// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/meshintel/opera/pkg/types"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage research projects and their items of interest",
	Long: `Project manages research workspaces. A project owns a list of items of
interest (entities, organizations, locations, keywords); research cycles
generate their search queries from that list.`,
}

var projectNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a research project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		user, _ := cmd.Flags().GetString("user")
		project := &types.Project{
			ID:        uuid.NewString(),
			Name:      args[0],
			CreatedBy: user,
			CreatedAt: time.Now().UTC(),
		}
		if err := a.store.CreateProject(context.Background(), project); err != nil {
			return err
		}
		fmt.Printf("created project %s (%s)\n", project.Name, project.ID)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		projects, err := a.store.Projects(context.Background())
		if err != nil {
			return err
		}
		return emit(cmd, projects, func() {
			if len(projects) == 0 {
				fmt.Println("no projects")
				return
			}
			for _, p := range projects {
				fmt.Printf("%s  %s\n", p.ID, p.Name)
			}
		})
	},
}

var projectItemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List a project's items of interest",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		projectID, _ := cmd.Flags().GetString("project")
		items, err := a.store.Items(context.Background(), projectID)
		if err != nil {
			return err
		}
		return emit(cmd, items, func() {
			if len(items) == 0 {
				fmt.Println("no items")
				return
			}
			for _, item := range items {
				line := fmt.Sprintf("[%s] %s", item.Type, item.Name)
				if item.Coords != nil {
					line += fmt.Sprintf(" (%.4f, %.4f)", item.Coords.Latitude, item.Coords.Longitude)
				}
				fmt.Println(line)
			}
		})
	},
}

var projectAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add an item of interest to a project",
	Long: `Add registers a new item of interest. Names are stored lowercased and
deduplicated per project. Location items are geocoded on the way in when
the geocoder can resolve them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		projectID, _ := cmd.Flags().GetString("project")
		itemType, _ := cmd.Flags().GetString("type")
		description, _ := cmd.Flags().GetString("description")
		user, _ := cmd.Flags().GetString("user")

		switch types.ItemType(itemType) {
		case types.ItemEntity, types.ItemOrganization, types.ItemLocation, types.ItemKeyword:
		default:
			return fmt.Errorf("unknown item type %q (want entity, organization, location, or keyword)", itemType)
		}

		item := types.ProjectItem{
			ID:          uuid.NewString(),
			Name:        strings.ToLower(strings.TrimSpace(args[0])),
			Type:        types.ItemType(itemType),
			Description: description,
			AddedBy:     user,
			CreatedAt:   time.Now().UTC(),
		}

		if item.Type == types.ItemLocation {
			results, err := a.geo.Geocode(context.Background(), args[0])
			if err == nil && len(results) > 0 {
				item.Coords = &results[0].Coords
				item.Data = map[string]string{"address": results[0].Address}
			}
		}

		if err := a.store.AddItem(context.Background(), projectID, item); err != nil {
			return err
		}
		fmt.Printf("added [%s] %s\n", item.Type, item.Name)
		return nil
	},
}

func init() {
	projectNewCmd.Flags().String("user", "", "user recorded as the creator")

	addFormatFlag(projectListCmd)

	projectItemsCmd.Flags().String("project", "", "project ID")
	projectItemsCmd.MarkFlagRequired("project")
	addFormatFlag(projectItemsCmd)

	projectAddCmd.Flags().String("project", "", "project ID")
	projectAddCmd.MarkFlagRequired("project")
	projectAddCmd.Flags().String("type", "entity", "item type: entity, organization, location, or keyword")
	projectAddCmd.Flags().String("description", "", "optional free-text description")
	projectAddCmd.Flags().String("user", "", "user recorded as the adder")

	projectCmd.AddCommand(projectNewCmd, projectListCmd, projectItemsCmd, projectAddCmd)
	rootCmd.AddCommand(projectCmd)
}
