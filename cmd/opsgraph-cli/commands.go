package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsgraph/opsgraph/internal/incident"
)

func newCreateCmd() *cobra.Command {
	var id, title, description, priority, assignedTo string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an incident",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			exists, err := manager.Exists(ctx, id)
			if err != nil {
				fatal("check incident", err)
			}
			if exists {
				fatal("create incident", fmt.Errorf("incident %s already exists", id))
			}

			var assignee *string
			if assignedTo != "" {
				assignee = &assignedTo
			}

			inc, err := manager.Create(ctx, id, title, description, priority, assignee)
			if err != nil {
				fatal("create incident", err)
			}
			output(inc)
		},
	}
	cmd.Flags().StringVarP(&id, "id", "i", "", "Incident ID")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "Medium", "Priority (Low|Medium|High|Critical)")
	cmd.Flags().StringVarP(&assignedTo, "assigned-to", "a", "", "Assignee")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func newViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view <id>",
		Short: "View an incident by ID",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			inc, err := manager.Get(context.Background(), args[0])
			if err != nil {
				if errors.Is(err, incident.ErrNotFound) {
					fatal("view incident", fmt.Errorf("incident %s not found", args[0]))
				}
				fatal("view incident", err)
			}
			output(inc)
		},
	}
}

func newUpdateCmd() *cobra.Command {
	var title, description, status, priority, assignedTo string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update incident fields (only supplied flags change)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			id := args[0]
			upd := incident.Update{}
			if cmd.Flags().Changed("title") {
				upd.Title = &title
			}
			if cmd.Flags().Changed("description") {
				upd.Description = &description
			}
			if cmd.Flags().Changed("status") {
				upd.Status = &status
			}
			if cmd.Flags().Changed("priority") {
				upd.Priority = &priority
			}
			if cmd.Flags().Changed("assigned-to") {
				upd.AssignedTo = &assignedTo
			}

			err := manager.Apply(context.Background(), id, upd)
			switch {
			case errors.Is(err, incident.ErrNoChanges):
				fatal("update incident", errors.New("no fields supplied, nothing to update"))
			case errors.Is(err, incident.ErrNotFound):
				fatal("update incident", fmt.Errorf("incident %s not found", id))
			case err != nil:
				fatal("update incident", err)
			}

			inc, err := manager.Get(context.Background(), id)
			if err != nil {
				fatal("fetch updated incident", err)
			}
			output(inc)
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Status (New|In Progress|Resolved|Closed|Triggered)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "Priority (Low|Medium|High|Critical)")
	cmd.Flags().StringVarP(&assignedTo, "assigned-to", "a", "", "Assignee")
	return cmd
}

func newListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List incidents",
		Run: func(cmd *cobra.Command, args []string) {
			incidents, err := manager.List(context.Background(), limit)
			if err != nil {
				fatal("list incidents", err)
			}
			output(incidents)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Max results")
	return cmd
}
