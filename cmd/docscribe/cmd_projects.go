package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docscribe/internal/types"
)

func newProjectsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "Create, inspect and select projects",
	}
	cmd.AddCommand(
		newProjectCreateCmd(a),
		newProjectGetCmd(a),
		newProjectUpdateCmd(a),
		newProjectDeleteCmd(a),
		newProjectUseCmd(a),
		newProjectListCmd(a),
	)
	return cmd
}

func newProjectCreateCmd(a *app) *cobra.Command {
	var (
		in  types.ProjectCreate
		use bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(in.Name) == "" {
				return fmt.Errorf("--name is required")
			}
			p, err := a.client.CreateProject(cmd.Context(), in)
			if err != nil {
				return err
			}
			if use {
				a.sess.SetActiveProject(p.ID)
				if err := a.sess.Save(); err != nil {
					return err
				}
			}
			a.success("Project %s created (%s)", p.Name, p.ID)
			return a.printProjects([]types.Project{p})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "project name")
	cmd.Flags().StringVar(&in.Description, "description", "", "project description")
	cmd.Flags().StringSliceVar(&in.Tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().BoolVar(&use, "use", true, "make the new project active")
	return cmd
}

func newProjectGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get [project-id]",
		Short: "Show a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.projectID(args)
			if err != nil {
				return err
			}
			p, err := a.client.GetProject(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printProjects([]types.Project{p})
		},
	}
}

func newProjectUpdateCmd(a *app) *cobra.Command {
	var name, description, status string
	cmd := &cobra.Command{
		Use:   "update [project-id]",
		Short: "Rename a project or change its description or status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.projectID(args)
			if err != nil {
				return err
			}
			var in types.ProjectUpdate
			if cmd.Flags().Changed("name") {
				in.Name = &name
			}
			if cmd.Flags().Changed("description") {
				in.Description = &description
			}
			if cmd.Flags().Changed("status") {
				s, err := parseProjectStatus(status)
				if err != nil {
					return err
				}
				in.Status = &s
			}
			if in.Name == nil && in.Description == nil && in.Status == nil {
				return fmt.Errorf("nothing to update; pass --name, --description or --status")
			}
			p, err := a.client.UpdateProject(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			a.success("Project %s updated", p.ID)
			return a.printProjects([]types.Project{p})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&status, "status", "", "complete, in_progress or empty")
	return cmd
}

func parseProjectStatus(s string) (types.ProjectStatus, error) {
	switch st := types.ProjectStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case types.ProjectComplete, types.ProjectInProgress, types.ProjectEmpty:
		return st, nil
	}
	return "", fmt.Errorf("unknown project status %q", s)
}

func newProjectDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [project-id]",
		Short: "Delete a project with its files, preferences and revisions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.projectID(args)
			if err != nil {
				return err
			}
			if a.cached != nil {
				err = a.cached.DeleteProject(cmd.Context(), id)
			} else {
				err = a.client.DeleteProject(cmd.Context(), id)
			}
			if err != nil {
				return err
			}
			a.sess.Forget(id)
			if err := a.sess.Save(); err != nil {
				return err
			}
			a.success("Project %s deleted", id)
			return nil
		},
	}
}

func newProjectUseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "use <project-id>",
		Short: "Make a project the default for later commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.client.GetProject(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("project %s: %w", args[0], err)
			}
			a.sess.SetActiveProject(p.ID)
			if err := a.sess.Save(); err != nil {
				return err
			}
			a.success("Using project %s (%s)", p.Name, p.ID)
			return nil
		},
	}
}

func newProjectListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := a.userID(cmd.Context())
			if err != nil {
				return err
			}
			list, err := a.client.UserProjects(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return a.printProjects(list)
		},
	}
}

// userID is the session's user, looked up when the session predates it.
func (a *app) userID(ctx context.Context) (string, error) {
	if id := a.sess.UserID(); id != "" {
		return id, nil
	}
	me, err := a.client.Me(ctx)
	if err != nil {
		return "", err
	}
	if me.ID == "" {
		return "", fmt.Errorf("the service did not report a user id")
	}
	a.sess.SetToken(a.sess.Token(), me.Username, me.ID)
	_ = a.sess.Save()
	return me.ID, nil
}

func (a *app) printProjects(list []types.Project) error {
	if a.opts.json {
		return a.printJSON(list)
	}
	active := a.sess.ActiveProject()
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		mark := ""
		if p.ID == active {
			mark = "*"
		}
		created := "-"
		if !p.CreatedAt.IsZero() {
			created = p.CreatedAt.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{mark, p.ID, p.Name, orDash(string(p.Status)), created, orDash(strings.Join(p.Tags, ","))})
	}
	return a.table([]string{"", "ID", "NAME", "STATUS", "CREATED", "TAGS"}, rows)
}
