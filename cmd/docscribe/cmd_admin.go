package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"docscribe/internal/api"
)

var errNeedConfirm = errors.New("refusing to delete everything without --yes")

// adminResource is one collection of the admin API. The funcs take the
// receiver first so api.Admin method expressions fit directly.
type adminResource struct {
	name      string
	list      func(adm api.Admin, ctx context.Context) (header []string, rows [][]string, raw any, err error)
	delete    func(adm api.Admin, ctx context.Context, id string) error
	deleteAll func(adm api.Admin, ctx context.Context) error
	cleanup   func(adm api.Admin, ctx context.Context) (api.CleanupResult, error)
}

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative operations (admin accounts only)",
	}
	for _, r := range adminResources() {
		cmd.AddCommand(newAdminResourceCmd(a, r))
	}
	return cmd
}

func adminResources() []adminResource {
	return []adminResource{
		{
			name: "users",
			list: func(adm api.Admin, ctx context.Context) ([]string, [][]string, any, error) {
				users, err := adm.Users(ctx)
				rows := make([][]string, 0, len(users))
				for _, u := range users {
					rows = append(rows, []string{orDash(u.ID), u.Username, orDash(u.Email), yesNo(u.IsAdmin)})
				}
				return []string{"ID", "USERNAME", "EMAIL", "ADMIN"}, rows, users, err
			},
			delete:    api.Admin.DeleteUser,
			deleteAll: api.Admin.DeleteAllUsers,
		},
		{
			name: "projects",
			list: func(adm api.Admin, ctx context.Context) ([]string, [][]string, any, error) {
				projects, err := adm.Projects(ctx)
				rows := make([][]string, 0, len(projects))
				for _, p := range projects {
					rows = append(rows, []string{p.ID, p.Name, orDash(p.UserID), orDash(string(p.Status))})
				}
				return []string{"ID", "NAME", "OWNER", "STATUS"}, rows, projects, err
			},
			delete:    api.Admin.DeleteProject,
			deleteAll: api.Admin.DeleteAllProjects,
			cleanup:   api.Admin.CleanupProjects,
		},
		{
			name: "files",
			list: func(adm api.Admin, ctx context.Context) ([]string, [][]string, any, error) {
				files, err := adm.Files(ctx)
				rows := make([][]string, 0, len(files))
				for _, f := range files {
					rows = append(rows, []string{orDash(f.ID), orDash(f.ProjectID), f.Key(), fmt.Sprint(len(f.Functions)), fmt.Sprint(len(f.Classes))})
				}
				return []string{"ID", "PROJECT", "FILE", "FUNCTIONS", "CLASSES"}, rows, files, err
			},
			delete:    api.Admin.DeleteFile,
			deleteAll: api.Admin.DeleteAllFiles,
			cleanup:   api.Admin.CleanupFiles,
		},
		{
			name: "docs",
			list: func(adm api.Admin, ctx context.Context) ([]string, [][]string, any, error) {
				docs, err := adm.Documentations(ctx)
				rows := make([][]string, 0, len(docs))
				for _, d := range docs {
					rows = append(rows, []string{d.Key(), orDash(d.ProjectID), orDash(d.Format), formatTime(d.CreatedAt)})
				}
				return []string{"REVISION", "PROJECT", "FORMAT", "CREATED"}, rows, docs, err
			},
			delete:    api.Admin.DeleteDocumentation,
			deleteAll: api.Admin.DeleteAllDocumentations,
			cleanup:   api.Admin.CleanupDocumentations,
		},
	}
}

func newAdminResourceCmd(a *app, r adminResource) *cobra.Command {
	cmd := &cobra.Command{
		Use:   r.name,
		Short: "Manage all " + r.name,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all " + r.name,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			header, rows, raw, err := r.list(a.client.Admin(), cmd.Context())
			if err != nil {
				return err
			}
			if a.opts.json {
				return a.printJSON(raw)
			}
			return a.table(header, rows)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete " + r.name + " by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			adm := a.client.Admin()
			for _, id := range args {
				if err := r.delete(adm, cmd.Context(), id); err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
				a.success("Deleted %s", id)
			}
			return nil
		},
	})

	var yes bool
	deleteAll := &cobra.Command{
		Use:   "delete-all",
		Short: "Delete every one of the " + r.name,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errNeedConfirm
			}
			if err := r.deleteAll(a.client.Admin(), cmd.Context()); err != nil {
				return err
			}
			a.success("Deleted all %s", r.name)
			return nil
		},
	}
	deleteAll.Flags().BoolVar(&yes, "yes", false, "confirm deleting everything")
	cmd.AddCommand(deleteAll)

	if r.cleanup != nil {
		cmd.AddCommand(&cobra.Command{
			Use:   "cleanup",
			Short: "Remove orphaned " + r.name,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				res, err := r.cleanup(a.client.Admin(), cmd.Context())
				if err != nil {
					return err
				}
				if a.opts.json {
					return a.printJSON(res)
				}
				a.success("Cleanup of %s finished", r.name)
				return a.printJSON(res)
			},
		})
	}
	return cmd
}
