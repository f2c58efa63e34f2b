package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docscribe/internal/types"
)

func newGithubCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "github",
		Short: "Import projects from the linked GitHub account",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "repos",
			Short: "List repositories of the linked account",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				repos, err := a.client.GithubRepos(cmd.Context())
				if err != nil {
					return err
				}
				if a.opts.json {
					return a.printJSON(repos)
				}
				rows := make([][]string, 0, len(repos))
				for _, r := range repos {
					rows = append(rows, []string{r.FullName, orDash(r.DefaultBranch), yesNo(r.Private), yesNo(r.AppInstalled)})
				}
				return a.table([]string{"REPOSITORY", "DEFAULT BRANCH", "PRIVATE", "APP INSTALLED"}, rows)
			},
		},
		&cobra.Command{
			Use:   "branches <owner/repo>",
			Short: "List branches of a repository",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				owner, repo, err := splitRepo(args[0])
				if err != nil {
					return err
				}
				branches, err := a.client.GithubBranches(cmd.Context(), owner, repo)
				if err != nil {
					return err
				}
				if a.opts.json {
					return a.printJSON(branches)
				}
				for _, b := range branches {
					fmt.Fprintln(a.stdout, b.Name)
				}
				return nil
			},
		},
		newGithubImportCmd(a),
	)
	return cmd
}

func newGithubImportCmd(a *app) *cobra.Command {
	var (
		in  types.GithubImportRequest
		use bool
	)
	cmd := &cobra.Command{
		Use:   "import <owner/repo>",
		Short: "Create a project from a repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, repo, err := splitRepo(args[0])
			if err != nil {
				return err
			}
			in.RepoFullName = owner + "/" + repo
			if strings.TrimSpace(in.Name) == "" {
				in.Name = repo
			}
			if strings.TrimSpace(in.Ref) == "" {
				in.Ref = "main"
			}
			a.info("Importing %s@%s, this can take a while for large repositories...", in.RepoFullName, in.Ref)
			p, err := a.client.GithubImport(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("import %s: %w", in.RepoFullName, err)
			}
			if use {
				a.sess.SetActiveProject(p.ID)
				if err := a.sess.Save(); err != nil {
					return err
				}
			}
			a.success("Imported %s as project %s", in.RepoFullName, p.ID)
			return a.printProjects([]types.Project{p})
		},
	}
	cmd.Flags().StringVar(&in.Ref, "ref", "main", "branch, tag or commit")
	cmd.Flags().StringVar(&in.Name, "name", "", "project name (default: repository name)")
	cmd.Flags().StringVar(&in.Description, "description", "", "project description")
	cmd.Flags().StringSliceVar(&in.Tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().BoolVar(&use, "use", true, "make the imported project active")
	return cmd
}

func splitRepo(s string) (owner, repo string, err error) {
	s = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "https://github.com/"), ".git")
	owner, repo, ok := strings.Cut(s, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("repository must be owner/repo, got %q", s)
	}
	return owner, repo, nil
}
