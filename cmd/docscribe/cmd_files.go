package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"docscribe/internal/api"
	"docscribe/internal/pathutil"
	"docscribe/internal/safeio"
)

func newFilesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "files",
		Aliases: []string{"file"},
		Short:   "Upload and inspect the project's Python files",
	}
	cmd.AddCommand(
		newFilesListCmd(a),
		newFilesTreeCmd(a),
		newFilesShowCmd(a),
		newFilesUploadCmd(a),
		newFilesDeleteCmd(a),
	)
	return cmd
}

func newFilesListCmd(a *app) *cobra.Command {
	var onlyIncluded bool
	cmd := &cobra.Command{
		Use:   "list [project-id]",
		Short: "List parsed files and whether they are documented",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.projectID(args)
			if err != nil {
				return err
			}
			store, err := a.loadStore(cmd.Context(), id)
			if err != nil {
				return err
			}
			files := store.Files()
			if onlyIncluded {
				files = store.IncludedFiles()
			}
			if a.opts.json {
				return a.printJSON(files)
			}
			rows := make([][]string, 0, len(files))
			for _, f := range files {
				included := store.IsFileIncluded(f.DisplayName(), f.Key())
				entry, _ := store.EntryFor(f)
				skipped := len(entry.ExcludeFunctions) + len(entry.ExcludeClasses) + len(entry.ExcludeMethods)
				rows = append(rows, []string{
					f.Key(), yesNo(included),
					fmt.Sprint(len(f.Functions)), fmt.Sprint(len(f.Classes)), fmt.Sprint(f.MethodCount()),
					fmt.Sprint(skipped), orDash(f.ID),
				})
			}
			return a.table([]string{"PATH", "INCLUDED", "FUNCTIONS", "CLASSES", "METHODS", "SKIPPED ITEMS", "ID"}, rows)
		},
	}
	cmd.Flags().BoolVar(&onlyIncluded, "included", false, "only files that will be documented")
	return cmd
}

func newFilesTreeCmd(a *app) *cobra.Command {
	var onlyIncluded bool
	cmd := &cobra.Command{
		Use:   "tree [project-id]",
		Short: "Show the project's file tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.projectID(args)
			if err != nil {
				return err
			}
			store, err := a.loadStore(cmd.Context(), id)
			if err != nil {
				return err
			}
			tree := store.Tree()
			if a.opts.json {
				return a.printJSON(tree)
			}
			var keep func(string) bool
			if onlyIncluded {
				keep = func(p string) bool { return store.IsFileIncluded(pathutil.Base(p), p) }
			}
			fmt.Fprintln(a.stdout, tree.Render(keep))
			a.info("%d files", tree.CountFiles())
			return nil
		},
	}
	cmd.Flags().BoolVar(&onlyIncluded, "included", false, "hide excluded files")
	return cmd
}

func newFilesShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <file-id>",
		Short: "Show the functions, classes and methods of one file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.projectID(nil)
			if err != nil {
				return err
			}
			f, err := a.client.GetFile(cmd.Context(), id, args[0])
			if err != nil {
				return err
			}
			if a.opts.json {
				return a.printJSON(f)
			}
			fmt.Fprintln(a.stdout, headerStyle.Render(f.Key()))
			for _, fn := range f.Functions {
				fmt.Fprintf(a.stdout, "  def %s\n", fn.Name)
			}
			for _, c := range f.Classes {
				fmt.Fprintf(a.stdout, "  class %s\n", c.Name)
				for _, m := range c.Methods {
					fmt.Fprintf(a.stdout, "    def %s\n", m.Name)
				}
			}
			return nil
		},
	}
}

// uploader is implemented by api.Client and api.CachedClient.
type uploader interface {
	UploadFile(ctx context.Context, projectID, filename string, content io.Reader) (api.UploadResult, error)
	UploadFiles(ctx context.Context, projectID string, files map[string]io.Reader) (api.UploadResult, error)
	UploadZip(ctx context.Context, projectID, filename string, content io.Reader) (api.UploadResult, error)
}

func (a *app) uploader() uploader {
	if a.cached != nil {
		return a.cached
	}
	return a.client
}

func newFilesUploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <path>...",
		Short: "Upload Python files, directories of them, or a .zip archive",
		Long: `Upload sources to the active project. Directories are searched for .py
files, skipping hidden, cache and virtualenv directories. A .zip argument is
sent as a zipped project. Paths must lie under the working directory.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.projectID(nil)
			if err != nil {
				return err
			}
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			fsys, err := safeio.NewSafeFS(cwd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			up := a.uploader()

			var sources []safeio.Source
			for _, arg := range args {
				if strings.EqualFold(pathutil.Ext(arg), "zip") {
					raw, err := fsys.ReadFile(arg)
					if err != nil {
						return err
					}
					res, err := up.UploadZip(ctx, id, pathutil.Base(arg), bytes.NewReader(raw))
					if err != nil {
						return fmt.Errorf("upload %s: %w", arg, err)
					}
					a.success("Uploaded %s (%d files parsed)", arg, len(res.Files))
					continue
				}
				found, err := fsys.PythonSources(arg)
				if err != nil {
					return err
				}
				sources = append(sources, found...)
			}

			switch len(sources) {
			case 0:
				return nil
			case 1:
				s := sources[0]
				if _, err := up.UploadFile(ctx, id, s.Name, bytes.NewReader(s.Content)); err != nil {
					return fmt.Errorf("upload %s: %w", s.Name, err)
				}
			default:
				files := make(map[string]io.Reader, len(sources))
				for _, s := range sources {
					files[s.Name] = bytes.NewReader(s.Content)
				}
				if _, err := up.UploadFiles(ctx, id, files); err != nil {
					return fmt.Errorf("upload %d files: %w", len(sources), err)
				}
			}
			a.success("Uploaded %d Python file(s)", len(sources))
			return nil
		},
	}
}

func newFilesDeleteCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "delete [file-id]",
		Short: "Delete one file, or every file with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.projectID(nil)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			switch {
			case all:
				err = a.client.DeleteAllFiles(ctx, id)
			case len(args) == 1:
				err = a.client.DeleteFile(ctx, id, args[0])
			default:
				return fmt.Errorf("pass a file id or --all")
			}
			a.invalidate(id)
			if err != nil {
				return err
			}
			a.success("Deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "delete every file of the project")
	return cmd
}
