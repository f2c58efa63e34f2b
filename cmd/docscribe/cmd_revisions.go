package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"docscribe/internal/archive"
	"docscribe/internal/preference"
	"docscribe/internal/types"
)

func newRevisionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "revisions",
		Aliases: []string{"rev", "revs"},
		Short:   "Browse, download and compare generated documentation",
	}
	cmd.AddCommand(
		newRevisionsListCmd(a),
		newRevisionsShowCmd(a),
		newRevisionsDownloadCmd(a),
		newRevisionsDiffCmd(a),
		newRevisionsNotesCmd(a),
		newRevisionsDeleteCmd(a),
	)
	return cmd
}

func newRevisionsListCmd(a *app) *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "list [project-id]",
		Short: "List revisions, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.projectID(args)
			if err != nil {
				return err
			}
			if local {
				return a.listArchived(cmd.Context(), id)
			}
			list, err := a.client.ListRevisions(cmd.Context(), id)
			if err != nil {
				return err
			}
			if a.opts.json {
				return a.printJSON(list.Revisions)
			}
			rows := make([][]string, 0, len(list.Revisions))
			for _, r := range list.Revisions {
				rows = append(rows, []string{r.Key(), orDash(r.Format), formatTime(r.CreatedAt), orDash(r.CreatedBy), orDash(r.Notes)})
			}
			return a.table([]string{"REVISION", "FORMAT", "CREATED", "BY", "NOTES"}, rows)
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "list the local archive instead of the service")
	return cmd
}

func (a *app) listArchived(ctx context.Context, projectID string) error {
	arc, err := a.openArchiver(ctx)
	if err != nil {
		return err
	}
	list, err := arc.Revisions(ctx, projectID)
	if err != nil {
		return err
	}
	if a.opts.json {
		return a.printJSON(list)
	}
	rows := make([][]string, 0, len(list))
	for _, m := range list {
		rows = append(rows, []string{m.RevisionID, orDash(m.Format), formatTime(m.CreatedAt), fmt.Sprint(m.Size), m.ArchivedAt.Local().Format("2006-01-02 15:04")})
	}
	return a.table([]string{"REVISION", "FORMAT", "CREATED", "BYTES", "ARCHIVED"}, rows)
}

func formatTime(ts types.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04")
}

// revisionArgs accepts "<revision>" or "<project> <revision>".
func (a *app) revisionArgs(args []string) (projectID, revisionID string, err error) {
	if len(args) == 2 {
		return args[0], args[1], nil
	}
	projectID, err = a.projectID(nil)
	if err != nil {
		return "", "", err
	}
	return projectID, args[0], nil
}

func newRevisionsShowCmd(a *app) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show [project-id] <revision-id>",
		Short: "Print a revision; Markdown is rendered for the terminal",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, rid, err := a.revisionArgs(args)
			if err != nil {
				return err
			}
			rev, err := a.client.GetRevision(cmd.Context(), pid, rid)
			if err != nil {
				return err
			}
			if a.opts.json {
				return a.printJSON(rev)
			}
			fmt.Fprintf(a.stderr, "%s\n", dimStyle.Render(fmt.Sprintf("%s  %s  %s", rev.Key(), orDash(rev.Format), formatTime(rev.CreatedAt))))
			if rev.Content == "" {
				a.warn("Revision has no inline content; use `docscribe revisions download`")
				return nil
			}
			if !raw && preference.Format(rev.Format).Canonical() == preference.FormatMarkdown {
				return renderMarkdown(a.stdout, rev.Content)
			}
			_, err = fmt.Fprintln(a.stdout, rev.Content)
			return err
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print Markdown unrendered")
	return cmd
}

// archiveRevision downloads one revision and stores it in the local archive.
func (a *app) archiveRevision(ctx context.Context, projectID, revisionID string) (archive.Manifest, error) {
	arc, err := a.openArchiver(ctx)
	if err != nil {
		return archive.Manifest{}, err
	}
	rev, dl, err := a.fetchRevision(ctx, projectID, revisionID)
	if err != nil {
		return archive.Manifest{}, err
	}
	m, err := arc.Archive(ctx, rev, &dl)
	if err != nil {
		return archive.Manifest{}, err
	}
	a.success("Archived %s (%d bytes)", m.RevisionID, m.Size)
	return m, nil
}

func (a *app) fetchRevision(ctx context.Context, projectID, revisionID string) (types.Revision, types.Download, error) {
	rev, err := a.client.GetRevision(ctx, projectID, revisionID)
	if err != nil {
		return types.Revision{}, types.Download{}, err
	}
	if rev.ProjectID == "" {
		rev.ProjectID = projectID
	}
	if rev.Key() == "" {
		rev.ID = revisionID
	}
	dl, err := a.client.DownloadRevision(ctx, projectID, revisionID)
	if err != nil {
		return types.Revision{}, types.Download{}, err
	}
	return rev, dl, nil
}

func newRevisionsDownloadCmd(a *app) *cobra.Command {
	var (
		output    string
		noArchive bool
	)
	cmd := &cobra.Command{
		Use:   "download [project-id] <revision-id>",
		Short: "Download the rendered document",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pid, rid, err := a.revisionArgs(args)
			if err != nil {
				return err
			}
			rev, dl, err := a.fetchRevision(ctx, pid, rid)
			if err != nil {
				return err
			}
			if output == "" {
				output = dl.Filename
			}
			if output == "" {
				output = "documentation." + preference.Format(rev.Format).Canonical().Ext()
			}
			if output == "-" {
				_, err = a.stdout.Write(dl.Body)
			} else {
				err = os.WriteFile(output, dl.Body, 0o644)
			}
			if err != nil {
				return err
			}
			if output != "-" {
				a.success("Saved %s (%d bytes)", output, len(dl.Body))
			}
			if noArchive {
				return nil
			}
			arc, err := a.openArchiver(ctx)
			if err != nil {
				return err
			}
			if _, err := arc.Archive(ctx, rev, &dl); err != nil {
				a.warn("Could not archive %s: %v", rid, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (- for stdout; defaults to the server filename)")
	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "do not keep a copy in the local archive")
	return cmd
}

func newRevisionsDiffCmd(a *app) *cobra.Command {
	var contextLines int
	cmd := &cobra.Command{
		Use:   "diff [project-id] <from-revision> <to-revision>",
		Short: "Show a line diff between two revisions",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var pid string
			if len(args) == 3 {
				pid, args = args[0], args[1:]
			} else {
				var err error
				if pid, err = a.projectID(nil); err != nil {
					return err
				}
			}
			arc, err := a.openArchiver(ctx)
			if err != nil {
				return err
			}
			for _, rid := range args {
				if err := a.ensureArchived(ctx, arc, pid, rid); err != nil {
					return err
				}
			}
			d, err := arc.Compare(ctx, pid, args[0], args[1])
			if err != nil {
				return err
			}
			if a.opts.json {
				return a.printJSON(d)
			}
			if !d.Changed() {
				a.info("Revisions are identical")
				return nil
			}
			for _, line := range strings.Split(strings.TrimRight(d.Render(contextLines), "\n"), "\n") {
				switch {
				case strings.HasPrefix(line, "+ "):
					line = successStyle.Render(line)
				case strings.HasPrefix(line, "- "):
					line = errorStyle.Render(line)
				}
				fmt.Fprintln(a.stdout, line)
			}
			fmt.Fprintf(a.stderr, "%s\n", dimStyle.Render(fmt.Sprintf("+%d -%d", d.Added, d.Removed)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&contextLines, "context", "C", 3, "unchanged lines to show around each change")
	return cmd
}

func (a *app) ensureArchived(ctx context.Context, arc *archive.Archiver, projectID, revisionID string) error {
	_, err := arc.Manifest(ctx, projectID, revisionID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, archive.ErrNotFound) {
		return err
	}
	a.log.Debug("revision not archived; downloading",
		zap.String("project_id", projectID), zap.String("revision_id", revisionID))
	rev, dl, err := a.fetchRevision(ctx, projectID, revisionID)
	if err != nil {
		return err
	}
	_, err = arc.Archive(ctx, rev, &dl)
	return err
}

func newRevisionsNotesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "notes [project-id] <revision-id> <notes>",
		Short: "Replace the notes of a revision",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			notes := args[len(args)-1]
			pid, rid, err := a.revisionArgs(args[:len(args)-1])
			if err != nil {
				return err
			}
			rev, err := a.client.UpdateRevision(cmd.Context(), pid, rid, notes)
			if err != nil {
				return err
			}
			if a.opts.json {
				return a.printJSON(rev)
			}
			a.success("Notes updated for %s", rid)
			return nil
		},
	}
}

func newRevisionsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [project-id] <revision-id>",
		Short: "Delete a revision",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, rid, err := a.revisionArgs(args)
			if err != nil {
				return err
			}
			if err := a.client.DeleteRevision(cmd.Context(), pid, rid); err != nil {
				return err
			}
			a.success("Deleted revision %s", rid)
			return nil
		},
	}
}
