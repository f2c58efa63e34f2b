package main

import (
	"io"

	"github.com/spf13/cobra"
)

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "docscribe",
		Short: "Generate docstrings for Python projects from the terminal",
		Long: `docscribe drives the documentation service: it uploads Python sources,
records which files, directories, functions, classes and methods to leave
out, asks the model to write docstrings, and keeps the rendered revisions
(HTML, PDF or Markdown) in a local archive.

Preferences are edited in three steps. Files & directories (step 0) must be
saved before functions & classes (step 1) and project settings (step 2)
unlock. Changing step 0 clears the choices made in step 1.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.BoolVarP(&a.opts.verbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&a.opts.apiURL, "api-url", "", "documentation service base URL")
	pf.StringVarP(&a.opts.project, "project", "p", "", "project id (defaults to the active project)")
	pf.StringVar(&a.opts.configPath, "config", "", "config file (default $DOCSCRIBE_CONFIG or ~/.config/docscribe/config.yaml)")
	pf.BoolVar(&a.opts.json, "json", false, "print JSON instead of tables")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newProjectsCmd(a),
		newGithubCmd(a),
		newFilesCmd(a),
		newPrefsCmd(a),
		newPlanCmd(a),
		newGenerateCmd(a),
		newWarmupCmd(a),
		newRevisionsCmd(a),
		newAdminCmd(a),
		newServeCmd(a),
	)
	return root
}
