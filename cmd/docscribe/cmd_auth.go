package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"docscribe/internal/types"
)

type credentialFlags struct {
	username string
	email    string
	password string
}

func (f *credentialFlags) bind(cmd *cobra.Command, withEmail bool) {
	cmd.Flags().StringVarP(&f.username, "username", "u", "", "account name")
	cmd.Flags().StringVar(&f.password, "password", "", "password (default $DOCSCRIBE_PASSWORD, else read from stdin)")
	if withEmail {
		cmd.Flags().StringVar(&f.email, "email", "", "email address")
	}
	_ = cmd.MarkFlagRequired("username")
}

// resolvePassword falls back to $DOCSCRIBE_PASSWORD and then to the first
// line of in.
func (f *credentialFlags) resolvePassword(in io.Reader) (string, error) {
	if f.password != "" {
		return f.password, nil
	}
	if p := os.Getenv("DOCSCRIBE_PASSWORD"); p != "" {
		return p, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("password is required")
	}
	return line, nil
}

func newLoginCmd(a *app) *cobra.Command {
	var creds credentialFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := creds.resolvePassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return a.login(cmd.Context(), creds.username, password)
		},
	}
	creds.bind(cmd, false)
	return cmd
}

func (a *app) login(ctx context.Context, username, password string) error {
	tok, err := a.client.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	user := types.User{Username: username}
	if me, err := a.client.Me(ctx); err == nil {
		user = me
	} else {
		a.log.Debug("fetch profile after login failed")
	}
	a.sess.SetToken(tok.AccessToken, user.Username, user.ID)
	a.sess.SetAPIURL(a.client.BaseURL())
	if err := a.sess.Save(); err != nil {
		return err
	}
	a.success("Signed in as %s", user.Username)
	return nil
}

func newRegisterCmd(a *app) *cobra.Command {
	var creds credentialFlags
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := creds.resolvePassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			tok, err := a.client.Register(ctx, types.Credentials{
				Username: creds.username,
				Email:    creds.email,
				Password: password,
			})
			if err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}
			a.success("Account %s created", creds.username)
			if tok.AccessToken == "" {
				return a.login(ctx, creds.username, password)
			}
			me, err := a.client.Me(ctx)
			if err != nil {
				me = types.User{Username: creds.username}
			}
			a.sess.SetToken(tok.AccessToken, me.Username, me.ID)
			a.sess.SetAPIURL(a.client.BaseURL())
			return a.sess.Save()
		},
	}
	creds.bind(cmd, true)
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the token and all project progress",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			a.sess.Clear()
			if err := a.sess.Save(); err != nil {
				return err
			}
			a.success("Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			me, err := a.client.Me(cmd.Context())
			if err != nil {
				return err
			}
			if a.opts.json {
				return a.printJSON(me)
			}
			return a.table([]string{"ID", "USERNAME", "EMAIL", "ADMIN"},
				[][]string{{orDash(me.ID), me.Username, orDash(me.Email), yesNo(me.IsAdmin)}})
		},
	}
}
