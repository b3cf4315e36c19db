package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (a *App) signupCmd() *cobra.Command {
	var email, name string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email == "" {
				if email, err = a.prompt.line("Email: "); err != nil {
					return err
				}
			}
			if name == "" {
				if name, err = a.prompt.line("Name: "); err != nil {
					return err
				}
			}
			password, err := a.prompt.password("Password: ")
			if err != nil {
				return err
			}

			res := a.session.Signup(cmd.Context(), strings.TrimSpace(email), password, strings.TrimSpace(name))
			if !res.Success {
				return errors.New(res.Message)
			}
			fmt.Fprintf(a.out, "%s. Welcome, %s!\n", res.Message, res.User.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	return cmd
}

func (a *App) loginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to an existing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email == "" {
				if email, err = a.prompt.line("Email: "); err != nil {
					return err
				}
			}
			password, err := a.prompt.password("Password: ")
			if err != nil {
				return err
			}

			res := a.session.Login(cmd.Context(), strings.TrimSpace(email), password)
			if !res.Success {
				return errors.New(res.Message)
			}
			fmt.Fprintf(a.out, "%s. Hello, %s!\n", res.Message, res.User.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func (a *App) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out.")
			return nil
		},
	}
}

func (a *App) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			u := a.session.State().User
			fmt.Fprintf(a.out, "%s <%s> (id %d)\n", u.Name, u.Email, u.ID)
			fmt.Fprintf(a.out, "Server: %s\n", a.client.BaseURL())
			return nil
		},
	}
}
