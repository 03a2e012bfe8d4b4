package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/aretw0/glossa/pkg/core"
)

var (
	authEmail    string
	authName     string
	authPassword string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your account",
}

// readPassword returns --password, $GLOSSA_PASSWORD or an interactive prompt.
func readPassword(title string) (string, error) {
	if authPassword != "" {
		return authPassword, nil
	}
	if p := os.Getenv("GLOSSA_PASSWORD"); p != "" {
		return p, nil
	}
	var p string
	err := huh.NewInput().
		Title(title).
		EchoMode(huh.EchoModePassword).
		Validate(func(s string) error {
			if len(s) < 6 {
				return errors.New("at least 6 characters")
			}
			return nil
		}).
		Value(&p).
		Run()
	return p, err
}

func readEmail() (string, error) {
	if authEmail != "" {
		return authEmail, nil
	}
	var email string
	err := huh.NewInput().Title("Email").Value(&email).Run()
	return strings.TrimSpace(email), err
}

var signUpCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, err := readEmail()
		if err != nil {
			return err
		}
		password, err := readPassword("Choose a password")
		if err != nil {
			return err
		}

		pending, err := app.Session.SignUp(cmd.Context(), email, password, authName)
		if err != nil {
			return err
		}
		if pending {
			fmt.Fprintln(out(cmd), "Account created. Confirm it with 'glossa auth confirm <token>' before signing in.")
			return nil
		}
		u, _ := app.Session.User()
		fmt.Fprintf(out(cmd), "Welcome, %s! You are signed in.\n", titleStyle.Render(u.DisplayName))
		return nil
	},
}

var signInCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in with email and password",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, err := readEmail()
		if err != nil {
			return err
		}
		password, err := readPassword("Password")
		if err != nil {
			return err
		}

		u, err := app.Session.SignIn(cmd.Context(), email, password)
		switch {
		case errors.Is(err, core.ErrEmailNotConfirmed):
			return fmt.Errorf("%w: run 'glossa auth confirm <token>' first", err)
		case err != nil:
			return err
		}
		fmt.Fprintf(out(cmd), "Signed in as %s\n", titleStyle.Render(u.DisplayName))
		return nil
	},
}

var signOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Session.SignOut(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(out(cmd), "Signed out.")
		return nil
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm [token]",
	Short: "Confirm a new account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := app.Confirm(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "Account %s confirmed. You can sign in now.\n", u.Email)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		u, ok := app.Session.User()
		if !ok {
			return core.ErrNotSignedIn
		}
		fmt.Fprintf(out(cmd), "%s <%s>\n", titleStyle.Render(u.DisplayName), u.Email)
		fmt.Fprintln(out(cmd), mutedStyle.Render("id "+u.ID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(signUpCmd, signInCmd, signOutCmd, confirmCmd, whoamiCmd)

	for _, c := range []*cobra.Command{signUpCmd, signInCmd} {
		c.Flags().StringVar(&authEmail, "email", "", "Account email")
		c.Flags().StringVar(&authPassword, "password", "", "Account password (prefer the prompt or $GLOSSA_PASSWORD)")
	}
	signUpCmd.Flags().StringVar(&authName, "name", "", "Full name shown in greetings")
}
