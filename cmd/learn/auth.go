package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-learn/internal/app"
	"github.com/p-n-ai/pai-learn/internal/profile"
)

func newLoginCmd() *cobra.Command {
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the profile service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, err := passwordFrom(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				u, err := a.Engine.Session().SignIn(ctx, email, password)
				if err != nil {
					return authError(err)
				}
				printf(cmd, "Signed in as %s\n", u.DisplayName())
				return nil
			})
		},
	}
	loginCmd.Flags().String("email", "", "Account email")
	loginCmd.Flags().String("password", "", "Account password (read from stdin when empty)")
	_ = loginCmd.MarkFlagRequired("email")
	return loginCmd
}

func newSignUpCmd() *cobra.Command {
	signUpCmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req profile.RegisterRequest
			req.FirstName, _ = cmd.Flags().GetString("first-name")
			req.LastName, _ = cmd.Flags().GetString("last-name")
			req.Email, _ = cmd.Flags().GetString("email")
			req.PhoneNumber, _ = cmd.Flags().GetString("phone")
			password, err := passwordFrom(cmd)
			if err != nil {
				return err
			}
			req.Password = password

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				u, err := a.Engine.Session().SignUp(ctx, req)
				if err != nil {
					return authError(err)
				}
				printf(cmd, "Welcome, %s\n", u.DisplayName())
				return nil
			})
		},
	}
	signUpCmd.Flags().String("first-name", "", "First name")
	signUpCmd.Flags().String("last-name", "", "Last name")
	signUpCmd.Flags().String("email", "", "Account email")
	signUpCmd.Flags().String("phone", "", "Phone number")
	signUpCmd.Flags().String("password", "", "Account password (read from stdin when empty)")
	for _, f := range []string{"first-name", "last-name", "email"} {
		_ = signUpCmd.MarkFlagRequired(f)
	}
	return signUpCmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Engine.Session().SignOut(ctx); err != nil {
					return err
				}
				printf(cmd, "Signed out.\n")
				return nil
			})
		},
	}
}

func newWhoAmICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Reload and show the signed-in profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				u, err := a.Engine.Session().Refresh(ctx)
				if err != nil {
					return authError(err)
				}
				printf(cmd, "%s <%s>\n", u.DisplayName(), u.Email)
				return nil
			})
		},
	}
}

// passwordFrom returns --password or the first line of stdin.
func passwordFrom(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("password"); p != "" {
		return p, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return "", errors.New("password is required")
	}
	return line, nil
}

func authError(err error) error {
	if errors.Is(err, profile.ErrUnauthenticated) {
		return errors.New("not signed in (or the profile service is disabled)")
	}
	return err
}
