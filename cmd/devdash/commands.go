package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brizzai/devdash/internal/auth/models"
	"github.com/brizzai/devdash/internal/profile"
	"github.com/brizzai/devdash/internal/server"
	"github.com/brizzai/devdash/internal/session"
	"github.com/brizzai/devdash/internal/tui"
	"github.com/brizzai/devdash/internal/utils"
)

func newLoginCmd() *cobra.Command {
	var (
		noBrowser bool
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in through the identity provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			c, stop, err := signInComponents(ctx)
			if err != nil {
				return err
			}
			defer stop()

			listener, err := server.NewCallbackListener(c.Resolver, cfg.Provider.RedirectURL)
			if err != nil {
				return err
			}
			if err := listener.Start(ctx); err != nil {
				return err
			}
			defer listener.Stop()

			authURL := c.Provider.AuthorizationURL()
			if authURL == "" {
				return errors.New("the identity provider is unavailable, try again later")
			}
			pterm.Info.Printfln("Open this URL to sign in:\n%s", authURL)
			if !noBrowser {
				if err := utils.OpenBrowser(authURL); err != nil {
					pterm.Warning.Printfln("Could not open a browser: %v", err)
				}
			}

			waitCtx, waitCancel := context.WithTimeout(ctx, timeout)
			defer waitCancel()

			spinner, _ := pterm.DefaultSpinner.Start("Waiting for the provider to redirect back...")
			out, err := listener.WaitForOutcome(waitCtx)
			if err != nil {
				fail(spinner, "No sign-in received")
				return fmt.Errorf("waiting for callback: %w", err)
			}
			return reportOutcome(spinner, out)
		},
	}
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the sign-in URL without opening a browser")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for the provider redirect")
	return cmd
}

func newCallbackCmd() *cobra.Command {
	var code, errParam string
	cmd := &cobra.Command{
		Use:   "callback",
		Short: "Resolve a provider redirect by hand",
		Long:  "Resolve the code or error from a provider redirect, for example when the browser cannot reach the local listener.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, stop, err := signInComponents(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			out := c.Resolver.Resolve(cmd.Context(), session.CallbackParams{
				Code:    code,
				Error:   errParam,
				HasCode: cmd.Flags().Changed("code"),
			})
			return reportOutcome(nil, out)
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "Authorization code from the redirect")
	cmd.Flags().StringVar(&errParam, "error", "", "Error reported by the provider")
	return cmd
}

// reportOutcome prints the result of a callback; only Authenticated is a success.
func reportOutcome(spinner *pterm.SpinnerPrinter, out session.Outcome) error {
	switch out.Kind {
	case session.Authenticated:
		msg := "Signed in; the profile will be loaded when the dashboard opens"
		if out.Profile != nil {
			msg = "Signed in as " + pterm.LightGreen(out.Profile.Handle)
		}
		succeed(spinner, msg)
		return nil
	case session.Denied:
		fail(spinner, "Sign-in was not completed: "+out.Reason)
		return errors.New("sign-in denied")
	default:
		fail(spinner, fmt.Sprintf("Sign-in failed: %v", out.Cause))
		return errors.New("sign-in failed")
	}
}

func succeed(spinner *pterm.SpinnerPrinter, msg string) {
	if spinner != nil {
		spinner.Success(msg)
		return
	}
	pterm.Success.Println(msg)
}

func fail(spinner *pterm.SpinnerPrinter, msg string) {
	if spinner != nil {
		spinner.Fail(msg)
		return
	}
	pterm.Error.Println(msg)
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a session is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, stop, err := components(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			sess, ok := c.Guard.Session()
			if !ok {
				pterm.Warning.Println("Not signed in")
				return nil
			}
			pterm.Success.Printfln("Signed in with %s", cfg.Provider.Name)
			pterm.Info.Println(sess.ExpiryMessage(time.Now()))
			if p := c.Store.Profile(); p != nil {
				pterm.Info.Printfln("Cached profile: %s", p.Name())
			}
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Print the signed-in user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, stop, err := components(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			if !c.Guard.Enter() {
				return errors.New("not signed in")
			}

			token := c.Store.Token()
			get := c.Profiles.Get
			if refresh {
				get = c.Profiles.Refresh
			}
			p, err := get(cmd.Context(), token)
			if errors.Is(err, profile.ErrUnauthenticated) {
				return errors.New("the session is no longer valid, run `devdash login` again")
			}
			if err != nil {
				return fmt.Errorf("could not load the profile: %w", err)
			}
			return printProfile(p)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Fetch the profile from the provider instead of the cache")
	return cmd
}

func printProfile(p *models.UserProfile) error {
	data := pterm.TableData{
		{"Name", p.Name()},
		{"Handle", models.Field(p.Handle)},
		{"Email", models.Field(p.ContactEmail)},
		{"Bio", models.Field(p.Bio)},
		{"Company", models.Field(p.Affiliation)},
		{"Location", models.Field(p.Location)},
		{"Followers", models.Count(p.FollowerCount)},
		{"Following", models.Count(p.FollowingCount)},
		{"Profile", models.Field(p.ProfileURL)},
	}
	return pterm.DefaultTable.WithData(data).Render()
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session and revoke it with the provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, stop, err := components(cmd.Context())
			if err != nil {
				return err
			}
			defer stop()

			c.Logout.Logout(cmd.Context())
			pterm.Success.Println("Signed out")
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			c, stop, err := signInComponents(ctx)
			if err != nil {
				return err
			}
			defer stop()

			pterm.Info.Printfln("Dashboard at http://%s:%d%s", cfg.Server.Host, cfg.Server.Port, cfg.Routes.Dashboard)
			return server.NewServer(c).Start(ctx)
		},
	}
}

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the dashboard in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			c, stop, err := components(ctx)
			if err != nil {
				return err
			}
			defer stop()

			if !c.Guard.Enter() {
				return errors.New("not signed in")
			}

			p := tea.NewProgram(tui.NewAppModel(ctx, c.Dashboard, c.Logout, utils.OpenBrowser), tea.WithAltScreen(), tea.WithContext(ctx))
			m, err := p.Run()
			if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("error running dashboard: %w", err)
			}

			if final, ok := m.(tui.AppModel); ok && final.SignedOut() {
				pterm.Info.Println(final.Notice())
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}
}
