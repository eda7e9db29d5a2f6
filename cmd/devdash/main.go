package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/brizzai/devdash/internal/app"
	"github.com/brizzai/devdash/internal/config"
	"github.com/brizzai/devdash/internal/logger"
	"github.com/brizzai/devdash/internal/session"
)

func main() {
	Execute()
}

var (
	configFile string
	cfg        *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "devdash",
	Short: "Sign in with GitHub or Google and browse your developer dashboard",
	Long: `devdash signs you in with an OAuth identity provider, keeps the session on disk
and shows your profile and recent repositories in the terminal or the browser.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	defer func() {
		if r := recover(); r != nil {
			pterm.Error.Printf("\nCaught panic: %v\n", r)
			pterm.Error.Printf("%s\n", debug.Stack())
			os.Exit(2)
		}
	}()

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}

		var err error
		cfg, err = config.Load(configFile, cmd.Flags())
		if err != nil {
			return err
		}
		if err := logger.InitLogger(&cfg.Logging); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	}
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")
	config.InitFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newLoginCmd(),
		newCallbackCmd(),
		newStatusCmd(),
		newWhoamiCmd(),
		newLogoutCmd(),
		newServeCmd(),
		newDashboardCmd(),
		newConfigCmd(),
	)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// components builds the application graph with the terminal navigator
func components(ctx context.Context) (*app.Components, func(), error) {
	return app.New(ctx, cfg, newTerminalNavigator(session.NewRoutes(cfg)))
}

// signInComponents is components for commands that talk to the provider to sign in
func signInComponents(ctx context.Context) (*app.Components, func(), error) {
	if err := cfg.ValidateSignIn(); err != nil {
		return nil, nil, err
	}
	return components(ctx)
}

// newTerminalNavigator turns routing decisions into terminal hints
func newTerminalNavigator(routes session.Routes) session.Navigator {
	return session.NavigatorFunc(func(route session.Route, notice string) {
		if notice != "" {
			pterm.Info.Println(notice)
		}
		switch route {
		case routes.Login:
			pterm.Debug.Println("Run `devdash login` to sign in.")
		case routes.Dashboard:
			pterm.Debug.Println("Run `devdash dashboard` to open the dashboard.")
		}
	})
}
