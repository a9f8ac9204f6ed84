// Package cli wires the cobra command tree for the review service.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// ErrVersionRequested indicates the user requested the CLI version and no
// further work should be done.
var ErrVersionRequested = errors.New("version requested")

// ServerRunner defines the dependency required to run the serve command.
type ServerRunner interface {
	Run(ctx context.Context) error
}

// AccountAdmin defines the dependency required to run the account commands.
type AccountAdmin interface {
	SetAccountEnabled(ctx context.Context, account string, enabled bool) error
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Server   ServerRunner
	Accounts AccountAdmin
	Args     Arguments
	Version  string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "reviewd",
		Short: "Automated pull request review service",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(serveCommand(deps.Server))
	root.AddCommand(accountCommand(deps.Accounts))

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func serveCommand(server ServerRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if server == nil {
				return errors.New("server is not configured")
			}
			return server.Run(cmd.Context())
		},
	}
}

func accountCommand(accounts AccountAdmin) *cobra.Command {
	account := &cobra.Command{
		Use:   "account",
		Short: "Manage per-account review enrollment",
	}

	account.AddCommand(&cobra.Command{
		Use:   "enable <owner>",
		Short: "Enroll an account for automated review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if accounts == nil {
				return errors.New("account administration is not configured")
			}
			if err := accounts.SetAccountEnabled(cmd.Context(), args[0], true); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "account %s enabled\n", args[0])
			return nil
		},
	})

	account.AddCommand(&cobra.Command{
		Use:   "disable <owner>",
		Short: "Stop reviewing an account's pull requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if accounts == nil {
				return errors.New("account administration is not configured")
			}
			if err := accounts.SetAccountEnabled(cmd.Context(), args[0], false); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "account %s disabled\n", args[0])
			return nil
		},
	})

	return account
}
