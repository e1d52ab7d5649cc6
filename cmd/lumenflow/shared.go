package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lumenflow/lumenflow/pkg/console"
	"github.com/lumenflow/lumenflow/pkg/gitutil"
	"github.com/lumenflow/lumenflow/pkg/lferr"
	"github.com/lumenflow/lumenflow/pkg/lfconfig"
	"github.com/spf13/cobra"
)

// resolveConfig builds the single *lfconfig.Config every engine call takes,
// reading only the --repo flag (or, failing that, the git checkout
// containing the process's working directory) for the one piece of
// ambient-directory knowledge §9's singleton redesign flag allows the CLI
// entrypoint. Nothing past this point reads an ambient cwd.
func resolveConfig(cmd *cobra.Command) (*lfconfig.Config, error) {
	repoFlag, _ := cmd.Flags().GetString("repo")
	root := repoFlag
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		root, err = gitutil.RepoRoot(cmd.Context(), cwd)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve repository root (pass --repo): %w", err)
		}
	}
	return lfconfig.Default(root), nil
}

// cmdContext returns the command's context, falling back to Background for
// the rare case a test constructs a *cobra.Command without Execute wiring
// one up.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// fail prints err through the coordinator's error-kind-aware formatting and
// exits with its mapped exit code. Every command's RunE funnels its
// terminal error here so callers see the failing invariant, the
// remediation, and the smallest next command consistently.
func fail(err error) {
	if lfErr, ok := lferr.Of(err); ok {
		msg := fmt.Sprintf("%s: %s", lfErr.Kind, lfErr.Message)
		if lfErr.Remediation != "" {
			msg += "\n  " + lfErr.Remediation
		}
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(msg))
	} else {
		fmt.Fprintln(os.Stderr, console.FormatErrorMessage(err.Error()))
	}
	os.Exit(lferr.ExitCode(err))
}
