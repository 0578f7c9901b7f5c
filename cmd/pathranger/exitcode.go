package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pbaille/pathranger/internal/config"
	"github.com/pbaille/pathranger/internal/domain"
)

// Process exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitNotFound = 2
	exitInvalid  = 3
	exitBusy     = 4
)

var errUsage = errors.New("invalid usage")

func usageErrorf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), errUsage)
}

func exitCode(err error) int {
	var cfgErr *config.Error
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, domain.ErrNotFound):
		return exitNotFound
	case errors.Is(err, domain.ErrStorageBusy):
		return exitBusy
	case errors.Is(err, domain.ErrInvalidTagName),
		errors.Is(err, domain.ErrInvalidPath),
		errors.Is(err, errUsage),
		errors.As(err, &cfgErr):
		return exitInvalid
	default:
		return exitFailure
	}
}

// usageArgs marks argument validation failures as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return fmt.Errorf("%w: %w", err, errUsage)
		}
		return nil
	}
}
