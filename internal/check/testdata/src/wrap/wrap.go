package wrap

import (
	"fmt"

	"golang.org/x/xerrors"
)

const prefix = "failed to start"

func errors(err error) []error {
	return []error{
		xerrors.Errorf("failed to start: %w", err),
		xerrors.Errorf(prefix+": %w", err),
		xerrors.Errorf("failed to start: %v", err),
		xerrors.Errorf("%w: failed to start", err),       // want `xerrors only wraps a trailing ": %w"`
		xerrors.Errorf("%v: %w", "failed to start", err), // want `xerrors only wraps a trailing ": %w"`
		xerrors.Errorf("failed: %w: %w", err, err),       // want `xerrors only wraps a trailing ": %w"`
		fmt.Errorf("%w: failed to start", err),
	}
}
