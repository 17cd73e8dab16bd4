package registry

import (
	"context"
	"time"

	"github.com/asciimoth/yubikey-setup/pkg/runner"
)

// probeTimeout bounds a single availability check so a hung probe command
// cannot wedge the provisioning loop.
const probeTimeout = 30 * time.Second

// Probe runs the package's availability check non-interactively and reports
// whether it is satisfied. Only the exit status matters; output is discarded.
// The predicate is pure from the caller's perspective and is re-evaluated
// fresh on every call, since installation status changes between loop
// iterations.
func Probe(ctx context.Context, run runner.Runner, pkg Package) (bool, error) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	result, err := run.Run(probeCtx, pkg.Check.Command, false)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		// A probe that cannot even start counts as unsatisfied.
		return false, nil
	}
	return result.ExitCode == pkg.Check.ExpectCode, nil
}

// Unsatisfied probes every package in order and returns the subset whose
// availability check failed, preserving registry order.
func Unsatisfied(ctx context.Context, run runner.Runner, pkgs []Package) ([]Package, error) {
	var missing []Package
	for _, pkg := range pkgs {
		ok, err := Probe(ctx, run, pkg)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, pkg)
		}
	}
	return missing, nil
}
