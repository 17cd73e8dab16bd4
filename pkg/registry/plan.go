package registry

// Plan partitions a candidate set of packages against one distribution:
// packages with an automated recipe for the distribution versus packages
// that require manual action. The two lists are disjoint, cover the input,
// and preserve registry order.
type Plan struct {
	Auto   []Package
	Manual []Package
}

// Partition buckets candidates by recipe availability for distro.
// Pure function; recomputed every loop iteration since the candidate set
// shrinks as packages become satisfied.
func Partition(candidates []Package, distro string) Plan {
	var plan Plan
	for _, pkg := range candidates {
		if pkg.Installable(distro) {
			plan.Auto = append(plan.Auto, pkg)
		} else {
			plan.Manual = append(plan.Manual, pkg)
		}
	}
	return plan
}

// InstallCommands flattens the install recipes of pkgs for distro into one
// ordered command list, in registry order. Packages without a recipe for
// distro contribute nothing.
func InstallCommands(pkgs []Package, distro string) []string {
	var commands []string
	for _, pkg := range pkgs {
		commands = append(commands, pkg.Install[distro]...)
	}
	return commands
}
