package main

import (
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"
)

// starterConfig is the commented template written by 'repograph init'.
const starterConfig = `# repograph project configuration.
# Values here are defaults; command-line flags override them.

# Path to the Kuzu database directory.
database: ./repograph.db

# Parallel hashing workers. Defaults to the number of CPUs when unset.
# workers: 8

# Extra ignore patterns on top of the built-in defaults
# (.git, node_modules, vendor, caches, build output).
# ignore:
#   - "*.generated.go"
#   - "docs/**"

# Skip files larger than this many megabytes. 0 means no limit.
# maxSizeMB: 10

# Log level: debug, info, warn, or error.
# logLevel: warn

# Expose Prometheus metrics during sync on this address.
# metricsAddr: ":9090"
`

// runInit writes a starter repograph.yml into the target directory.
func runInit(args []string, globals GlobalFlags) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing repograph.yml")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: repograph init [options] [dir]

Description:
  Write a commented starter repograph.yml into the given directory
  (default: current directory). Refuses to overwrite an existing file
  unless --force is set.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	dir := "."
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}

	dest := filepath.Join(abs, "repograph.yml")
	if !*force {
		if _, err := os.Stat(dest); err == nil {
			fmt.Printf("  skipped %s (exists, use --force to overwrite)\n", dest)
			return nil
		}
	}

	if err := os.WriteFile(dest, []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}

	fmt.Printf("  created %s\n", dest)
	return nil
}
