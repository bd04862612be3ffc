// Command pysoc is the console script declared by the soc descriptor.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-faster/errors"

	"github.com/codekansas/soc"
	"github.com/codekansas/soc/internal/cli"
	"github.com/codekansas/soc/internal/external-adapters/yaml"
)

// scriptName is the console script this binary installs as
const scriptName = "pysoc"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// run resolves the console script through the embedded descriptor's
// entry points and executes the command it names
func run(ctx context.Context, args []string) error {
	d, err := yaml.NewDescriptorRepository("", soc.Descriptor, nil).Default(ctx)
	if err != nil {
		return errors.Wrap(err, "embedded descriptor")
	}

	factory, _, err := cli.Registry().Resolve(d.EntryPoints, scriptName)
	if err != nil {
		return err
	}

	cmd := factory()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}
