package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/codekansas/soc/internal/domain-adapters/gateways"
	"github.com/codekansas/soc/internal/logger"
)

func (a *app) renderCommand() *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the descriptor as pyproject.toml, YAML or JSON",
		Example: `  pysoc render --format toml --out pyproject.toml
  pysoc render --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format == gateways.FormatTable {
				return errors.New("render writes a manifest; use `pysoc info` for a table")
			}

			d, err := a.loadDescriptor(cmd.Context())
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := gateways.NewRenderer().Render(&buf, d, format); err != nil {
				return err
			}

			if out == "" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}

			//nolint:gosec // G306: rendered manifests are meant to be world-readable
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return errors.Wrapf(err, "write %s", out)
			}
			logger.FromContext(cmd.Context()).Info("manifest written")
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", gateways.FormatTOML, "manifest format: toml, yaml or json")
	cmd.Flags().StringVar(&out, "out", "", "write to FILE instead of stdout")
	return cmd
}
