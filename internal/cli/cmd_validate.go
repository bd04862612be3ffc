package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/codekansas/soc/internal/domain/entities"
)

var errInvalidDescriptor = errors.New("descriptor is invalid")

func (a *app) validateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Validate a descriptor against the schema and descriptor rules",
		Long: `Validate checks a descriptor file (soc.yml or pyproject.toml) or, without
an argument, the descriptor pysoc was built with. Errors make the command fail;
warnings only fail it with --strict.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Descriptor
			if len(args) == 1 {
				path = args[0]
			}

			svc, err := a.descriptorService(cmd.Context(), path)
			if err != nil {
				return err
			}
			_, report, err := svc.Validate(cmd.Context(), path)
			if err != nil {
				return err
			}

			label := path
			if label == "" {
				label = "embedded descriptor"
			}
			printReport(cmd, label, report)

			if !report.Valid() || (strict && len(report.Warnings()) > 0) {
				return errors.Wrap(errInvalidDescriptor, label)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as errors")
	return cmd
}

func printReport(cmd *cobra.Command, label string, report *entities.ValidationReport) {
	w := cmd.OutOrStdout()
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	if report.Valid() {
		_, _ = color.New(color.FgGreen).Fprintf(w, "%s is valid\n", label)
	} else {
		_, _ = red.Fprintf(w, "%s is invalid\n", label)
	}

	for _, issue := range report.Errors() {
		_, _ = red.Fprintf(w, "  - %s\n", issue)
	}
	for _, issue := range report.Warnings() {
		_, _ = yellow.Fprintf(w, "  - %s\n", issue)
	}

	_, _ = fmt.Fprintf(w, "%d errors, %d warnings\n", len(report.Errors()), len(report.Warnings()))
}
