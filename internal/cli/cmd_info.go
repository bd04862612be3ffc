package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/codekansas/soc/internal/domain-adapters/gateways"
	"github.com/codekansas/soc/internal/domain/entities"
)

func (a *app) infoCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show descriptor metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.loadDescriptor(cmd.Context())
			if err != nil {
				return err
			}
			fallback(cmd.Flags(), "output", &output, a.cfg.Output)
			return gateways.NewRenderer().Render(cmd.OutOrStdout(), d, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", gateways.FormatTable,
		"output format: "+strings.Join(gateways.Formats, ", "))
	return cmd
}

func (a *app) depsCommand() *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "List install, setup and test requirements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			groups, err := parseGroups(group)
			if err != nil {
				return err
			}
			d, err := a.loadDescriptor(cmd.Context())
			if err != nil {
				return err
			}
			return gateways.NewRenderer().RenderRequirements(cmd.OutOrStdout(), d, groups)
		},
	}

	cmd.Flags().StringVarP(&group, "group", "g", "all", "requirement group: install, setup, tests or all")
	return cmd
}

func parseGroups(group string) ([]entities.RequirementGroup, error) {
	if group == "all" {
		return entities.RequirementGroups, nil
	}
	g := entities.RequirementGroup(group)
	if !slices.Contains(entities.RequirementGroups, g) {
		return nil, errors.Errorf("unknown group %q (supported: install, setup, tests, all)", group)
	}
	return []entities.RequirementGroup{g}, nil
}

func (a *app) entryPointsCommand() *cobra.Command {
	var resolve bool

	cmd := &cobra.Command{
		Use:   "entry-points",
		Short: "List declared entry points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.loadDescriptor(cmd.Context())
			if err != nil {
				return err
			}

			var resolved func(string) bool
			if resolve {
				registry := Registry()
				resolved = func(ref string) bool {
					_, ok := registry.Lookup(ref)
					return ok
				}
			}
			return gateways.NewRenderer().RenderEntryPoints(cmd.OutOrStdout(), d, resolved)
		},
	}

	cmd.Flags().BoolVar(&resolve, "resolve", false, "show whether each reference is served by pysoc")
	return cmd
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pysoc version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.loadDescriptor(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "pysoc %s\n", d.Version)
			return err
		},
	}
}
