package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/codekansas/soc/internal/domain-adapters/gateways"
	orchestrators "github.com/codekansas/soc/internal/domain-orchestrators"
	domaingateways "github.com/codekansas/soc/internal/domain/interfaces/gateways"
)

func (a *app) outdatedCommand() *cobra.Command {
	var (
		sitePackages string
		group        string
		pre          bool
	)

	cmd := &cobra.Command{
		Use:   "outdated",
		Short: "Compare requirements with the latest releases on the package index",
		Example: `  pysoc outdated
  pysoc outdated --site-packages .venv/lib/python3.12/site-packages --group all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fallback(cmd.Flags(), "site-packages", &sitePackages, a.cfg.Check.SitePackages)

			groups, err := parseGroups(group)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			d, err := a.loadDescriptor(ctx)
			if err != nil {
				return err
			}

			log := a.domainLogger(ctx)
			var env domaingateways.EnvironmentGateway
			if sitePackages != "" {
				env = gateways.NewSitePackagesGateway(sitePackages, log)
			}

			orch := orchestrators.NewOutdatedOrchestrator(
				gateways.NewPyPIIndex(a.cfg.Index.URL, a.cfg.Index.Timeout),
				env,
				log,
			)
			result, err := orch.Outdated(ctx, d, orchestrators.OutdatedOptions{Groups: groups, IncludePre: pre})
			if err != nil {
				return err
			}

			printOutdated(cmd.OutOrStdout(), result)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&sitePackages, "site-packages", "", "site-packages directory to take installed versions from")
	flags.StringVarP(&group, "group", "g", "install", "requirement group: install, setup, tests or all")
	flags.BoolVar(&pre, "pre", false, "consider pre-releases")
	return cmd
}

func printOutdated(w io.Writer, result *orchestrators.OutdatedResult) {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.AppendHeader(table.Row{"Requirement", "Installed", "Latest", "Allowed"})

	for _, c := range result.Checks {
		installed, latest := c.Installed, c.Latest
		if installed == "" {
			installed = "-"
		}
		if c.Behind {
			installed = color.YellowString(installed)
		}

		allowed := color.GreenString("yes")
		switch {
		case latest == "":
			latest, allowed = "-", "-"
		case !c.Allowed:
			allowed = color.RedString("no")
		}

		tbl.AppendRow(table.Row{c.Requirement.String(), installed, latest, allowed})
	}

	_, _ = fmt.Fprintln(w, tbl.Render())
	_, _ = fmt.Fprintln(w, result.Summary())
}
