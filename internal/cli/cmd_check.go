package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/go-faster/errors"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/codekansas/soc/internal/domain-adapters/gateways"
	orchestrators "github.com/codekansas/soc/internal/domain-orchestrators"
)

var errCheckFailed = errors.New("installation check failed")

func (a *app) checkCommand() *cobra.Command {
	var (
		sitePackages  string
		binDir        string
		group         string
		verifyRecords bool
		skipScripts   bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the package and its requirements are installed",
		Long: `Check inspects a site-packages directory for the distributions the descriptor
requires, compares installed versions with the declared specifiers, optionally
verifies installed files against their RECORD hashes and looks up console scripts.`,
		Example: `  pysoc check --site-packages .venv/lib/python3.12/site-packages
  pysoc check --site-packages /usr/lib/python3/dist-packages --verify-records --bin-dir /usr/bin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			fallback(flags, "site-packages", &sitePackages, a.cfg.Check.SitePackages)
			fallback(flags, "bin-dir", &binDir, a.cfg.Check.BinDir)
			fallback(flags, "verify-records", &verifyRecords, a.cfg.Check.VerifyRecords)
			if sitePackages == "" {
				return errors.New("--site-packages is required")
			}

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
			orch := orchestrators.NewCheckOrchestrator(
				gateways.NewSitePackagesGateway(sitePackages, log),
				gateways.NewRecordVerifier(),
				gateways.NewScriptLocator(binDir),
				log,
			)

			result, err := orch.Check(ctx, d, orchestrators.CheckOptions{
				Groups:        groups,
				VerifyRecords: verifyRecords,
				CheckScripts:  !skipScripts,
				Progress:      newBarReporter(cmd.ErrOrStderr()),
			})
			if err != nil {
				return err
			}

			printCheck(cmd.OutOrStdout(), result)
			if !result.Ok() {
				return errCheckFailed
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&sitePackages, "site-packages", "", "site-packages directory to inspect")
	flags.StringVar(&binDir, "bin-dir", "", "directory holding console scripts (default: search PATH)")
	flags.StringVarP(&group, "group", "g", "install", "requirement group: install, setup, tests or all")
	flags.BoolVar(&verifyRecords, "verify-records", false, "verify installed files against RECORD hashes")
	flags.BoolVar(&skipScripts, "skip-scripts", false, "do not look up console scripts")
	return cmd
}

func printCheck(w io.Writer, result *orchestrators.CheckResult) {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.AppendHeader(table.Row{"Group", "Requirement", "Installed", "Status"})

	checks := result.Requirements
	if result.Self != nil {
		checks = append([]orchestrators.RequirementCheck{*result.Self}, checks...)
	}
	for _, c := range checks {
		installed := c.Installed
		if installed == "" {
			installed = "-"
		}
		tbl.AppendRow(table.Row{c.Group, c.Requirement.String(), installed, statusText(c.Status)})
	}
	_, _ = fmt.Fprintln(w, tbl.Render())

	red := color.New(color.FgRed)
	for _, c := range checks {
		if c.Detail != "" {
			_, _ = red.Fprintf(w, "  %s: %s\n", c.Requirement.Name, c.Detail)
		}
	}
	for _, rc := range result.Records {
		for _, m := range rc.Mismatches {
			_, _ = red.Fprintf(w, "  %s: %s: %s\n", rc.Distribution, m.Path, m.Reason)
		}
	}
	for _, sc := range result.Scripts {
		if sc.Err != nil {
			_, _ = red.Fprintf(w, "  console script %s (%s): %v\n", sc.Name, sc.Reference, sc.Err)
		}
	}

	summary := color.New(color.FgGreen)
	if !result.Ok() {
		summary = red
	}
	_, _ = summary.Fprintln(w, result.Summary())
}

func statusText(s orchestrators.RequirementStatus) string {
	switch s {
	case orchestrators.StatusSatisfied:
		return color.GreenString(string(s))
	case orchestrators.StatusMissing:
		return color.RedString(string(s))
	default:
		return color.YellowString(string(s))
	}
}
