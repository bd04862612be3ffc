package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/go-faster/errors"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/codekansas/soc/internal/domain-adapters/gateways"
	orchestrators "github.com/codekansas/soc/internal/domain-orchestrators"
	"github.com/codekansas/soc/internal/domain/entities"
	domaingateways "github.com/codekansas/soc/internal/domain/interfaces/gateways"
)

var errVulnerable = errors.New("requirements have known vulnerabilities")

func (a *app) auditCommand() *cobra.Command {
	var (
		sitePackages string
		group        string
		minSeverity  string
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Look up known vulnerabilities in the requirements",
		Long: `Audit queries the OSV database for advisories affecting the requirements.
Installed versions are used when --site-packages is given; otherwise only
pinned requirements can be audited and the rest are skipped.`,
		Example: `  pysoc audit
  pysoc audit --site-packages .venv/lib/python3.12/site-packages --min-severity high`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			fallback(flags, "site-packages", &sitePackages, a.cfg.Check.SitePackages)
			fallback(flags, "min-severity", &minSeverity, a.cfg.Audit.MinSeverity)

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

			orch := orchestrators.NewAuditOrchestrator(
				gateways.NewOSVGateway(a.cfg.Audit.OSVURL, a.cfg.Audit.Timeout),
				env,
				log,
			)

			result, err := orch.Audit(ctx, d, orchestrators.AuditOptions{
				Groups:      groups,
				MinSeverity: minSeverity,
			})
			if err != nil {
				return err
			}

			printAudit(cmd.OutOrStdout(), result)
			if !result.Ok() {
				return errVulnerable
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&sitePackages, "site-packages", "", "site-packages directory to take installed versions from")
	flags.StringVarP(&group, "group", "g", "install", "requirement group: install, setup, tests or all")
	flags.StringVar(&minSeverity, "min-severity", "low", "ignore advisories below this severity: low, medium, high or critical (above low also drops advisories without a severity)")
	return cmd
}

func printAudit(w io.Writer, result *orchestrators.AuditResult) {
	vulnerable := result.Vulnerable()

	if len(vulnerable) > 0 {
		tbl := table.NewWriter()
		tbl.SetStyle(table.StyleLight)
		tbl.Style().Options.DrawBorder = false
		tbl.Style().Options.SeparateColumns = false
		tbl.AppendHeader(table.Row{"Requirement", "Version", "Advisory", "Severity", "Fixed in"})

		for _, f := range vulnerable {
			for _, adv := range f.Advisories {
				fixed := strings.Join(adv.FixedIn, ", ")
				if fixed == "" {
					fixed = "-"
				}
				tbl.AppendRow(table.Row{f.Requirement.Name, f.Version + " (" + f.Source + ")", adv.ID, severityText(adv.Severity), fixed})
			}
		}
		_, _ = fmt.Fprintln(w, tbl.Render())
	}

	summary := color.New(color.FgGreen)
	if !result.Ok() {
		summary = color.New(color.FgRed)
	}
	_, _ = summary.Fprintln(w, result.Summary())
}

func severityText(s string) string {
	switch s {
	case entities.AdvisoryCritical, entities.AdvisoryHigh:
		return color.RedString(s)
	case entities.AdvisoryMedium:
		return color.YellowString(s)
	default:
		return s
	}
}
