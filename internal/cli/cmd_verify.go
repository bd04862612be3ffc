package cli

import (
	"net/http"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/codekansas/soc/internal/domain-adapters/gateways"
	orchestrators "github.com/codekansas/soc/internal/domain-orchestrators"
	"github.com/codekansas/soc/internal/domain/entities"
	"github.com/codekansas/soc/internal/external-adapters/gpg"
)

func (a *app) verifyCommand() *cobra.Command {
	var (
		sig    string
		keys   entities.KeySources
		keyIDs string
	)

	cmd := &cobra.Command{
		Use:   "verify FILE",
		Short: "Verify a detached OpenPGP signature over a file",
		Example: `  pysoc verify soc.yml --sig soc.yml.asc --key codekansas.asc
  pysoc verify soc-0.0.1.tar.gz --sig soc-0.0.1.tar.gz.asc --key-ids 0123456789ABCDEF`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]
			if sig == "" {
				sig = file + ".asc"
			}
			for _, id := range strings.Split(keyIDs, ",") {
				if id = strings.TrimSpace(id); id != "" {
					keys.KeyIDs = append(keys.KeyIDs, id)
				}
			}

			gateway := gateways.NewGPGVerifier(
				gpg.WithKeyservers(a.cfg.Verify.Keyservers...),
				gpg.WithHTTPClient(&http.Client{Timeout: a.cfg.Verify.Timeout}),
			)
			orch := orchestrators.NewSignatureOrchestrator(gateway, a.domainLogger(cmd.Context()))

			result, err := orch.Verify(cmd.Context(), file, sig, keys)
			if result != nil {
				c := color.New(color.FgGreen)
				if err != nil {
					c = color.New(color.FgRed)
				}
				_, _ = c.Fprintln(cmd.OutOrStdout(), result.Summary())
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&sig, "sig", "", "detached signature file (default FILE.asc)")
	flags.StringArrayVar(&keys.Files, "key", nil, "public key file; may be repeated")
	flags.StringVar(&keys.URL, "keys-url", "", "URL of an armored KEYS file")
	flags.StringVar(&keyIDs, "key-ids", "", "comma-separated fingerprints to fetch from keyservers")
	return cmd
}
