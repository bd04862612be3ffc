// Package cli implements the pysoc command line, the callable behind the
// descriptor's console script.
package cli

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/codekansas/soc"
	"github.com/codekansas/soc/internal/config"
	"github.com/codekansas/soc/internal/domain/entities"
	"github.com/codekansas/soc/internal/domain/interfaces"
	"github.com/codekansas/soc/internal/domain/interfaces/gateways"
	"github.com/codekansas/soc/internal/domain/interfaces/services"
	domainservices "github.com/codekansas/soc/internal/domain/services"
	"github.com/codekansas/soc/internal/external-adapters/pyproject"
	"github.com/codekansas/soc/internal/external-adapters/schema"
	"github.com/codekansas/soc/internal/external-adapters/yaml"
	"github.com/codekansas/soc/internal/logger"
)

// Reference is the object reference the console script points at
const Reference = "soc.cli:cli"

// Factory builds a fresh root command
type Factory func() *cobra.Command

// Registry returns the registry binding every object reference pysoc can serve
func Registry() *domainservices.Registry[Factory] {
	r := domainservices.NewRegistry[Factory]()
	r.Register(Reference, Command)
	return r
}

// app carries state shared by all subcommands of one invocation
type app struct {
	configPath     string
	descriptorPath string
	logFormat      string
	verbose        bool
	noColor        bool

	cfg *config.Config
}

// Command returns the pysoc root command with every subcommand attached
func Command() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:               "pysoc",
		Short:             "Easily access online datasets.",
		Long:              "pysoc inspects, validates and checks the soc package descriptor.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { logger.Sync() },
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default .pysoc.yaml in the working directory or $HOME)")
	flags.StringVar(&a.descriptorPath, "descriptor", "", "descriptor file to use instead of the embedded "+soc.DescriptorFile)
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&a.logFormat, "log-format", config.DefaultLogFormat, "log format: console or json")
	flags.BoolVar(&a.noColor, "no-color", false, "disable coloured output")

	root.AddCommand(
		a.infoCommand(),
		a.depsCommand(),
		a.entryPointsCommand(),
		a.validateCommand(),
		a.renderCommand(),
		a.checkCommand(),
		a.verifyCommand(),
		a.auditCommand(),
		a.outdatedCommand(),
		a.versionCommand(),
	)

	return root
}

// setup loads config, applies flag overrides and installs the logger.
// Flags given explicitly win over config values.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	cfg, err := config.Load(a.configPath, func(cfg *config.Config) {
		override(flags, "log-format", &cfg.Log.Format, a.logFormat)
		override(flags, "verbose", &cfg.Log.Verbose, a.verbose)
		override(flags, "descriptor", &cfg.Descriptor, a.descriptorPath)
	})
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	if err := logger.Setup(cfg.Log.Format, cfg.Log.Verbose); err != nil {
		return err
	}
	cmd.SetContext(logger.WithFields(cmd.Context(), zap.String("command", cmd.Name())))

	return nil
}

// override sets *dst to the flag value when the flag was given explicitly
func override[T any](flags *pflag.FlagSet, name string, dst *T, value T) {
	if flags.Changed(name) {
		*dst = value
	}
}

// fallback sets *dst to the configured value unless the flag was given explicitly
func fallback[T any](flags *pflag.FlagSet, name string, dst *T, configured T) {
	if !flags.Changed(name) {
		*dst = configured
	}
}

func (a *app) domainLogger(ctx context.Context) interfaces.Logger {
	return logger.FromContext(ctx)
}

// descriptorService picks the codec by file extension: pyproject.toml files are
// decoded directly, YAML descriptors are checked against the schema first
func (a *app) descriptorService(ctx context.Context, path string) (services.DescriptorService, error) {
	log := a.domainLogger(ctx)
	repo := yaml.NewDescriptorRepository(filepath.Dir(path), soc.Descriptor, log)

	var (
		codec     gateways.DescriptorCodec = yaml.NewDescriptorParser()
		validator gateways.SchemaValidator
	)
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		codec = pyproject.Codec{}
	} else {
		v, err := schema.NewValidator()
		if err != nil {
			return nil, errors.Wrap(err, "load descriptor schema")
		}
		validator = v
	}

	return domainservices.NewDescriptorService(repo, codec, validator, log), nil
}

// loadDescriptor returns the configured descriptor, the embedded one by default
func (a *app) loadDescriptor(ctx context.Context) (*entities.Descriptor, error) {
	svc, err := a.descriptorService(ctx, a.cfg.Descriptor)
	if err != nil {
		return nil, err
	}
	return svc.Load(ctx, a.cfg.Descriptor)
}
