// Command wizardctl validates wizard manifests, drives wizards from answer
// files, manages stored drafts and serves the remote draft API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AltairaLabs/WizardKit/pkg/config"
	"github.com/AltairaLabs/WizardKit/runtime/logger"
	"github.com/AltairaLabs/WizardKit/runtime/version"
)

// defaultStoreDir is used by run and drafts when no --config is given.
const defaultStoreDir = ".wizardkit/drafts"

// envPrefix namespaces the environment variables that stand in for the
// persistent flags, e.g. WIZARDCTL_STORE_DIR.
const envPrefix = "WIZARDCTL"

// globalOptions are the persistent flags of the root command.
type globalOptions struct {
	verbose    bool
	configPath string
	storeDir   string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "wizardctl",
		Short:         "WizardKit - multi-step wizard tooling",
		Version:       version.Get(),
		SilenceUsage:  true, // Don't print usage on error
		SilenceErrors: false,
		Long: `wizardctl works with WizardKit wizard manifests and drafts.

It validates Wizard and ServiceConfig manifests, drives a wizard through its
steps from an answers file, inspects and deletes saved drafts, and serves the
remote draft API used by drafts.HTTPStore.

Every persistent flag can also be set through the environment as
WIZARDCTL_<FLAG>, e.g. WIZARDCTL_STORE_DIR. Manifests may reference
environment variables as ${NAME}; --env-file loads them from a dotenv file.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.envFile != "" {
				if err := godotenv.Load(opts.envFile); err != nil {
					return fmt.Errorf("failed to load env file: %w", err)
				}
			}
			opts.configPath = v.GetString("config")
			opts.storeDir = v.GetString("store-dir")
			if v.IsSet("verbose") {
				opts.verbose = v.GetBool("verbose")
				logger.SetVerbose(opts.verbose)
			}
			return nil
		},
	}
	cmd.SetVersionTemplate(version.Info("wizardctl") + "\n")

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVarP(&opts.configPath, "config", "c", "", "ServiceConfig manifest selecting the draft store")
	pf.StringVar(&opts.storeDir, "store-dir", defaultStoreDir, "Draft directory when no --config is given")
	pf.StringVar(&opts.envFile, "env-file", "", "Load environment variables from a dotenv file first")
	_ = v.BindPFlags(pf)

	cmd.AddCommand(
		newValidateCmd(),
		newRunCmd(opts),
		newDraftsCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// serviceSpec loads --config, or describes a file store under --store-dir.
func (o *globalOptions) serviceSpec() (config.ServiceSpec, error) {
	if o.configPath == "" {
		spec := config.DefaultServiceSpec()
		spec.Store = config.StoreSpec{Type: config.StoreFile, Path: o.storeDir}
		return spec, nil
	}
	c, err := config.LoadServiceConfig(o.configPath)
	if err != nil {
		return config.ServiceSpec{}, err
	}
	return c.Spec, nil
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		// Error already printed by cobra
		os.Exit(1)
	}
}
