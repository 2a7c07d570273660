package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AltairaLabs/WizardKit/pkg/config"
)

type validateOptions struct {
	kind       string
	schemaOnly bool
}

func newValidateCmd() *cobra.Command {
	opts := &validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate manifests against their JSON schemas",
		Long: `Validates Wizard and ServiceConfig manifests against their JSON schemas.

The type is detected from the 'kind' field unless --kind is given. Wizard
manifests are also compiled (step schemas, version constraint, persistence
settings) unless --schema-only is set.

Examples:
  wizardctl validate listing.yaml
  wizardctl validate service.yaml --kind ServiceConfig
  wizardctl validate wizards/*.yaml --schema-only`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				if err := opts.validateFile(cmd.OutOrStdout(), path); err != nil {
					printf(cmd.ErrOrStderr(), "%s: %v\n", filepath.Base(path), err)
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d file(s) failed validation", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.kind, "kind", "auto", "Manifest kind: auto, Wizard, ServiceConfig")
	cmd.Flags().BoolVar(&opts.schemaOnly, "schema-only", false, "Only validate the schema, skip compilation")
	return cmd
}

func (o *validateOptions) validateFile(out io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	kind := config.Kind(o.kind)
	if o.kind == "auto" {
		if kind, err = config.DetectKind(data); err != nil {
			return fmt.Errorf("%w (use --kind to specify explicitly)", err)
		}
	}

	result, err := config.ValidateWithSchema(data, kind)
	if err != nil {
		return err
	}
	st := newStyles(out)
	if !result.Valid {
		printf(out, "%s %s does not match the %s schema:\n", st.fail.Render("❌"), filepath.Base(path), kind)
		for _, e := range result.Errors {
			printf(out, "  - %s\n", e.Error())
		}
		return fmt.Errorf("schema validation failed with %d error(s)", len(result.Errors))
	}

	if !o.schemaOnly {
		if err := compile(data, kind); err != nil {
			return err
		}
	}

	printf(out, "%s %s is a valid %s\n", st.ok.Render("✅"), filepath.Base(path), kind)
	return nil
}

func compile(data []byte, kind config.Kind) error {
	switch kind {
	case config.KindWizard:
		m, err := config.ParseWizard(data)
		if err != nil {
			return err
		}
		_, err = m.Build()
		return err
	case config.KindServiceConfig:
		_, err := config.ParseServiceConfig(data)
		return err
	}
	return nil
}
