package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/AltairaLabs/WizardKit/pkg/config"
	"github.com/AltairaLabs/WizardKit/runtime/drafts"
	"github.com/AltairaLabs/WizardKit/runtime/events"
	"github.com/AltairaLabs/WizardKit/runtime/logger"
	metrics "github.com/AltairaLabs/WizardKit/runtime/metrics/prometheus"
	"github.com/AltairaLabs/WizardKit/runtime/telemetry"
	"github.com/AltairaLabs/WizardKit/runtime/wizard"
)

type runOptions struct {
	*globalOptions
	dataPath    string
	resume      string
	complete    bool
	save        bool
	eventsDir   string
	interactive bool

	prompt prompter
}

func newRunCmd(g *globalOptions) *cobra.Command {
	opts := &runOptions{globalOptions: g}
	cmd := &cobra.Command{
		Use:   "run <wizard.yaml>",
		Short: "Drive a wizard through its steps from an answers file",
		Long: `Runs a wizard non-interactively. The answers file is a JSON object whose
keys are step ids mapping to that step's fields; any other keys are applied
before the first step. Each step is validated as the wizard advances and the
run stops at the first step that does not pass. With --interactive the
rejected fields are asked for on the terminal instead.

Examples:
  wizardctl run listing.yaml --data answers.json
  wizardctl run listing.yaml --data answers.json --complete --save
  wizardctl run listing.yaml --resume 3f2a... --data rest.json
  wizardctl run listing.yaml --interactive --complete`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.dataPath, "data", "d", "", "JSON answers file")
	f.StringVar(&opts.resume, "resume", "", "Load this draft before applying answers")
	f.BoolVar(&opts.complete, "complete", false, "Complete the wizard after the last step")
	f.BoolVar(&opts.save, "save", false, "Save the final state as a draft")
	f.StringVar(&opts.eventsDir, "events", "", "Record analytics events as JSON Lines under this directory")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "Prompt for fields of a step that fails validation")
	return cmd
}

// errStepRejected is returned when a step fails validation.
var errStepRejected = errors.New("wizard stopped at a step that failed validation")

func (o *runOptions) run(ctx context.Context, out io.Writer, path string) error {
	manifest, err := config.LoadWizard(path)
	if err != nil {
		return err
	}
	cfg, err := manifest.Build()
	if err != nil {
		return err
	}
	// Saves are explicit in a non-interactive run.
	cfg.Persistence.AutoSave = false

	answers, err := loadAnswers(o.dataPath)
	if err != nil {
		return err
	}
	if o.interactive {
		if o.prompt, err = newPrompter(); err != nil {
			return err
		}
	}

	spec, err := o.serviceSpec()
	if err != nil {
		return err
	}
	if o.configPath != "" {
		logger.Configure(spec.Logging.LoggerSpec())
	}

	sink, closeSinks, err := o.sinks(ctx, spec)
	if err != nil {
		return err
	}
	defer closeSinks()

	machineOpts := []wizard.Option{wizard.WithSink(sink)}
	if o.save || o.resume != "" {
		store, closeStore, err := config.OpenStore(ctx, spec.Store)
		if err != nil {
			return err
		}
		defer func() { _ = closeStore() }()
		machineOpts = append(machineOpts, wizard.WithGateway(drafts.NewGateway(store)))
	}

	m, err := wizard.New(cfg, machineOpts...)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	if o.resume != "" {
		ok, err := m.LoadDraft(ctx, o.resume)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("draft %q not found", o.resume)
		}
		printf(out, "resumed draft %s at step %d\n", o.resume, m.CurrentStepIndex()+1)
	}

	return o.drive(ctx, out, m, answers)
}

func (o *runOptions) drive(ctx context.Context, out io.Writer, m *wizard.Machine, answers map[string]any) error {
	st := newStyles(out)
	cfg := m.Config()
	if global := globalAnswers(cfg, answers); len(global) > 0 {
		m.UpdateData(global)
	}

	var runErr error
	applied := -1
	for {
		step := m.CurrentStep()
		if idx := m.CurrentStepIndex(); idx != applied {
			if a, ok := answers[step.ID].(map[string]any); ok {
				m.UpdateData(a)
			}
			applied = idx
		}
		printf(out, "%s %-24s %3d%% complete\n",
			st.title.Render(fmt.Sprintf("[%d/%d]", m.CurrentStepIndex()+1, len(cfg.Steps))),
			step.ID, m.StepCompletion(step.ID))

		if m.IsLastStep() {
			break
		}
		if m.GoToNextStep() {
			continue
		}

		errs := m.Errors()
		printErrors(out, st, errs)
		if o.prompt != nil {
			update, err := askFields(o.prompt, errs, m.FormData())
			if err != nil {
				return fmt.Errorf("prompt aborted: %w", err)
			}
			if len(update) > 0 {
				m.UpdateData(update)
				continue
			}
		}
		runErr = fmt.Errorf("%w: %s", errStepRejected, step.ID)
		break
	}
	printf(out, "%s\n", st.dim.Render(fmt.Sprintf("progress %.0f%%, overall completion %d%%", m.Progress(), m.CompletionPercentage())))

	if runErr == nil && o.complete {
		ok, err := m.Complete(ctx, nil)
		if err != nil {
			return err
		}
		if ok {
			printf(out, "%s wizard completed\n", st.ok.Render("✓"))
		} else {
			printf(out, "%s wizard cannot be completed yet\n", st.fail.Render("✗"))
			printErrors(out, st, m.AllErrors())
		}
	}

	if o.save {
		id, err := m.SaveDraft(ctx)
		if err != nil {
			return err
		}
		printf(out, "draft saved: %s\n", id)
	}
	return runErr
}

// sinks builds the analytics pipeline: Prometheus metrics always, a JSON
// Lines file per session with --events, and spans when tracing is set up.
func (o *runOptions) sinks(ctx context.Context, spec config.ServiceSpec) (events.Sink, func(), error) {
	sinks := events.MultiSink{metrics.NewMetricsListener()}
	var closers []func()

	if o.eventsDir != "" {
		fs, err := events.NewFileSink(o.eventsDir)
		if err != nil {
			return nil, func() {}, err
		}
		sinks = append(sinks, fs)
		closers = append(closers, func() { _ = fs.Close() })
	}

	if spec.Tracing.Endpoint != "" {
		tp, err := telemetry.NewTracerProvider(ctx, spec.Tracing.ProviderConfig())
		if err != nil {
			return nil, func() {}, err
		}
		otel.SetTracerProvider(tp)
		sinks = append(sinks, telemetry.NewOTelEventListener(telemetry.Tracer(tp)))
		closers = append(closers, func() { _ = tp.Shutdown(context.WithoutCancel(ctx)) })
	}

	return sinks, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}

func loadAnswers(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read answers: %w", err)
	}
	var answers map[string]any
	if err := json.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("answers must be a JSON object: %w", err)
	}
	return answers, nil
}

// globalAnswers returns the answers that are not keyed by a step id.
func globalAnswers(cfg *wizard.Config, answers map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range answers {
		if cfg.StepIndex(k) < 0 {
			out[k] = v
		}
	}
	return out
}

func printErrors(out io.Writer, st styles, errs map[string]string) {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		printf(out, "  %s %s: %s\n", st.fail.Render("✗"), f, errs[f])
	}
}
