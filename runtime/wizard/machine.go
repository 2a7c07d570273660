package wizard

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/AltairaLabs/WizardKit/pkg/errors"
	"github.com/AltairaLabs/WizardKit/runtime/drafts"
	"github.com/AltairaLabs/WizardKit/runtime/events"
	"github.com/AltairaLabs/WizardKit/runtime/history"
	"github.com/AltairaLabs/WizardKit/runtime/logger"
	"github.com/AltairaLabs/WizardKit/runtime/schema"
)

// ErrNoGateway is returned by draft operations when no gateway is configured.
var ErrNoGateway = errors.New("no draft gateway configured")

const defaultAutoSaveTimeout = 30 * time.Second

// CompleteFunc receives the validated form data when the wizard completes.
type CompleteFunc func(ctx context.Context, data map[string]any) error

// State is a point-in-time copy of the machine's state.
type State struct {
	CurrentStep int
	FormData    map[string]any
	IsDirty     bool
	IsLoading   bool
	IsSaving    bool
	Errors      schema.FieldErrors
	DraftID     string
}

// Machine is the state machine for one wizard session.
//
// All methods are safe to call from multiple goroutines; the auto-save timer
// fires on its own goroutine. Sinks must not call back into the Machine.
type Machine struct {
	mu sync.Mutex

	cfg       *Config
	rules     schema.Rules
	validator *schema.Validator
	history   *history.Manager
	gateway   drafts.Gateway
	sink      events.Sink
	emitter   *events.Emitter
	log       *slog.Logger
	now       TimeFunc
	afterFunc AfterFunc
	sessionID string

	currentStep    int
	formData       map[string]any
	initialData    map[string]any
	dirty          bool
	loading        bool
	saving         bool
	errors         schema.FieldErrors
	stepValidity   map[string]bool
	stepCompletion map[string]int
	draftID        string
	completed      bool
	closed         bool

	startedAt     time.Time
	stepEnteredAt time.Time

	// revision counts data mutations so a save only clears the dirty flag
	// when nothing changed while it was in flight.
	revision        uint64
	timer           Timer
	timerGen        uint64
	autoSaveTimeout time.Duration
	inflight        sync.WaitGroup

	// draftSlot admits one draft operation at a time.
	draftSlot chan struct{}
}

// New creates a Machine positioned on the first step with the config's
// initial data. The initial state is the first history snapshot.
func New(cfg *Config, opts ...Option) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Machine{
		cfg:             cfg,
		rules:           cfg.Rules(),
		validator:       schema.NewValidator(),
		log:             logger.WithModule("runtime.wizard"),
		now:             time.Now,
		afterFunc:       realAfterFunc,
		autoSaveTimeout: defaultAutoSaveTimeout,
		errors:          schema.FieldErrors{},
		draftSlot:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sessionID == "" {
		m.sessionID = uuid.NewString()
	}

	m.history = history.New(cfg.Persistence.maxHistory(), history.WithTimeFunc(history.TimeFunc(m.now)))
	m.emitter = events.NewEmitter(m.sink, cfg.ID, m.sessionID).WithClock(m.now)

	m.initialData = history.CloneData(cfg.InitialData)
	m.formData = history.CloneData(cfg.InitialData)
	m.startedAt = m.now()
	m.stepEnteredAt = m.startedAt
	m.recompute()
	m.history.Push(m.formData, m.currentStep)

	m.emitter.WizardStarted(cfg.Type, len(cfg.Steps), m.draftID)
	m.emitter.StepStarted(cfg.Steps[0].ID, 0)
	return m, nil
}

// Config returns the wizard configuration.
func (m *Machine) Config() *Config { return m.cfg }

// SessionID returns the analytics session identifier.
func (m *Machine) SessionID() string { return m.sessionID }

// --- data ---

// UpdateData shallow-merges partial into the form data and records a
// history snapshot. Nested objects are replaced, not merged.
func (m *Machine) UpdateData(partial map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyUpdate(partial, true)
}

// UpdateDataWithoutHistory is UpdateData without a history snapshot, for
// programmatic changes such as filling defaults.
func (m *Machine) UpdateDataWithoutHistory(partial map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyUpdate(partial, false)
}

func (m *Machine) applyUpdate(partial map[string]any, track bool) {
	fields := make([]string, 0, len(partial))
	for k, v := range partial {
		m.formData[k] = v
		fields = append(fields, k)
	}
	sort.Strings(fields)

	m.dirty = true
	m.revision++
	m.errors = schema.FieldErrors{}
	m.recompute()
	if track {
		m.history.Push(m.formData, m.currentStep)
	}

	stepID := m.cfg.Steps[m.currentStep].ID
	for _, f := range fields {
		m.emitter.FieldChanged(f, stepID)
	}
	m.scheduleAutoSave()
}

// ResetData restores the initial data on the first step and clears the
// dirty flag and errors. History is kept.
func (m *Machine) ResetData() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.formData = history.CloneData(m.initialData)
	m.revision++
	m.dirty = false
	m.errors = schema.FieldErrors{}
	m.enterStep(0)
	m.recompute()
	m.cancelAutoSave()
}

// FormData returns a deep copy of the form data.
func (m *Machine) FormData() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return history.CloneData(m.formData)
}

// --- navigation ---

// GoToStep jumps to index without validation. It returns false and changes
// nothing when index is out of range.
func (m *Machine) GoToStep(index int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.currentStep
	if index < 0 || index >= len(m.cfg.Steps) {
		m.emitter.NavigationAttempted(from, index, events.DirectionJump, false)
		logger.Navigation(m.logContext(), m.log, from, index, false)
		return false
	}

	m.errors = schema.FieldErrors{}
	m.enterStep(index)
	m.history.Push(m.formData, m.currentStep)
	m.emitter.NavigationAttempted(from, index, events.DirectionJump, true)
	logger.Navigation(m.logContext(), m.log, from, index, true)
	return true
}

// GoToStepID jumps to the step with the given id.
func (m *Machine) GoToStepID(stepID string) bool {
	index := m.cfg.StepIndex(stepID)
	if index < 0 {
		return false
	}
	return m.GoToStep(index)
}

// GoToNextStep advances one step if the current step is optional or its
// schema accepts the form data. On rejection the step's field errors are
// stored and false is returned. It also returns false on the last step.
func (m *Machine) GoToNextStep() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.currentStep
	rule := m.rules[from]
	if !rule.Optional {
		res := m.validator.ValidateStep(rule.StepID, m.formData, rule.Schema)
		if !res.Valid {
			m.errors = res.Errors
			m.emitter.NavigationAttempted(from, from+1, events.DirectionNext, false)
			m.emitter.ValidationFailed(rule.StepID, res.Errors)
			m.emitter.StepFailed(rule.StepID, from)
			logger.Navigation(m.logContext(), m.log, from, from+1, false)
			return false
		}
	}

	if from >= len(m.cfg.Steps)-1 {
		m.emitter.NavigationAttempted(from, from+1, events.DirectionNext, false)
		return false
	}

	m.errors = schema.FieldErrors{}
	m.emitter.StepCompleted(rule.StepID, from, m.now().Sub(m.stepEnteredAt))
	m.enterStep(from + 1)
	m.history.Push(m.formData, m.currentStep)
	m.emitter.NavigationAttempted(from, from+1, events.DirectionNext, true)
	logger.Navigation(m.logContext(), m.log, from, from+1, true)
	return true
}

// GoToPreviousStep moves back one step without validation. It returns
// false on the first step.
func (m *Machine) GoToPreviousStep() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.currentStep
	if from == 0 {
		m.emitter.NavigationAttempted(from, -1, events.DirectionPrevious, false)
		return false
	}

	m.errors = schema.FieldErrors{}
	m.enterStep(from - 1)
	m.history.Push(m.formData, m.currentStep)
	m.emitter.NavigationAttempted(from, from-1, events.DirectionPrevious, true)
	logger.Navigation(m.logContext(), m.log, from, from-1, true)
	return true
}

// enterStep must be called with m.mu held.
func (m *Machine) enterStep(index int) {
	changed := index != m.currentStep
	m.currentStep = index
	m.stepEnteredAt = m.now()
	if changed {
		m.emitter.StepStarted(m.cfg.Steps[index].ID, index)
	}
}

// CurrentStepIndex returns the zero-based index of the current step.
func (m *Machine) CurrentStepIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentStep
}

// CurrentStep returns the current step descriptor.
func (m *Machine) CurrentStep() Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Steps[m.currentStep]
}

// IsFirstStep reports whether the current step is the first.
func (m *Machine) IsFirstStep() bool {
	return m.CurrentStepIndex() == 0
}

// IsLastStep reports whether the current step is the last.
func (m *Machine) IsLastStep() bool {
	return m.CurrentStepIndex() == len(m.cfg.Steps)-1
}

// Progress returns 100 * (current index + 1) / number of steps.
func (m *Machine) Progress() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return 100 * float64(m.currentStep+1) / float64(len(m.cfg.Steps))
}

// --- validation queries ---

// ValidateCurrentStep reports whether the current step's schema accepts
// the form data. It does not change the stored errors.
func (m *Machine) ValidateCurrentStep() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule := m.rules[m.currentStep]
	return m.validator.ValidateStep(rule.StepID, m.formData, rule.Schema).Valid
}

// ValidateAllSteps reports whether every non-optional step accepts the
// form data. It does not change the stored errors.
func (m *Machine) ValidateAllSteps() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validator.ValidateAllSteps(m.formData, m.rules).Valid
}

// StepErrors returns the field errors of a step against the current data,
// or of the current step when stepID is empty. Unknown steps have none.
func (m *Machine) StepErrors(stepID string) schema.FieldErrors {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stepID == "" {
		stepID = m.cfg.Steps[m.currentStep].ID
	}
	rule, ok := m.rules.Find(stepID)
	if !ok {
		return schema.FieldErrors{}
	}
	return m.validator.ValidateStep(stepID, m.formData, rule.Schema).Errors
}

// AllErrors returns the merged field errors of every non-optional step.
func (m *Machine) AllErrors() schema.FieldErrors {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validator.ValidateAllSteps(m.formData, m.rules).Errors
}

// StepValidity reports whether a step's schema accepted the data at the
// last recompute.
func (m *Machine) StepValidity(stepID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stepValidity[stepID]
}

// StepCompletion returns a step's completion percentage (0-100).
func (m *Machine) StepCompletion(stepID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stepCompletion[stepID]
}

// StepProgress returns every step's completion percentage.
func (m *Machine) StepProgress() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyProgress()
}

// CompletionPercentage is the mean of the step completion percentages.
func (m *Machine) CompletionPercentage() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overallCompletion()
}

// recompute must be called with m.mu held.
func (m *Machine) recompute() {
	m.stepValidity = make(map[string]bool, len(m.rules))
	m.stepCompletion = make(map[string]int, len(m.rules))
	for _, rule := range m.rules {
		m.stepValidity[rule.StepID] = m.validator.ValidateStep(rule.StepID, m.formData, rule.Schema).Valid
		m.stepCompletion[rule.StepID] = m.validator.StepCompletion(m.formData, rule.Schema)
	}
}

func (m *Machine) copyProgress() map[string]int {
	out := make(map[string]int, len(m.stepCompletion))
	for k, v := range m.stepCompletion {
		out[k] = v
	}
	return out
}

func (m *Machine) overallCompletion() int {
	if len(m.stepCompletion) == 0 {
		return 0
	}
	total := 0
	for _, v := range m.stepCompletion {
		total += v
	}
	return int(math.Round(float64(total) / float64(len(m.stepCompletion))))
}

// --- completion ---

// Complete runs fn with a copy of the form data if the final schema (when
// set) accepts it. It returns false without calling fn otherwise. An error
// from fn is returned unchanged, with false.
func (m *Machine) Complete(ctx context.Context, fn CompleteFunc) (bool, error) {
	m.mu.Lock()
	if !m.validator.CanComplete(m.formData, m.cfg.FinalSchema) {
		res := m.validator.ValidateStep("final", m.formData, m.cfg.FinalSchema)
		m.emitter.ValidationFailed("final", res.Errors)
		m.mu.Unlock()
		return false, nil
	}
	data := history.CloneData(m.formData)
	m.loading = true
	m.mu.Unlock()

	var err error
	if fn != nil {
		err = fn(ctx, data)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false
	if err != nil {
		m.emitter.Error(err, map[string]string{"operation": "complete"})
		return false, err
	}
	m.completed = true
	m.cancelAutoSave()
	m.emitter.WizardCompleted(m.cfg.Type, len(m.cfg.Steps), m.now().Sub(m.startedAt))
	m.log.InfoContext(m.logContext(), "wizard completed", "steps", len(m.cfg.Steps))
	return true, nil
}

// IsCompleted reports whether Complete has succeeded.
func (m *Machine) IsCompleted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed
}

// --- history ---

// Undo restores the previous history snapshot.
func (m *Machine) Undo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, ok := m.history.Undo()
	if !ok {
		m.emitter.NavigationAttempted(m.currentStep, m.currentStep, events.DirectionUndo, false)
		return false
	}
	m.emitter.NavigationAttempted(m.currentStep, snap.CurrentStep, events.DirectionUndo, true)
	m.restore(snap)
	return true
}

// Redo re-applies the next history snapshot.
func (m *Machine) Redo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, ok := m.history.Redo()
	if !ok {
		m.emitter.NavigationAttempted(m.currentStep, m.currentStep, events.DirectionRedo, false)
		return false
	}
	m.emitter.NavigationAttempted(m.currentStep, snap.CurrentStep, events.DirectionRedo, true)
	m.restore(snap)
	return true
}

// CanUndo reports whether Undo would change state.
func (m *Machine) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.CanUndo()
}

// CanRedo reports whether Redo would change state.
func (m *Machine) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.CanRedo()
}

// restore must be called with m.mu held.
func (m *Machine) restore(snap history.Snapshot) {
	m.formData = snap.FormData
	m.errors = schema.FieldErrors{}
	m.enterStep(snap.CurrentStep)
	m.dirty = true
	m.revision++
	m.recompute()
	m.scheduleAutoSave()
}

// --- flags ---

// SetLoading sets the loading flag.
func (m *Machine) SetLoading(loading bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = loading
}

// SetErrors replaces the stored field errors.
func (m *Machine) SetErrors(errs map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = schema.FieldErrors(errs).Clone()
	if m.errors == nil {
		m.errors = schema.FieldErrors{}
	}
}

// ClearDirtyState clears the dirty flag.
func (m *Machine) ClearDirtyState() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty = false
}

// Errors returns a copy of the stored field errors.
func (m *Machine) Errors() schema.FieldErrors {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors.Clone()
}

// IsDirty reports whether data changed since the last successful save.
func (m *Machine) IsDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

// IsLoading reports the loading flag.
func (m *Machine) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// IsSaving reports whether a draft save is in flight.
func (m *Machine) IsSaving() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saving
}

// DraftID returns the id of the draft this session saves to, if any.
func (m *Machine) DraftID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.draftID
}

// State returns a copy of the full state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		CurrentStep: m.currentStep,
		FormData:    history.CloneData(m.formData),
		IsDirty:     m.dirty,
		IsLoading:   m.loading,
		IsSaving:    m.saving,
		Errors:      m.errors.Clone(),
		DraftID:     m.draftID,
	}
}

// StepProps builds the props for the current step's renderer. The callbacks
// are bound to this machine.
func (m *Machine) StepProps() StepProps {
	m.mu.Lock()
	defer m.mu.Unlock()
	return StepProps{
		Data:       history.CloneData(m.formData),
		Errors:     m.errors.Clone(),
		IsLoading:  m.loading,
		OnUpdate:   m.UpdateData,
		OnNext:     m.GoToNextStep,
		OnPrevious: m.GoToPreviousStep,
	}
}

// RenderCurrentStep calls the current step's renderer, if it has one.
func (m *Machine) RenderCurrentStep() error {
	step := m.CurrentStep()
	if step.Component == nil {
		return nil
	}
	return step.Component.Render(m.StepProps())
}

// --- analytics passthrough ---

// FieldFocused records that the user started editing a field.
func (m *Machine) FieldFocused(field string) {
	m.emitter.FieldFocused(field, m.CurrentStep().ID)
}

// FieldBlurred records that the user stopped editing a field.
func (m *Machine) FieldBlurred(field string) {
	m.emitter.FieldBlurred(field, m.CurrentStep().ID)
}

// Emitter returns the machine's analytics emitter, for host-side events
// such as uploads and AI generation.
func (m *Machine) Emitter() *events.Emitter { return m.emitter }

// --- lifecycle ---

// Close cancels any pending auto-save and waits for one in flight.
// The machine stays readable; no further auto-saves are scheduled.
func (m *Machine) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.cancelAutoSave()
	m.emitter.WizardClosed(m.cfg.Type, len(m.cfg.Steps), m.now().Sub(m.startedAt), m.completed)
	m.mu.Unlock()

	m.inflight.Wait()
	return nil
}

func (m *Machine) logContext() context.Context {
	ctx := logger.WithWizardID(context.Background(), m.cfg.ID)
	ctx = logger.WithSessionID(ctx, m.sessionID)
	if m.draftID != "" {
		ctx = logger.WithDraftID(ctx, m.draftID)
	}
	return ctx
}

func (m *Machine) wrap(op string, err error) error {
	return pkgerrors.New(pkgerrors.ComponentWizard, op, err).WithDetails(map[string]any{
		"wizard_id": m.cfg.ID,
		"draft_id":  m.draftID,
	})
}
