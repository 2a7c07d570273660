package wizard

import (
	"context"

	"github.com/AltairaLabs/WizardKit/runtime/drafts"
	"github.com/AltairaLabs/WizardKit/runtime/history"
	"github.com/AltairaLabs/WizardKit/runtime/schema"
)

// Draft operations hold the draft slot for their whole gateway round trip,
// so one session never has two saves in flight and never forks its draft id.

func (m *Machine) acquireDraftSlot(ctx context.Context) error {
	select {
	case m.draftSlot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Machine) tryAcquireDraftSlot() bool {
	select {
	case m.draftSlot <- struct{}{}:
		return true
	default:
		return false
	}
}

func (m *Machine) releaseDraftSlot() { <-m.draftSlot }

func (m *Machine) hasGateway() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gateway != nil
}

// SaveDraft saves the current state now and returns the draft id. It waits
// for a running save to finish first and then saves the latest state.
// Failures are returned to the caller.
func (m *Machine) SaveDraft(ctx context.Context) (string, error) {
	if !m.hasGateway() {
		return "", ErrNoGateway
	}
	if err := m.acquireDraftSlot(ctx); err != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		return "", m.wrap("SaveDraft", err)
	}
	defer m.releaseDraftSlot()

	m.mu.Lock()
	draft, rev := m.draftLocked()
	m.saving = true
	m.mu.Unlock()

	start := m.now()
	res, err := m.gateway.SaveDraft(ctx, draft)
	elapsed := m.now().Sub(start)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.saving = false
	if err != nil {
		m.emitter.DraftSaveFailed(draft.ID, err, elapsed, false)
		return "", m.wrap("SaveDraft", err)
	}
	m.afterSave(res, rev)
	m.emitter.DraftSaved(m.draftID, elapsed, false)
	return m.draftID, nil
}

// LoadDraft replaces the form data and step with a stored draft. It returns
// false when the draft does not exist. A loaded draft is a clean state and
// becomes a new history snapshot.
func (m *Machine) LoadDraft(ctx context.Context, draftID string) (bool, error) {
	if !m.hasGateway() {
		return false, ErrNoGateway
	}
	if err := m.acquireDraftSlot(ctx); err != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		return false, m.wrap("LoadDraft", err)
	}
	defer m.releaseDraftSlot()

	m.mu.Lock()
	m.loading = true
	m.mu.Unlock()

	start := m.now()
	res, err := m.gateway.LoadDraft(ctx, draftID)
	elapsed := m.now().Sub(start)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false
	if err != nil {
		return false, m.wrap("LoadDraft", err)
	}
	if !res.Success || res.Data == nil {
		return false, nil
	}

	step := res.Data.CurrentStep
	if step < 0 || step >= len(m.cfg.Steps) {
		step = 0
	}
	m.formData = history.CloneData(res.Data.FormData)
	m.draftID = draftID
	m.dirty = false
	m.revision++
	m.errors = schema.FieldErrors{}
	m.enterStep(step)
	m.recompute()
	m.history.Push(m.formData, m.currentStep)
	m.cancelAutoSave()

	m.emitter.DraftLoaded(draftID, elapsed)
	return true, nil
}

// DeleteDraft deletes a draft, or the session's own draft when draftID is
// empty. It returns false when there was nothing to delete.
func (m *Machine) DeleteDraft(ctx context.Context, draftID string) (bool, error) {
	if !m.hasGateway() {
		return false, ErrNoGateway
	}
	if err := m.acquireDraftSlot(ctx); err != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		return false, m.wrap("DeleteDraft", err)
	}
	defer m.releaseDraftSlot()

	m.mu.Lock()
	if draftID == "" {
		draftID = m.draftID
	}
	m.mu.Unlock()
	if draftID == "" {
		return false, nil
	}

	start := m.now()
	res, err := m.gateway.DeleteDraft(ctx, draftID)
	elapsed := m.now().Sub(start)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		return false, m.wrap("DeleteDraft", err)
	}
	if draftID == m.draftID {
		m.draftID = ""
	}
	if res.Success {
		m.emitter.DraftDeleted(draftID, elapsed)
	}
	return res.Success, nil
}

// draftLocked snapshots the state to save. m.mu must be held.
func (m *Machine) draftLocked() (*drafts.Draft, uint64) {
	return &drafts.Draft{
		ID:                   m.draftID,
		WizardID:             m.cfg.ID,
		FormData:             history.CloneData(m.formData),
		CurrentStep:          m.currentStep,
		StepProgress:         m.copyProgress(),
		CompletionPercentage: m.overallCompletion(),
	}, m.revision
}

// afterSave records a successful save. m.mu must be held.
func (m *Machine) afterSave(res drafts.SaveResult, rev uint64) {
	if res.DraftID != "" {
		m.draftID = res.DraftID
	}
	if m.revision == rev {
		m.dirty = false
		m.cancelAutoSave()
	}
}

// scheduleAutoSave (re)arms the debounce timer. m.mu must be held.
func (m *Machine) scheduleAutoSave() {
	if !m.cfg.Persistence.AutoSave || m.gateway == nil || m.closed || m.completed {
		return
	}
	if !m.dirty || len(m.formData) == 0 {
		return
	}
	m.cancelAutoSave()
	m.timerGen++
	gen := m.timerGen
	m.timer = m.afterFunc(m.cfg.Persistence.interval(), func() { m.autoSave(gen) })
}

// cancelAutoSave stops a pending timer. m.mu must be held.
func (m *Machine) cancelAutoSave() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.timerGen++
}

// autoSave runs on the timer. Failures are logged and leave the data dirty;
// the save is retried after another interval. When another draft operation
// is still running the timer is re-armed instead.
func (m *Machine) autoSave(gen uint64) {
	m.mu.Lock()
	if gen != m.timerGen || m.closed || !m.dirty || m.gateway == nil {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	if !m.tryAcquireDraftSlot() {
		m.scheduleAutoSave()
		m.mu.Unlock()
		return
	}
	draft, rev := m.draftLocked()
	m.saving = true
	m.inflight.Add(1)
	logCtx := m.logContext()
	m.mu.Unlock()
	defer m.inflight.Done()
	defer m.releaseDraftSlot()

	ctx, cancel := context.WithTimeout(logCtx, m.autoSaveTimeout)
	defer cancel()

	start := m.now()
	res, err := m.gateway.SaveDraft(ctx, draft)
	elapsed := m.now().Sub(start)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.saving = false
	if err != nil {
		m.log.WarnContext(logCtx, "auto-save failed", "error", err, "retry_in", m.cfg.Persistence.interval().String())
		m.emitter.DraftSaveFailed(draft.ID, err, elapsed, true)
		if m.timerGen == gen {
			m.scheduleAutoSave()
		}
		return
	}
	m.afterSave(res, rev)
	m.emitter.DraftSaved(m.draftID, elapsed, true)
}

// PendingAutoSave reports whether an auto-save is scheduled.
func (m *Machine) PendingAutoSave() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timer != nil
}
