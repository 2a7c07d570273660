package draftapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	pkgerrors "github.com/AltairaLabs/WizardKit/pkg/errors"
	"github.com/AltairaLabs/WizardKit/runtime/drafts"
	"github.com/AltairaLabs/WizardKit/runtime/logger"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSchema serves the Draft JSON Schema.
func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(drafts.JSONSchema())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := logger.WithDraftID(r.Context(), id)

	d, err := s.store.Load(ctx, id)
	if err != nil {
		s.fail(w, r, "LoadDraft", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	d, ok := s.decode(w, r)
	if !ok {
		return
	}
	if d.ID == "" {
		d.ID = id
	}
	if d.ID != id {
		writeError(w, http.StatusBadRequest, "draft id does not match path")
		return
	}
	s.save(w, r, d, http.StatusOK)
}

// handleCreate stores a new draft. A client-chosen id that already exists
// is a conflict; PUT is the way to overwrite.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	d, ok := s.decode(w, r)
	if !ok {
		return
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	} else {
		_, err := s.store.Load(r.Context(), d.ID)
		switch {
		case err == nil:
			writeError(w, http.StatusConflict, "draft "+d.ID+" already exists")
			return
		case !errors.Is(err, drafts.ErrNotFound):
			s.fail(w, r, "SaveDraft", err)
			return
		}
	}
	s.save(w, r, d, http.StatusCreated)
}

func (s *Server) save(w http.ResponseWriter, r *http.Request, d *drafts.Draft, status int) {
	ctx := logger.WithDraftID(r.Context(), d.ID)
	if d.WizardID != "" {
		ctx = logger.WithWizardID(ctx, d.WizardID)
	}
	if err := s.store.Save(ctx, d); err != nil {
		s.fail(w, r, "SaveDraft", err)
		return
	}
	s.log.DebugContext(ctx, "draft saved", "status", status)
	if status == http.StatusCreated {
		w.Header().Set("Location", "/drafts/"+d.ID)
	}
	writeJSON(w, status, d)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := logger.WithDraftID(r.Context(), id)

	if err := s.store.Delete(ctx, id); err != nil {
		s.fail(w, r, "DeleteDraft", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := drafts.ListOptions{WizardID: q.Get("wizard")}

	var err error
	if opts.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if opts.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	ids, err := s.store.List(r.Context(), opts)
	if err != nil {
		s.fail(w, r, "ListDrafts", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, drafts.ListResponse{IDs: ids})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*drafts.Draft, bool) {
	var d drafts.Draft
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "invalid draft body: "+err.Error())
		return nil, false
	}
	return &d, true
}

// fail maps store errors to status codes. Backend failures are logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, drafts.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, drafts.ErrInvalidID), errors.Is(err, drafts.ErrInvalidDraft):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		status := http.StatusInternalServerError
		if code := pkgerrors.StatusCode(err); code >= 400 {
			status = http.StatusBadGateway
		}
		wrapped := pkgerrors.New(pkgerrors.ComponentServer, op, err).WithStatusCode(status)
		s.log.ErrorContext(r.Context(), "draft store failure", "error", wrapped)
		writeError(w, status, err.Error())
	}
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("must be a non-negative integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, drafts.ErrorResponse{Error: msg})
}
