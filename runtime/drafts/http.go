package drafts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/AltairaLabs/WizardKit/pkg/errors"
	"github.com/AltairaLabs/WizardKit/pkg/httputil"
)

const maxErrorBodyBytes = 4 << 10

// ListResponse is the body of GET /drafts.
type ListResponse struct {
	IDs []string `json:"ids"`
}

// ErrorResponse is the body of any non-2xx draft API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HTTPStore is a Store client for a remote draft API (see server/draftapi).
// Non-2xx responses other than 404 come back as *errors.ContextualError
// carrying the response status code.
type HTTPStore struct {
	baseURL string
	client  *http.Client
	headers http.Header
}

// HTTPOption configures an HTTPStore.
type HTTPOption func(*HTTPStore)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPStore) {
		if c != nil {
			s.client = c
		}
	}
}

// WithHeader adds a header (e.g. Authorization) to every request.
func WithHeader(key, value string) HTTPOption {
	return func(s *HTTPStore) {
		s.headers.Add(key, value)
	}
}

// NewHTTPStore creates a client for the draft API at baseURL.
func NewHTTPStore(baseURL string, opts ...HTTPOption) *HTTPStore {
	s := &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httputil.NewHTTPClient(httputil.DefaultDraftStoreTimeout),
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches GET /drafts/{id}.
func (s *HTTPStore) Load(ctx context.Context, id string) (*Draft, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	var d Draft
	if err := s.do(ctx, "LoadDraft", http.MethodGet, "/drafts/"+url.PathEscape(id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Save sends PUT /drafts/{id} and copies the server's timestamps back.
func (s *HTTPStore) Save(ctx context.Context, draft *Draft) error {
	if err := validateDraft(draft); err != nil {
		return err
	}
	var saved Draft
	if err := s.do(ctx, "SaveDraft", http.MethodPut, "/drafts/"+url.PathEscape(draft.ID), draft, &saved); err != nil {
		return err
	}
	draft.CreatedAt = saved.CreatedAt
	draft.UpdatedAt = saved.UpdatedAt
	return nil
}

// Delete sends DELETE /drafts/{id}.
func (s *HTTPStore) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	return s.do(ctx, "DeleteDraft", http.MethodDelete, "/drafts/"+url.PathEscape(id), nil, nil)
}

// List fetches GET /drafts.
func (s *HTTPStore) List(ctx context.Context, opts ListOptions) ([]string, error) {
	q := url.Values{}
	if opts.WizardID != "" {
		q.Set("wizard", opts.WizardID)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	path := "/drafts"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp ListResponse
	if err := s.do(ctx, "ListDrafts", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.IDs == nil {
		resp.IDs = []string{}
	}
	return resp.IDs, nil
}

func (s *HTTPStore) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return pkgerrors.New(pkgerrors.ComponentDrafts, op, fmt.Errorf("marshal request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return pkgerrors.New(pkgerrors.ComponentDrafts, op, err)
	}
	for k, vs := range s.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return pkgerrors.New(pkgerrors.ComponentDrafts, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pkgerrors.New(pkgerrors.ComponentDrafts, op, readErrorBody(resp)).WithStatusCode(resp.StatusCode)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.New(pkgerrors.ComponentDrafts, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func readErrorBody(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	var er ErrorResponse
	if json.Unmarshal(data, &er) == nil && er.Error != "" {
		return errors.New(er.Error)
	}
	if msg := strings.TrimSpace(string(data)); msg != "" {
		return errors.New(msg)
	}
	return errors.New(http.StatusText(resp.StatusCode))
}
