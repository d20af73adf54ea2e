package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/loadout/internal/ir"
)

// DefaultHTTPTimeout bounds each catalog request. The engine itself has no
// timeout policy; the transport owns it.
const DefaultHTTPTimeout = 30 * time.Second

// HTTPSource fetches the catalog from a REST-like backend:
//
//	GET {base}/models             -> [Model]
//	GET {base}/models/{id}/rules  -> {name: Rule}
//	GET {base}/roles              -> {name: Role}
//	GET {base}/commands           -> {name: Command}
//	GET {base}/hooks              -> {before?, after?}
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates a source for baseURL. A nil client gets a default
// client with DefaultHTTPTimeout.
func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// FetchModels implements Source.
func (s *HTTPSource) FetchModels(ctx context.Context) ([]ir.Model, error) {
	var models []ir.Model
	if err := s.getJSON(ctx, "/models", &models); err != nil {
		return nil, err
	}
	return models, nil
}

// FetchRules implements Source.
func (s *HTTPSource) FetchRules(ctx context.Context, modelID string) (map[string]ir.Rule, error) {
	var rules map[string]ir.Rule
	if err := s.getJSON(ctx, "/models/"+url.PathEscape(modelID)+"/rules", &rules); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
		}
		return nil, err
	}
	out := make(map[string]ir.Rule, len(rules))
	for name, r := range rules {
		if r.ID == "" {
			r.ID = name
		}
		r.OwnerModelID = modelID
		out[r.ID] = r
	}
	return out, nil
}

// FetchRoles implements Source.
func (s *HTTPSource) FetchRoles(ctx context.Context) (map[string]ir.Role, error) {
	var roles map[string]ir.Role
	if err := s.getJSON(ctx, "/roles", &roles); err != nil {
		return nil, err
	}
	out := make(map[string]ir.Role, len(roles))
	for name, r := range roles {
		if r.ID == "" {
			r.ID = name
		}
		out[r.ID] = r
	}
	return out, nil
}

// FetchCommands implements Source.
func (s *HTTPSource) FetchCommands(ctx context.Context) (map[string]ir.Command, error) {
	var commands map[string]ir.Command
	if err := s.getJSON(ctx, "/commands", &commands); err != nil {
		return nil, err
	}
	out := make(map[string]ir.Command, len(commands))
	for name, c := range commands {
		if c.ID == "" {
			c.ID = name
		}
		out[c.ID] = c
	}
	return out, nil
}

// FetchHooks implements Source.
func (s *HTTPSource) FetchHooks(ctx context.Context) (ir.HookPair, error) {
	var hooks ir.HookPair
	if err := s.getJSON(ctx, "/hooks", &hooks); err != nil {
		return ir.HookPair{}, err
	}
	return hooks, nil
}

// StatusError reports a non-2xx backend response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: GET %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

func isStatus(err error, code int) bool {
	se, ok := err.(*StatusError)
	return ok && se.StatusCode == code
}

func (s *HTTPSource) getJSON(ctx context.Context, path string, out any) error {
	u := s.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: GET %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{URL: u, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("catalog: decode %s: %w", u, err)
	}
	return nil
}
