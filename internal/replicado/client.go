package replicado

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/alan-neves/fechaduras/config"
)

// ErrUnavailable marks any failure to query the institutional directory.
// Callers must not proceed with a partial roster when they see it.
var ErrUnavailable = errors.New("replicado unavailable")

// Person is a directory record: registration number plus display name.
type Person struct {
	Codpes int    `json:"codpes"`
	Name   string `json:"nompes"`
}

// Program is a graduate program offered by the unit.
type Program struct {
	Codare string `json:"codare"`
	Name   string `json:"nomare"`
}

// Client queries the Replicado directory API over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a directory client from configuration.
func NewClient(cfg *config.ReplicadoConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// FindPersonnelByUnits returns all active personnel belonging to any of the
// given organizational units. The codes are sent as one comma-joined batch.
func (c *Client) FindPersonnelByUnits(ctx context.Context, codes []string) ([]Person, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	q := url.Values{"setores": {strings.Join(codes, ",")}}
	var people []Person
	if err := c.get(ctx, "/pessoas/setores", q, &people); err != nil {
		return nil, err
	}
	return people, nil
}

// FindStudentsByPrograms returns all currently enrolled graduate students in
// any of the given program areas, batched like FindPersonnelByUnits.
func (c *Client) FindStudentsByPrograms(ctx context.Context, codes []string) ([]Person, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	q := url.Values{"areas": {strings.Join(codes, ",")}}
	var people []Person
	if err := c.get(ctx, "/posgraduacao/alunos", q, &people); err != nil {
		return nil, err
	}
	return people, nil
}

// ListActivePrograms returns the unit's active graduate programs.
func (c *Client) ListActivePrograms(ctx context.Context) ([]Program, error) {
	var programs []Program
	if err := c.get(ctx, "/posgraduacao/programas", nil, &programs); err != nil {
		return nil, err
	}
	return programs, nil
}

// ValidatePersons looks up the given registration numbers and returns the
// subset the directory knows about.
func (c *Client) ValidatePersons(ctx context.Context, codpes []int) ([]Person, error) {
	if len(codpes) == 0 {
		return nil, nil
	}
	parts := make([]string, len(codpes))
	for i, n := range codpes {
		parts[i] = fmt.Sprintf("%d", n)
	}
	q := url.Values{"codpes": {strings.Join(parts, ",")}}
	var people []Person
	if err := c.get(ctx, "/pessoas", q, &people); err != nil {
		return nil, err
	}
	return people, nil
}

// Photo fetches the institutional photo (JPEG) for one person.
func (c *Client) Photo(ctx context.Context, codpes int) ([]byte, error) {
	u := fmt.Sprintf("%s/wsfoto/%d", c.baseURL, codpes)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: wsfoto status %d", ErrUnavailable, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// get performs an authenticated GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("replicado request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("replicado returned non-200",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("%w: status %d on %s", ErrUnavailable, resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrUnavailable, path, err)
	}
	return nil
}
