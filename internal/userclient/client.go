// Package userclient talks to the roster HTTP API on behalf of a panel session.
package userclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/roster/internal/users"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 10 * time.Second
	usersPath      = "/api/users"

	errorCodeInvalidUser = "invalid_user"
	errorCodeEmailTaken  = "email_taken"

	operationList   = "list"
	operationCreate = "create"
	operationUpdate = "update"
	operationDelete = "delete"
)

var errMissingBaseURL = errors.New("userclient: base url is required")

// RequestError describes a request that failed in transport or with an unexpected status.
type RequestError struct {
	Operation string
	Status    int
	Code      string
	Err       error
}

func (e *RequestError) Error() string {
	message := "userclient: " + e.Operation + " failed"
	if e.Status != 0 {
		message += fmt.Sprintf(" with status %d", e.Status)
	}
	if e.Code != "" {
		message += " (" + e.Code + ")"
	}
	if e.Err != nil {
		message += ": " + e.Err.Error()
	}
	return message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Config configures a Client.
type Config struct {
	// BaseURL is the scheme and host of the roster API, e.g. http://localhost:8080.
	BaseURL    string
	HTTPClient *http.Client
	// Timeout applies when HTTPClient is nil.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client implements the panel collaborator over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

type listResponse struct {
	Users []users.User `json:"users"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields users.FieldErrors `json:"fields"`
}

type draftRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`
}

// New constructs a Client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errMissingBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("userclient: invalid base url: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{baseURL: baseURL, httpClient: httpClient, logger: logger}, nil
}

// ListUsers fetches every user.
func (c *Client) ListUsers(ctx context.Context) ([]users.User, error) {
	var payload listResponse
	if err := c.do(ctx, operationList, http.MethodGet, usersPath, nil, http.StatusOK, &payload); err != nil {
		return nil, err
	}
	if payload.Users == nil {
		return []users.User{}, nil
	}
	return payload.Users, nil
}

// CreateUser submits a draft for a new user.
func (c *Client) CreateUser(ctx context.Context, draft users.Draft) (users.User, error) {
	var created users.User
	if err := c.do(ctx, operationCreate, http.MethodPost, usersPath, toRequest(draft), http.StatusCreated, &created); err != nil {
		return users.User{}, err
	}
	return created, nil
}

// UpdateUser replaces the editable fields of id.
func (c *Client) UpdateUser(ctx context.Context, id string, draft users.Draft) (users.User, error) {
	var updated users.User
	if err := c.do(ctx, operationUpdate, http.MethodPut, userPath(id), toRequest(draft), http.StatusOK, &updated); err != nil {
		return users.User{}, err
	}
	return updated, nil
}

// DeleteUser removes id.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, operationDelete, http.MethodDelete, userPath(id), nil, http.StatusNoContent, nil)
}

func (c *Client) do(ctx context.Context, operation, method, path string, body any, expected int, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &RequestError{Operation: operation, Err: err}
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &RequestError{Operation: operation, Err: err}
	}
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		c.logger.Warn("user api request failed", zap.String("operation", operation), zap.Error(err))
		return &RequestError{Operation: operation, Err: err}
	}
	defer response.Body.Close()

	if response.StatusCode != expected {
		return c.statusError(operation, response)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return &RequestError{Operation: operation, Status: response.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) statusError(operation string, response *http.Response) error {
	var payload errorResponse
	raw, _ := io.ReadAll(io.LimitReader(response.Body, 64<<10))
	_ = json.Unmarshal(raw, &payload)

	c.logger.Debug("user api returned an error",
		zap.String("operation", operation),
		zap.Int("status", response.StatusCode),
		zap.String("error_code", payload.Error))

	switch {
	case response.StatusCode == http.StatusNotFound:
		return users.ErrUserNotFound
	case response.StatusCode == http.StatusBadRequest && payload.Error == errorCodeInvalidUser && len(payload.Fields) > 0:
		return payload.Fields
	case response.StatusCode == http.StatusConflict && payload.Error == errorCodeEmailTaken:
		return users.ErrEmailTaken
	}

	code := payload.Error
	if payload.Code != "" {
		code = payload.Code
	}
	return &RequestError{Operation: operation, Status: response.StatusCode, Code: code}
}

func userPath(id string) string {
	return usersPath + "/" + url.PathEscape(id)
}

func toRequest(draft users.Draft) draftRequest {
	return draftRequest{Name: draft.Name, Email: draft.Email, Status: string(draft.Status)}
}
