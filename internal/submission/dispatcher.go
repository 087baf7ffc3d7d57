package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pzerone/webvirt-wizard/internal/apperr"
	"github.com/pzerone/webvirt-wizard/internal/csvgrid"
	"github.com/pzerone/webvirt-wizard/internal/flight"
	"github.com/pzerone/webvirt-wizard/internal/provisioning"
	"github.com/pzerone/webvirt-wizard/internal/session"
)

const (
	uploadPath = "/admin/csv"
	fileField  = "file"

	failureMessage = "An error occurred while uploading the data."
)

var (
	ErrBusy            = errors.New("submission already in progress")
	ErrNoSession       = errors.New("no active session")
	ErrSessionRejected = errors.New("session rejected by server")
)

// File is the CSV chosen by the operator, sent unmodified.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Dispatcher sends validated batch requests to the administrative endpoint.
type Dispatcher struct {
	baseURL    string
	httpClient *http.Client
	store      session.Store
	gate       flight.Gate
}

func NewDispatcher(baseURL string, httpClient *http.Client, store session.Store) *Dispatcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Dispatcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		store:      store,
	}
}

func (d *Dispatcher) State() flight.State {
	return d.gate.State()
}

// Submit posts file with the request encoded as query parameters and returns
// the server's table. Failures are not retried.
func (d *Dispatcher) Submit(ctx context.Context, req provisioning.Request, file File) (csvgrid.Grid, error) {
	s, ok, err := d.store.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok {
		return nil, ErrNoSession
	}

	if !d.gate.TryBegin() {
		return nil, ErrBusy
	}
	defer d.gate.End()

	body, contentType, err := encodeFile(file)
	if err != nil {
		return nil, apperr.Wrap(apperr.Submission, failureMessage, err)
	}

	url := d.baseURL + uploadPath + "?" + req.Query().Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, apperr.Wrap(apperr.Submission, failureMessage, fmt.Errorf("failed to create request: %w", err))
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.Token)
	httpReq.Header.Set("X-Request-ID", requestID)

	slog.Info("Submitting batch request",
		"request_id", requestID,
		"file", file.Name,
		"core_count", req.CoreCount,
		"memory", req.MemoryMB,
		"duration", req.DurationHours,
		"prefix", req.HomePrefix)

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperr.Wrap(apperr.Submission, failureMessage, fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.Submission, failureMessage, fmt.Errorf("failed to read response body: %w", err))
	}

	slog.Info("Received batch response",
		"request_id", requestID,
		"status_code", resp.StatusCode,
		"content_length", len(respBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		cause := fmt.Errorf("upload failed (HTTP %d): %s", resp.StatusCode, detail(respBody))
		if resp.StatusCode == http.StatusUnauthorized {
			cause = fmt.Errorf("%w: %w", ErrSessionRejected, cause)
		}
		return nil, apperr.Wrap(apperr.Submission, failureMessage, cause)
	}

	grid, err := decodeGrid(respBody)
	if err != nil {
		return nil, apperr.Wrap(apperr.Submission, failureMessage, err)
	}
	return grid, nil
}

func encodeFile(file File) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, file.Name))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// decodeGrid reads a JSON array of arrays, rendering every scalar cell as a
// string.
func decodeGrid(body []byte) (csvgrid.Grid, error) {
	var raw [][]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	grid := make(csvgrid.Grid, len(raw))
	for i, row := range raw {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = cellString(cell)
		}
		grid[i] = cells
	}
	return grid, nil
}

func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	default:
		b, _ := json.Marshal(c)
		return string(b)
	}
}

func detail(body []byte) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != nil {
		return cellString(payload.Detail)
	}
	return string(body)
}
