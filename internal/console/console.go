// Package console keeps the working state of the single operator: the
// chosen CSV and its preview, the last message, and the latest result.
package console

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pzerone/webvirt-wizard/internal/apperr"
	"github.com/pzerone/webvirt-wizard/internal/auth"
	"github.com/pzerone/webvirt-wizard/internal/csvgrid"
	"github.com/pzerone/webvirt-wizard/internal/guard"
	"github.com/pzerone/webvirt-wizard/internal/provisioning"
	"github.com/pzerone/webvirt-wizard/internal/result"
	"github.com/pzerone/webvirt-wizard/internal/session"
	"github.com/pzerone/webvirt-wizard/internal/submission"
)

const (
	noFileMessage  = "Please upload a valid CSV file."
	busyMessage    = "A request is already in progress."
	expiredMessage = "Your session was rejected. Please log in again."
)

// Snapshot is a read-only copy of the console state for rendering.
type Snapshot struct {
	Operator string
	FileName string
	Preview  csvgrid.Grid
	Error    string
	Result   csvgrid.Grid
}

type Console struct {
	store      session.Store
	guard      *guard.Guard
	auth       *auth.Client
	dispatcher *submission.Dispatcher
	presenter  *result.Presenter

	mu      sync.Mutex
	file    *submission.File
	preview csvgrid.Grid
	errMsg  string
}

func New(store session.Store, authClient *auth.Client, dispatcher *submission.Dispatcher) *Console {
	return &Console{
		store:      store,
		guard:      guard.New(store),
		auth:       authClient,
		dispatcher: dispatcher,
		presenter:  result.NewPresenter(),
	}
}

func (c *Console) Guard() *guard.Guard {
	return c.guard
}

// Login returns the operator-facing message on failure.
func (c *Console) Login(ctx context.Context, creds *auth.Credentials) error {
	_, err := c.auth.Login(ctx, creds)
	if err != nil {
		if errors.Is(err, auth.ErrBusy) {
			return apperr.Wrap(apperr.Authentication, busyMessage, err)
		}
		slog.Warn("Login failed", "error", err)
		return err
	}
	c.reset()
	return nil
}

// Logout clears the session and everything the operator was working on.
func (c *Console) Logout() error {
	c.reset()
	return c.auth.Logout()
}

func (c *Console) reset() {
	c.mu.Lock()
	c.file = nil
	c.preview = nil
	c.errMsg = ""
	c.mu.Unlock()
	c.presenter.Dismiss()
}

// ChooseFile replaces the chosen file and its preview. A file that does not
// declare itself as CSV is refused and the previous choice is dropped.
func (c *Console) ChooseFile(name, declaredType string, data []byte) error {
	grid, err := csvgrid.Ingest(declaredType, data)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.file = nil
		c.preview = nil
		c.errMsg = apperr.Message(err)
		slog.Info("Rejected chosen file", "file", name, "declared_type", declaredType)
		return err
	}

	c.file = &submission.File{Name: name, ContentType: declaredType, Data: data}
	c.preview = grid
	c.errMsg = ""
	slog.Info("File chosen", "file", name, "rows", len(grid))
	return nil
}

// Upload validates the draft and dispatches the chosen file. On success the
// result replaces any previous one.
func (c *Console) Upload(ctx context.Context, draft provisioning.Draft) error {
	req, err := provisioning.Validate(draft)
	if err != nil {
		return c.fail(err)
	}

	c.mu.Lock()
	file := c.file
	c.mu.Unlock()
	if file == nil {
		return c.fail(apperr.Field(apperr.Validation, "file", noFileMessage))
	}

	grid, err := c.dispatcher.Submit(ctx, req, *file)
	if err != nil {
		switch {
		case errors.Is(err, submission.ErrBusy):
			err = apperr.Wrap(apperr.Submission, busyMessage, err)
		case errors.Is(err, submission.ErrSessionRejected):
			err = apperr.Wrap(apperr.Submission, expiredMessage, err)
		}
		slog.Error("Upload failed", "error", err)
		return c.fail(err)
	}

	c.presenter.Show(grid)
	c.mu.Lock()
	c.errMsg = ""
	c.mu.Unlock()
	return nil
}

func (c *Console) fail(err error) error {
	c.mu.Lock()
	c.errMsg = apperr.Message(err)
	c.mu.Unlock()
	return err
}

func (c *Console) Export(now time.Time) (result.Export, error) {
	return c.presenter.Export(now)
}

func (c *Console) DismissResult() {
	c.presenter.Dismiss()
}

func (c *Console) Snapshot() Snapshot {
	var operator string
	if s, ok, err := c.store.Get(); err == nil && ok {
		operator = session.Operator(s)
	}
	res, _ := c.presenter.Current()

	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Operator: operator,
		Preview:  c.preview,
		Error:    c.errMsg,
		Result:   res,
	}
	if c.file != nil {
		snap.FileName = c.file.Name
	}
	return snap
}
