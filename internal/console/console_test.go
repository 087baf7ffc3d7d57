package console

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/pzerone/webvirt-wizard/internal/apitest"
	"github.com/pzerone/webvirt-wizard/internal/apperr"
	"github.com/pzerone/webvirt-wizard/internal/auth"
	"github.com/pzerone/webvirt-wizard/internal/csvgrid"
	"github.com/pzerone/webvirt-wizard/internal/provisioning"
	"github.com/pzerone/webvirt-wizard/internal/session"
	"github.com/pzerone/webvirt-wizard/internal/submission"
	"github.com/stretchr/testify/suite"
)

const usersCSV = "first_name,last_name\nAda,Lovelace\nAlan,Turing"

type ConsoleSuite struct {
	suite.Suite
	api     *apitest.Server
	store   *session.FileStore
	console *Console
}

func TestConsoleSuite(t *testing.T) {
	suite.Run(t, new(ConsoleSuite))
}

func (s *ConsoleSuite) SetupTest() {
	s.api = apitest.New(s.T())
	s.store = session.NewFileStore(filepath.Join(s.T().TempDir(), "session.yaml"))
	s.console = New(s.store,
		auth.NewClient(s.api.URL, nil, s.store),
		submission.NewDispatcher(s.api.URL, nil, s.store))
}

func (s *ConsoleSuite) login() {
	err := s.console.Login(context.Background(), &auth.Credentials{Username: apitest.AdminUser, Password: apitest.AdminPassword})
	s.Require().NoError(err)
}

func validDraft() provisioning.Draft {
	return provisioning.Draft{CoreCount: "2", Memory: "1024", Duration: "0", Prefix: "/mnt/ldapusers"}
}

func (s *ConsoleSuite) TestLoginAdmitsAndLogoutDenies() {
	s.False(s.console.Guard().CanEnter())

	s.login()
	s.True(s.console.Guard().CanEnter())
	s.Equal(apitest.AdminUser, s.console.Snapshot().Operator)

	s.Require().NoError(s.console.Logout())
	s.False(s.console.Guard().CanEnter())
	_, ok, err := s.store.Get()
	s.NoError(err)
	s.False(ok)
}

func (s *ConsoleSuite) TestLoginMissingCredentials() {
	err := s.console.Login(context.Background(), &auth.Credentials{Username: "admin"})
	s.Equal("Username and password are required.", apperr.Message(err))
	s.Equal(0, s.api.Requests(apitest.LoginPath))
	s.False(s.console.Guard().CanEnter())
}

func (s *ConsoleSuite) TestChooseFile() {
	s.login()

	s.Require().NoError(s.console.ChooseFile("users.csv", "text/csv", []byte(usersCSV)))
	snap := s.console.Snapshot()
	s.Equal("users.csv", snap.FileName)
	s.Equal(csvgrid.Grid{{"first_name", "last_name"}, {"Ada", "Lovelace"}, {"Alan", "Turing"}}, snap.Preview)
	s.Empty(snap.Error)

	err := s.console.ChooseFile("users.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", []byte("PK"))
	s.True(apperr.Is(err, apperr.Ingestion))
	snap = s.console.Snapshot()
	s.Empty(snap.FileName)
	s.Nil(snap.Preview)
	s.Equal("Please upload a valid CSV file.", snap.Error)
}

func (s *ConsoleSuite) TestUploadShowsResult() {
	s.login()
	s.Require().NoError(s.console.ChooseFile("users.csv", "text/csv", []byte(usersCSV)))

	s.Require().NoError(s.console.Upload(context.Background(), validDraft()))

	snap := s.console.Snapshot()
	s.Require().Len(snap.Result, 3)
	s.Equal(apitest.ResponseHeader, snap.Result.Header())
	s.Empty(snap.Error)

	exp, err := s.console.Export(time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	s.Equal("response-2026-10-17.csv", exp.Filename)
	s.Contains(exp.Content, "Ada,Lovelace,")
	s.NotContains(exp.Content, "first_name")

	s.console.DismissResult()
	s.Nil(s.console.Snapshot().Result)
}

func (s *ConsoleSuite) TestUploadValidationShortCircuits() {
	s.login()
	s.Require().NoError(s.console.ChooseFile("users.csv", "text/csv", []byte(usersCSV)))

	draft := validDraft()
	draft.Memory = "256"
	err := s.console.Upload(context.Background(), draft)
	s.True(apperr.Is(err, apperr.Validation))
	s.Equal("Memory must be greater than or equal to 512 MB.", s.console.Snapshot().Error)
	s.Equal(0, s.api.Requests(apitest.UploadPath))

	// The message stays until a corrected resubmission succeeds
	s.Require().NoError(s.console.Upload(context.Background(), validDraft()))
	s.Empty(s.console.Snapshot().Error)
}

func (s *ConsoleSuite) TestUploadWithoutFile() {
	s.login()

	err := s.console.Upload(context.Background(), validDraft())
	s.True(apperr.Is(err, apperr.Validation))
	s.Equal(0, s.api.Requests(apitest.UploadPath))
}

func (s *ConsoleSuite) TestUploadFailureKeepsNoResult() {
	s.login()
	s.Require().NoError(s.console.ChooseFile("users.csv", "text/csv", []byte(usersCSV)))
	s.api.OverrideUpload(http.StatusOK, "not json")

	err := s.console.Upload(context.Background(), validDraft())
	s.True(apperr.Is(err, apperr.Submission))
	snap := s.console.Snapshot()
	s.Equal("An error occurred while uploading the data.", snap.Error)
	s.Nil(snap.Result)
}

func (s *ConsoleSuite) TestUploadWithRevokedSession() {
	s.Require().NoError(s.store.Set(session.Session{Token: "revoked", TokenType: "Bearer"}))
	s.True(s.console.Guard().CanEnter(), "the guard cannot tell a revoked token apart")
	s.Require().NoError(s.console.ChooseFile("users.csv", "text/csv", []byte(usersCSV)))

	err := s.console.Upload(context.Background(), validDraft())
	s.ErrorIs(err, submission.ErrSessionRejected)
	s.Equal("Your session was rejected. Please log in again.", s.console.Snapshot().Error)
}

func (s *ConsoleSuite) TestLogoutDiscardsWork() {
	s.login()
	s.Require().NoError(s.console.ChooseFile("users.csv", "text/csv", []byte(usersCSV)))
	s.Require().NoError(s.console.Upload(context.Background(), validDraft()))

	s.Require().NoError(s.console.Logout())

	snap := s.console.Snapshot()
	s.Empty(snap.FileName)
	s.Nil(snap.Preview)
	s.Nil(snap.Result)
	s.Empty(snap.Operator)
}
