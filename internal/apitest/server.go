// Package apitest runs an in-process stand-in for the remote administrative
// API: a form-based login issuing JWTs and the CSV batch endpoint.
package apitest

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	LoginPath  = "/auth/login"
	UploadPath = "/admin/csv"

	AdminUser     = "admin"
	AdminPassword = "changeme"

	generatedPasswordLength = 8
)

var ResponseHeader = []string{"first_name", "last_name", "username", "password"}

var allowedFields = []string{"first_name", "last_name"}

// Upload is what the batch endpoint received on its last call.
type Upload struct {
	Query         url.Values
	Authorization string
	Filename      string
	ContentType   string
	Content       string
}

type override struct {
	status int
	body   string
}

type Server struct {
	*httptest.Server

	secret []byte

	mu         sync.Mutex
	users      map[string]string
	requests   map[string]int
	lastUpload *Upload
	override   *override
	hold       chan struct{}
}

// New starts the fake API with the admin account registered. It is shut
// down when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		secret:   []byte(uuid.NewString()),
		users:    make(map[string]string),
		requests: make(map[string]int),
	}
	if err := s.AddUser(AdminUser, AdminPassword); err != nil {
		t.Fatalf("apitest: %v", err)
	}

	engine := gin.New()
	engine.Use(s.countRequests())
	engine.POST(LoginPath, s.login)
	engine.POST(UploadPath, s.requireAdmin(), s.upload)

	s.Server = httptest.NewServer(engine)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) AddUser(username, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.users[username] = hash
	s.mu.Unlock()
	return nil
}

// Token issues a valid access token for username without a login call.
func (s *Server) Token(username string) string {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": username,
		"exp":      time.Now().Add(15 * time.Minute).Unix(),
	}).SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

// Requests returns how many calls reached path.
func (s *Server) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

func (s *Server) LastUpload() (Upload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastUpload == nil {
		return Upload{}, false
	}
	return *s.lastUpload, true
}

// OverrideUpload makes the batch endpoint answer every authorised call with
// the given status and raw body.
func (s *Server) OverrideUpload(status int, body string) {
	s.mu.Lock()
	s.override = &override{status: status, body: body}
	s.mu.Unlock()
}

// HoldUploads blocks batch calls until the returned function is called.
func (s *Server) HoldUploads() (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.hold = ch
	s.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (s *Server) countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.requests[c.Request.URL.Path]++
		s.mu.Unlock()
		c.Next()
	}
}

func (s *Server) login(c *gin.Context) {
	if grant := c.PostForm("grant_type"); grant != "" && grant != "password" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "unsupported grant_type"})
		return
	}

	username := c.PostForm("username")
	password := c.PostForm("password")

	s.mu.Lock()
	hash, ok := s.users[username]
	s.mu.Unlock()

	if !ok || !checkPassword(password, hash) {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect username or password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": s.Token(username), "token_type": "Bearer"})
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
			return
		}

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims, func(*jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid or expired token"})
			return
		}
		if claims["username"] != AdminUser {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) upload(c *gin.Context) {
	s.mu.Lock()
	hold := s.hold
	s.mu.Unlock()
	if hold != nil {
		<-hold
	}

	received := Upload{
		Query:         c.Request.URL.Query(),
		Authorization: c.GetHeader("Authorization"),
	}
	file, header, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()
		data, _ := io.ReadAll(file)
		received.Filename = header.Filename
		received.ContentType = header.Header.Get("Content-Type")
		received.Content = string(data)
	}

	s.mu.Lock()
	s.lastUpload = &received
	ov := s.override
	s.mu.Unlock()

	if ov != nil {
		c.Data(ov.status, "application/json", []byte(ov.body))
		return
	}
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "file is required"})
		return
	}

	if !validSpecs(received.Query) {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid virtual machine specs"})
		return
	}
	if received.ContentType != "text/csv" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": gin.H{
			"reason":   "Invalid filetype",
			"expected": "text/csv",
			"received": received.ContentType,
		}})
		return
	}

	entries, err := buildEntries(received.Content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func validSpecs(q url.Values) bool {
	cores, err := strconv.Atoi(q.Get("core_count"))
	if err != nil || cores < 1 {
		return false
	}
	memory, err := strconv.Atoi(q.Get("memory"))
	if err != nil || memory < 512 {
		return false
	}
	duration, err := strconv.ParseFloat(q.Get("duration"), 64)
	if err != nil || duration < 0 {
		return false
	}
	prefix := q.Get("prefix")
	return len(prefix) > 1 && strings.HasPrefix(prefix, "/") && !strings.HasSuffix(prefix, "/")
}

// buildEntries returns the response table: the header followed by one row
// per non-blank input row, extended with a generated username and password.
func buildEntries(content string) ([][]string, error) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil || !slices.Equal(header, allowedFields) {
		return nil, errors.New("Invalid header names")
	}

	entries := [][]string{slices.Clone(ResponseHeader)}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.New("Empty or corrupted csv file. Check contents.")
		}
		if blank(record) || len(record) < 2 {
			continue
		}

		username := strings.ToLower(strings.ReplaceAll(record[0], " ", "")) +
			strings.ToLower(strings.ReplaceAll(record[1], " ", "")) +
			uuid.NewString()[:4]
		password, err := generatePassword(generatedPasswordLength)
		if err != nil {
			return nil, err
		}
		entries = append(entries, append(record, username, password))
	}

	if len(entries) < 2 {
		return nil, errors.New("Empty or corrupted csv file. Check contents.")
	}
	return entries, nil
}

func blank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
