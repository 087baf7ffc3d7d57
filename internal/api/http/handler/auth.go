package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pzerone/webvirt-wizard/internal/api/http/dto"
	"github.com/pzerone/webvirt-wizard/internal/apperr"
	"github.com/pzerone/webvirt-wizard/internal/auth"
	"github.com/pzerone/webvirt-wizard/internal/console"
)

const (
	LoginPath = "/"
	HomePath  = "/home"
)

type AuthHandler struct {
	console *console.Console
}

func NewAuthHandler(c *console.Console) *AuthHandler {
	return &AuthHandler{console: c}
}

func (h *AuthHandler) LoginPage(c *gin.Context) {
	if h.console.Guard().CanEnter() {
		c.Redirect(http.StatusFound, HomePath)
		return
	}
	c.HTML(http.StatusOK, "login.tmpl", dto.LoginView{})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var form dto.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "login.tmpl", dto.LoginView{Error: "Username and password are required."})
		return
	}

	creds := &auth.Credentials{Username: form.Username, Password: form.Password}
	if err := h.console.Login(c.Request.Context(), creds); err != nil {
		status := http.StatusUnauthorized
		if apperr.Is(err, apperr.Validation) {
			status = http.StatusBadRequest
		}
		c.HTML(status, "login.tmpl", dto.LoginView{Error: apperr.Message(err)})
		return
	}

	c.Redirect(http.StatusSeeOther, HomePath)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.console.Logout(); err != nil {
		c.HTML(http.StatusInternalServerError, "login.tmpl", dto.LoginView{Error: apperr.Message(err)})
		return
	}
	c.Redirect(http.StatusSeeOther, LoginPath)
}
