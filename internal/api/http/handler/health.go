package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pzerone/webvirt-wizard/internal/api/http/dto"
	"github.com/pzerone/webvirt-wizard/internal/guard"
)

type HealthHandler struct {
	guard *guard.Guard
}

// NewHealthHandler reports liveness. With a nil guard the session field is
// left out.
func NewHealthHandler(g *guard.Guard) *HealthHandler {
	return &HealthHandler{guard: g}
}

func (h *HealthHandler) Check(ctx *gin.Context) {
	resp := dto.HealthResponse{Status: "ok"}
	if h.guard != nil {
		resp.Session = "absent"
		if h.guard.CanEnter() {
			resp.Session = "present"
		}
	}
	ctx.JSON(http.StatusOK, resp)
}
