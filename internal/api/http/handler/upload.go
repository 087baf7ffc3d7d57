package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pzerone/webvirt-wizard/internal/api/http/dto"
	"github.com/pzerone/webvirt-wizard/internal/console"
	"github.com/pzerone/webvirt-wizard/internal/csvgrid"
	"github.com/pzerone/webvirt-wizard/internal/provisioning"
	"github.com/pzerone/webvirt-wizard/internal/result"
)

const maxUploadSize = 10 * 1024 * 1024

type HomeHandler struct {
	console *console.Console
	now     func() time.Time
}

func NewHomeHandler(c *console.Console) *HomeHandler {
	return &HomeHandler{console: c, now: time.Now}
}

func (h *HomeHandler) Show(c *gin.Context) {
	h.render(c, http.StatusOK, dto.UploadForm{})
}

func (h *HomeHandler) ChooseFile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		slog.Warn("Failed to read file from form", "error", err)
		_ = h.console.ChooseFile("", "", nil)
		h.render(c, http.StatusBadRequest, dto.UploadForm{})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("Failed to read uploaded file", "error", err)
		_ = h.console.ChooseFile(header.Filename, "", nil)
		h.render(c, http.StatusBadRequest, dto.UploadForm{})
		return
	}

	declared := csvgrid.DeclaredMediaType(header.Filename, header.Header.Get("Content-Type"))
	if err := h.console.ChooseFile(header.Filename, declared, data); err != nil {
		h.render(c, http.StatusUnsupportedMediaType, dto.UploadForm{})
		return
	}
	c.Redirect(http.StatusSeeOther, HomePath)
}

func (h *HomeHandler) Upload(c *gin.Context) {
	var form dto.UploadForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, form)
		return
	}

	draft := provisioning.Draft{
		CoreCount: form.CoreCount,
		Memory:    form.Memory,
		Duration:  form.Duration,
		Prefix:    form.Prefix,
	}
	if err := h.console.Upload(c.Request.Context(), draft); err != nil {
		// Keep what the operator typed so it can be corrected
		h.render(c, http.StatusUnprocessableEntity, form)
		return
	}
	c.Redirect(http.StatusSeeOther, HomePath)
}

func (h *HomeHandler) Download(c *gin.Context) {
	export, err := h.console.Export(h.now())
	if err != nil {
		if errors.Is(err, result.ErrNothingToExport) {
			c.String(http.StatusNotFound, "no result to download")
			return
		}
		slog.Error("Failed to export result", "error", err)
		c.String(http.StatusInternalServerError, "failed to export result")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(export.Content))
}

func (h *HomeHandler) Dismiss(c *gin.Context) {
	h.console.DismissResult()
	c.Redirect(http.StatusSeeOther, HomePath)
}

func (h *HomeHandler) render(c *gin.Context, status int, form dto.UploadForm) {
	snap := h.console.Snapshot()
	view := dto.HomeView{
		Operator: snap.Operator,
		FileName: snap.FileName,
		Error:    snap.Error,
		Form:     form,
	}
	if len(snap.Preview) > 0 {
		view.Preview = &dto.Table{Header: snap.Preview.Header(), Rows: snap.Preview.Rows()}
	}
	if snap.Result != nil {
		view.Result = &dto.Table{Header: snap.Result.Header(), Rows: snap.Result.Rows()}
	}
	c.HTML(status, "home.tmpl", view)
}
