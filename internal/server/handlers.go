package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/gin-gonic/gin"

	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/compositor"
	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/logging"
	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/naming"
	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/template"
)

// composeFunc matches Compositor.ComposeTrace.
type composeFunc func(template, source []byte) ([]byte, compositor.Trace, error)

// composeResult carries the outcome of one composition through the
// bulkhead. A non-nil rejected means the composition never ran.
type composeResult struct {
	out      []byte
	trace    compositor.Trace
	err      error
	rejected error
}

// Handler serves the compositing endpoints.
type Handler struct {
	compositor *compositor.Compositor
	template   *template.Store
	bulkhead   bulkhead.Bulkhead[composeResult]
	logger     *bolt.Logger

	maxUpload     int64
	timeout       time.Duration
	maxConcurrent int
	version       string

	compose  composeFunc
	inflight sync.WaitGroup
}

// HealthCheck reports the service status.
// GET /api/v1/health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       h.version,
		Template:      h.template.Path(),
		TemplateBytes: len(h.template.Bytes()),
		SourcePages:   h.compositor.Geometry().RequiredSourcePages(),
		MaxConcurrent: h.maxConcurrent,
	})
}

// Compose builds a cover spread from the uploaded source PDF.
// POST /api/v1/compose
//
// Accepts a multipart upload with the field name "file" (and an optional
// "row" field) or a raw application/pdf body with optional "filename"
// and "row" query parameters. Replies with the spread as an attachment.
func (h *Handler) Compose(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	source, name, err := readSource(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reply(c, http.StatusRequestEntityTooLarge, "too_large", "The uploaded file is larger than the configured limit")
			return
		}
		h.reply(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	result, ok := h.run(ctx, source)
	if !ok {
		h.reply(c, http.StatusGatewayTimeout, "timeout", "The cover spread took too long to build")
		return
	}
	if result.rejected != nil {
		if errors.Is(result.rejected, context.DeadlineExceeded) {
			h.reply(c, http.StatusGatewayTimeout, "timeout", "The cover spread took too long to build")
			return
		}
		h.reply(c, http.StatusServiceUnavailable, "busy", "Too many cover spreads are being built, try again shortly")
		return
	}
	if result.err != nil {
		h.composeFailed(c, result)
		return
	}

	filename := naming.CoverName(name)
	logging.NewEvent(h.logger.Info()).
		Add(logging.RequestID(GetRequestID(c))).
		Add(logging.Filename(filename)).
		Add(logging.Size("output_bytes", len(result.out))).
		Msg("cover spread built")

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, "application/pdf", result.out)
}

// run composes source inside the bulkhead. It returns false when ctx
// expires first; the composition then finishes in the background and its
// result is dropped.
func (h *Handler) run(ctx context.Context, source []byte) (composeResult, bool) {
	done := make(chan composeResult, 1)

	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		result, err := h.bulkhead.Execute(ctx, func(ctx context.Context) (composeResult, error) {
			out, trace, err := h.compose(h.template.Bytes(), source)
			return composeResult{out: out, trace: trace, err: err}, nil
		})
		if err != nil {
			result = composeResult{rejected: err}
		}
		done <- result
	}()

	select {
	case result := <-done:
		return result, true
	case <-ctx.Done():
		return composeResult{}, false
	}
}

// Wait blocks until no composition is running.
func (h *Handler) Wait() {
	h.inflight.Wait()
}

func (h *Handler) composeFailed(c *gin.Context, result composeResult) {
	err := result.err

	var outOfRange *compositor.PageIndexOutOfRangeError
	switch {
	case errors.As(err, &outOfRange) && outOfRange.Which == compositor.RoleSource:
		h.reply(c, http.StatusUnprocessableEntity, "too_few_pages",
			fmt.Sprintf("The PDF needs at least %d pages, it has %d", outOfRange.Index+1, outOfRange.PageCount))
	case compositor.IsSourceFault(err):
		h.reply(c, http.StatusUnprocessableEntity, "invalid_source", err.Error())
	default:
		logging.NewEvent(h.logger.Error()).
			Add(logging.RequestID(GetRequestID(c))).
			Add(logging.States(result.trace.Strings())).
			Add(logging.ErrorField(err)).
			Msg("cover spread failed")
		h.reply(c, http.StatusInternalServerError, "compose_failed", "The cover spread could not be built")
	}
}

func (h *Handler) reply(c *gin.Context, code int, kind, message string) {
	c.JSON(code, ErrorResponse{
		Error:     kind,
		Message:   message,
		Code:      code,
		RequestID: GetRequestID(c),
	})
}

// readSource returns the uploaded PDF and the name the client gave it.
func readSource(c *gin.Context) ([]byte, string, error) {
	var (
		data []byte
		name string
		row  string
	)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, "", err
			}
			return nil, "", errors.New("no PDF file provided, upload a file with the field name 'file'")
		}
		defer file.Close()

		data, err = io.ReadAll(file)
		if err != nil {
			return nil, "", err
		}
		name = header.Filename
		row = c.PostForm("row")
	} else {
		var err error
		data, err = io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, "", err
		}
		name = c.Query("filename")
		row = c.Query("row")
	}

	if len(data) == 0 {
		return nil, "", errors.New("the uploaded PDF is empty")
	}
	if name == "" && row != "" {
		name = naming.RowName(row)
	}
	return data, name, nil
}
