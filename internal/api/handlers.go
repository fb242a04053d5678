package api

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/josh0272/lylov2/internal/config"
	"github.com/josh0272/lylov2/internal/mailer"
	"github.com/josh0272/lylov2/internal/models"
	"github.com/josh0272/lylov2/internal/scratch"
)

// Transcriber converts an audio file on disk into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Mailer dispatches a single plain-text message.
type Mailer interface {
	Send(ctx context.Context, subject, body string) error
}

// Handler wires HTTP routes to the transcriber and the mail dispatcher.
type Handler struct {
	transcriber Transcriber
	mailer      Mailer

	staticDir         string
	allowedOrigins    []string
	maxUploadBytes    int64
	transcribeTimeout time.Duration

	// reported verbatim by /healthz
	modelSize string
	compute   string
}

// NewHandler constructs a Handler instance.
func NewHandler(t Transcriber, m Mailer, cfg *config.Config) *Handler {
	return &Handler{
		transcriber:       t,
		mailer:            m,
		staticDir:         cfg.Server.StaticDir,
		allowedOrigins:    cfg.Server.AllowedOrigins,
		maxUploadBytes:    cfg.Server.MaxUploadBytes,
		transcribeTimeout: cfg.Whisper.Timeout,
		modelSize:         cfg.Whisper.ModelSize,
		compute:           cfg.Whisper.Compute,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(cors.New(cors.Config{
		AllowOrigins:     h.allowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.StaticFile("/", filepath.Join(h.staticDir, "index.html"))
	router.StaticFile("/research", filepath.Join(h.staticDir, "research.html"))
	router.Static("/static", h.staticDir)

	router.GET("/healthz", h.healthz)

	api := router.Group("/api")
	api.POST("/transcribe", h.transcribeUpload)
	api.POST("/submit", h.submitQuestionnaire)
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"model":   h.modelSize,
		"compute": h.compute,
	})
}

// isMediaContentType allows audio/* and video/*. An absent content type is
// unknown-but-allowed; the decoder is the real gate.
func isMediaContentType(ct string) bool {
	return strings.HasPrefix(ct, "audio/") || strings.HasPrefix(ct, "video/")
}

func (h *Handler) transcribeUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "file is required"})
		return
	}
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "file too large"})
		return
	}
	if ct := file.Header.Get("Content-Type"); ct != "" && !isMediaContentType(ct) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": fmt.Sprintf("unsupported content type: %s", ct)})
		return
	}

	// question_id is opaque: echoed byte-for-byte when present, null when absent
	var questionID *string
	if qid, ok := c.GetPostForm("question_id"); ok {
		questionID = &qid
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	defer src.Close()

	path, cleanup, err := scratch.Save(src, file.Filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	defer cleanup()

	ctx := c.Request.Context()
	if h.transcribeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.transcribeTimeout)
		defer cancel()
	}
	text, err := h.transcriber.Transcribe(ctx, path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"question_id": questionID,
		"transcript":  text,
	})
}

func (h *Handler) submitQuestionnaire(c *gin.Context) {
	var sub models.Submission
	if err := c.ShouldBind(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid form body"})
		return
	}

	body := mailer.FormatSubmission(sub)
	if err := h.mailer.Send(c.Request.Context(), mailer.Subject, body); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Submitted and emailed"})
}
