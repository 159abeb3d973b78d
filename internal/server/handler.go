package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/snaptext/snaptext/constants"
	"github.com/snaptext/snaptext/internal/asset"
	"github.com/snaptext/snaptext/internal/common"
	"github.com/snaptext/snaptext/internal/pipeline"
)

type Config struct {
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type modeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// NewHandler wires the single-session pipeline to an HTTP surface.
func NewHandler(session *pipeline.Session, cfg Config, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger), requestSizeLimiter(cfg.MaxUploadBytes))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")
	v1.POST("/upload", uploadImage(session, logger))
	v1.POST("/mode", changeMode(session))
	v1.POST("/reset", func(c *gin.Context) {
		c.JSON(http.StatusOK, session.Reset())
	})
	v1.GET("/result", func(c *gin.Context) {
		c.JSON(http.StatusOK, session.Snapshot())
	})
	v1.GET("/preview", func(c *gin.Context) {
		dataURL, ok := session.PreviewDataURL()
		if !ok {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "preview unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data_url": dataURL})
	})
	v1.GET("/clipboard", func(c *gin.Context) {
		text, err := session.ResultText()
		if err != nil {
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, constants.MimeText, []byte(text))
	})
	v1.GET("/export", exportArtifact(session))

	return r
}

func uploadImage(session *pipeline.Session, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "multipart field 'file' is required", Message: err.Error()})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot open upload", Message: err.Error()})
			return
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				logger.Warn("upload file close error", "error", cerr)
			}
		}()
		data, err := io.ReadAll(f)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot read upload", Message: err.Error()})
			return
		}

		mime := fh.Header.Get("Content-Type")
		if mime == "" || mime == "application/octet-stream" {
			mime = sniffMime(data, fh.Filename)
		}

		snap, err := session.Upload(c.Request.Context(), asset.Uploaded{
			Bytes:    data,
			MimeType: mime,
			FileName: fh.Filename,
		})
		if err != nil {
			respondErrorWithSnapshot(c, err, snap)
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

func changeMode(session *pipeline.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req modeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request format", Message: err.Error()})
			return
		}
		mode, ok := constants.ParseMode(req.Mode)
		if !ok {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "mode must be 'text' or 'tabular'"})
			return
		}
		snap, err := session.SetMode(c.Request.Context(), mode)
		if err != nil {
			respondErrorWithSnapshot(c, err, snap)
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

func exportArtifact(session *pipeline.Session) gin.HandlerFunc {
	return func(c *gin.Context) {
		art, err := session.Export(c.Query("format"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+art.FileName+`"`)
		c.Data(http.StatusOK, art.MimeType, art.Bytes)
	}
}

// sniffMime falls back to content sniffing when the browser reported nothing
// useful. http.DetectContentType does not know HEIC, so the extension wins
// for .heic/.heif uploads.
func sniffMime(data []byte, name string) string {
	ext := constants.NormalizeExt(filepath.Ext(name))
	if constants.IsHEICExt(ext) {
		if ext == "heif" {
			return constants.MimeHEIF
		}
		return constants.MimeHEIC
	}
	return http.DetectContentType(data)
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
}

func respondErrorWithSnapshot(c *gin.Context, err error, snap pipeline.Snapshot) {
	c.JSON(statusFor(err), gin.H{"error": err.Error(), "snapshot": snap})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrUnsupportedFileType), errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrExtractionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// requestLogger tags each request with an id that downstream extractor calls
// pick up from the context.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		rid := uuid.New().String()
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), rid))
		c.Next()
		logger.Info("http.request",
			"req_id", rid,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}
