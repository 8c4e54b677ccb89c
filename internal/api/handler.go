package api

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ironsheep/photo-verify/internal/storage"
	"github.com/ironsheep/photo-verify/internal/verify"
)

// ImageField is the multipart field carrying the photo.
const ImageField = "image"

// DefaultMaxUploadBytes bounds request bodies when no limit is configured.
const DefaultMaxUploadBytes = 20 << 20

// Handler serves the photo validation and upload URL endpoints.
type Handler struct {
	validator      *verify.Validator
	rules          verify.Rules
	signer         storage.Signer
	maxUploadBytes int64
}

// NewHandler creates a handler. signer may be nil, in which case upload URL
// requests are answered with 503.
func NewHandler(v *verify.Validator, rules verify.Rules, signer storage.Signer, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{
		validator:      v,
		rules:          rules,
		signer:         signer,
		maxUploadBytes: maxUploadBytes,
	}
}

type validateResponse struct {
	Success bool `json:"success"`
	*verify.Report
}

type uploadURLRequest struct {
	ContentType string `json:"contentType" binding:"omitempty,startswith=image/"`
}

// Healthz answers liveness probes.
// GET /healthz
func (h *Handler) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// ValidatePhoto validates the uploaded photo and returns the report.
// POST /validate-photo
func (h *Handler) ValidatePhoto(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fh, err := c.FormFile(ImageField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large", "limit": tooLarge.Limit})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required", "details": err.Error()})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read upload", "details": err.Error()})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read upload", "details": err.Error()})
		return
	}
	log.Printf("api: validating %s (%d bytes)", fh.Filename, len(data))

	report, err := h.validator.Validate(c.Request.Context(), data, h.rules)
	if err != nil {
		if errors.Is(err, verify.ErrNoImage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required", "details": err.Error()})
			return
		}
		log.Printf("api: validation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, validateResponse{Success: true, Report: report})
}

// UploadURL issues a signed URL for uploading an original photo.
// POST /upload-url
func (h *Handler) UploadURL(c *gin.Context) {
	if h.signer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "upload URLs are not configured"})
		return
	}

	var req uploadURLRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
			return
		}
	}

	ticket, err := h.signer.SignUpload(c.Request.Context(), req.ContentType)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedContentType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported content type", "details": err.Error()})
			return
		}
		log.Printf("api: sign upload failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue upload URL", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ticket)
}
