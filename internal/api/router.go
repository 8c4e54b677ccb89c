// Package api exposes photo validation over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the handler into a gin engine with request logging,
// panic recovery and permissive CORS.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(cors())

	r.GET("/healthz", h.Healthz)
	r.POST("/validate-photo", h.ValidatePhoto)
	r.POST("/upload-url", h.UploadURL)

	return r
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
