// Package api exposes the protection pipeline over HTTP. A single
// multipart endpoint accepts a PDF and streams back the protected
// bytes; the per-run token travels in a response header.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"pdfarmor/observability"
	"pdfarmor/protect"
	"pdfarmor/reader"
)

const (
	defaultAddr      = ":8080"
	defaultMaxUpload = 32 << 20
)

// Config holds server settings, loaded from the environment.
type Config struct {
	Addr      string
	MaxUpload int64
}

// LoadConfig reads configuration from the environment, honoring a
// .env file when present. PDFARMOR_ADDR sets the listen address and
// PDFARMOR_MAX_UPLOAD the upload cap in bytes.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{Addr: defaultAddr, MaxUpload: defaultMaxUpload}
	if v := os.Getenv("PDFARMOR_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("PDFARMOR_MAX_UPLOAD"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid PDFARMOR_MAX_UPLOAD %q", v)
		}
		cfg.MaxUpload = n
	}
	return cfg, nil
}

// Server wires the protector behind a gin engine.
type Server struct {
	cfg       Config
	log       observability.Logger
	protector *protect.Protector
	engine    *gin.Engine
}

// NewServer builds a Server around protector. A nil logger falls back
// to the no-op logger.
func NewServer(cfg Config, protector *protect.Protector, log observability.Logger) *Server {
	if log == nil {
		log = observability.NopLogger{}
	}
	s := &Server{cfg: cfg, log: log, protector: protector}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", s.handleHealth)
	r.POST("/api/protect", s.handleProtect)
	s.engine = r
	return s
}

// Handler exposes the underlying HTTP handler for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run blocks serving HTTP on the configured address.
func (s *Server) Run() error {
	s.log.Info("server listening", observability.String("addr", s.cfg.Addr))
	return s.engine.Run(s.cfg.Addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleProtect(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUpload)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		// parsing the multipart form reads the body, so the size cap
		// can trip here before the part is ever opened
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds size limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file uploaded"})
		return
	}
	defer file.Close()

	input, err := io.ReadAll(file)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds size limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}

	res, err := s.protector.Protect(c.Request.Context(), input, nil)
	if err != nil {
		var malformed *reader.MalformedDocumentError
		if errors.As(err, &malformed) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		s.log.Error("protection failed",
			observability.String("file", header.Filename),
			observability.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "protection failed"})
		return
	}

	c.Header("X-Protection-Token", res.Stats.Token)
	c.Header("X-Page-Count", strconv.Itoa(res.Stats.PageCount))
	c.Header("X-Size-Increase-Percent", strconv.FormatFloat(res.Stats.IncreasePercent, 'f', 1, 64))
	c.Header("Content-Disposition", `attachment; filename="protected.pdf"`)
	c.Data(http.StatusOK, "application/pdf", res.Output)
}
