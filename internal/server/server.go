// Package server exposes a trained model over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/happyhackingspace/openie"
	"github.com/happyhackingspace/openie/internal/features"
)

// ModelResponse describes the served model.
type ModelResponse struct {
	ID         string   `json:"id"`
	Kind       string   `json:"kind"`
	Labels     []string `json:"labels"`
	Features   int      `json:"features"`
	Parameters int      `json:"parameters"`
}

// TagRequest holds one sequence, either as feature tokens or as typed
// feature dicts per position.
type TagRequest struct {
	Tokens    [][]string       `json:"tokens"`
	Features  []map[string]any `json:"features"`
	Marginals bool             `json:"marginals"`
}

// TagResponse holds the decoded labels.
type TagResponse struct {
	Labels    []string    `json:"labels"`
	Marginals [][]float64 `json:"marginals,omitempty"`
}

// ExtractRequest holds text to extract tuples from. Tagged lines are
// word/POS/CHUNK sentences; Text and HTML are tagged heuristically.
type ExtractRequest struct {
	Tagged []string `json:"tagged"`
	Text   string   `json:"text"`
	HTML   string   `json:"html"`
}

// ExtractResponse holds the extracted tuples.
type ExtractResponse struct {
	Tuples []openie.Tuple `json:"tuples"`
}

// Server serves decoding requests. Decoding does not modify the model, so
// requests are handled concurrently.
type Server struct {
	model     *openie.Model
	extractor *openie.Extractor
}

// New creates a server for m.
func New(m *openie.Model, roles openie.LabelRoles) *Server {
	return &Server{model: m, extractor: openie.NewExtractor(m, roles)}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), logRequests)

	r.GET("/api/model", s.handleModel)
	r.POST("/api/tag", s.handleTag)
	r.POST("/api/extract", s.handleExtract)
	return r
}

// Serve handles requests on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Listening", "addr", ln.Addr().String(), "kind", s.model.Kind())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	slog.Debug("Request", "method", c.Request.Method, "path", c.Request.URL.Path,
		"status", c.Writer.Status(), "duration", time.Since(start))
}

func (s *Server) handleModel(c *gin.Context) {
	p := s.model.Params()
	c.JSON(http.StatusOK, ModelResponse{
		ID:         p.ID.String(),
		Kind:       s.model.Kind(),
		Labels:     s.model.Labels(),
		Features:   p.NumFeatures(),
		Parameters: p.NumParams(),
	})
}

func (s *Server) handleTag(c *gin.Context) {
	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tokens, values := req.Tokens, [][]float64(nil)
	switch {
	case len(req.Tokens) > 0 && len(req.Features) > 0:
		c.JSON(http.StatusBadRequest, gin.H{"error": "tokens and features are mutually exclusive"})
		return
	case len(req.Features) > 0:
		tokens = make([][]string, len(req.Features))
		values = make([][]float64, len(req.Features))
		for t, f := range req.Features {
			tokens[t], values[t] = features.FromDict(f)
		}
	}

	resp := TagResponse{Labels: s.model.TagValues(tokens, values)}
	if req.Marginals {
		resp.Marginals = s.model.Marginals(tokens, values)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleExtract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp := ExtractResponse{Tuples: []openie.Tuple{}}
	for _, line := range req.Tagged {
		if strings.TrimSpace(line) == "" {
			continue
		}
		tuples, err := s.extractor.ExtractLine(line)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		resp.Tuples = append(resp.Tuples, tuples...)
	}
	if req.Text != "" {
		resp.Tuples = append(resp.Tuples, s.extractor.ExtractText(req.Text)...)
	}
	if req.HTML != "" {
		tuples, err := s.extractor.ExtractHTML(strings.NewReader(req.HTML))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		resp.Tuples = append(resp.Tuples, tuples...)
	}
	c.JSON(http.StatusOK, resp)
}
