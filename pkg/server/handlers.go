package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/duynguyendang/relpat/pkg/analysis"
	"github.com/duynguyendang/relpat/pkg/common/errors"
)

// handleDatasets returns a list of available datasets.
func (s *Server) handleDatasets(c *gin.Context) {
	datasets, err := s.analysis.ListDatasets()
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, datasets)
}

// handlePatterns classifies the relations of a dataset by logical pattern.
func (s *Server) handlePatterns(c *gin.Context) {
	opts, err := classifyOptions(c)
	if err != nil {
		handleError(c, err)
		return
	}
	table, err := s.analysis.ClassifyRelations(c.Request.Context(), c.Param("id"), opts)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

func (s *Server) handleCardinality(c *gin.Context) {
	labels, err := boolQuery(c, "labels", true)
	if err != nil {
		handleError(c, err)
		return
	}
	rows, err := s.analysis.CardinalityTypes(c.Request.Context(), c.Param("id"), parts(c), labels)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (s *Server) handleFunctionality(c *gin.Context) {
	labels, err := boolQuery(c, "labels", true)
	if err != nil {
		handleError(c, err)
		return
	}
	rows, err := s.analysis.Functionality(c.Request.Context(), c.Param("id"), parts(c), labels)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

func (s *Server) handleRelationCounts(c *gin.Context) {
	rows, parts, err := s.analysis.RelationCounts(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"parts": parts, "rows": rows})
}

func (s *Server) handleEntityCounts(c *gin.Context) {
	rows, parts, err := s.analysis.EntityCounts(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"parts": parts, "rows": rows})
}

func (s *Server) handleCoOccurrence(c *gin.Context) {
	rows, relations, err := s.analysis.CoOccurrence(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"relations": relations, "rows": rows})
}

// classifyOptions reads min_support, min_confidence, drop_confidence, parts,
// force and labels, starting from the library defaults.
func classifyOptions(c *gin.Context) (analysis.ClassifyOptions, error) {
	opts := analysis.DefaultClassifyOptions()
	if v := c.Query("min_support"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, errors.Invalidf("min_support: %v", err)
		}
		opts.MinSupport = n
	}
	if v := c.Query("min_confidence"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, errors.Invalidf("min_confidence: %v", err)
		}
		opts.MinConfidence = f
	}
	for _, flag := range []struct {
		key string
		dst *bool
	}{
		{"drop_confidence", &opts.DropConfidence},
		{"force", &opts.Force},
		{"labels", &opts.AddLabels},
	} {
		b, err := boolQuery(c, flag.key, *flag.dst)
		if err != nil {
			return opts, err
		}
		*flag.dst = b
	}
	opts.Parts = parts(c)
	return opts, nil
}

// parts splits the comma-separated parts query parameter.
func parts(c *gin.Context) []string {
	var out []string
	for _, p := range strings.Split(c.Query("parts"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// boolQuery parses an optional boolean query parameter; absent or empty yields def.
func boolQuery(c *gin.Context, key string, def bool) (bool, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, errors.Invalidf("%s: %v", key, err)
	}
	return b, nil
}

func handleError(c *gin.Context, err error) {
	appErr := errors.MapError(err)
	body := gin.H{"error": appErr.Message}
	if appErr.Err != nil {
		body["detail"] = appErr.Err.Error()
	}
	c.JSON(appErr.Code, body)
}
