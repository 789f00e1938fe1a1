package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/physio-triage-server/internal/domain"
)

// BatchRequest is the body of POST /api/v1/analyze/batch.
type BatchRequest struct {
	Screenings []json.RawMessage `json:"screenings"`
}

// BatchResponse holds batch results in request order.
type BatchResponse struct {
	Count   int                       `json:"count"`
	Results []domain.ClinicalAnalysis `json:"results"`
}

// ScreeningResponse is returned after a screening is stored or locked.
type ScreeningResponse struct {
	Success   bool              `json:"success"`
	Screening *domain.Screening `json:"screening,omitempty"`
}

// HistoryResponse lists recorded analyses of a patient.
type HistoryResponse struct {
	PatientID string                   `json:"patient_id"`
	Count     int                      `json:"count"`
	Records   []*domain.AnalysisRecord `json:"records"`
}

func (s *Server) handleListModalities(c *gin.Context) {
	catalogue := domain.ModalityCatalogue()
	c.JSON(http.StatusOK, gin.H{
		"count":      len(catalogue),
		"modalities": catalogue,
	})
}

// readScreening decodes the request body as JSON, or YAML when the content type says so.
func (s *Server) readScreening(c *gin.Context) (domain.ScreeningInput, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return domain.ScreeningInput{}, err
	}
	if isYAML(c.ContentType()) {
		return s.parser.ParseYAML(body)
	}
	return s.parser.ParseJSON(body)
}

func isYAML(contentType string) bool {
	return strings.Contains(contentType, "yaml")
}

func (s *Server) handleAnalyze(c *gin.Context) {
	input, err := s.readScreening(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	analysis, err := s.analysis.Analyze(c.Request.Context(), input)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleAnalyzeBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "request body must be an object with a screenings array")
		return
	}
	if len(req.Screenings) > s.analysis.MaxBatchSize() {
		s.respondError(c, fmt.Errorf("%w: %d screenings, maximum is %d",
			domain.ErrBatchTooLarge, len(req.Screenings), s.analysis.MaxBatchSize()))
		return
	}

	inputs := make([]domain.ScreeningInput, len(req.Screenings))
	for i, raw := range req.Screenings {
		input, err := s.parser.ParseJSON(raw)
		if err != nil {
			s.respondError(c, fmt.Errorf("screening %d: %w", i, err))
			return
		}
		inputs[i] = input
	}

	results, err := s.analysis.AnalyzeBatch(c.Request.Context(), inputs)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, BatchResponse{Count: len(results), Results: results})
}

func (s *Server) handleSubmitScreening(c *gin.Context) {
	input, err := s.readScreening(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	screening, err := s.analysis.SubmitScreening(c.Request.Context(), c.Param("patientId"), input)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ScreeningResponse{Success: true, Screening: screening})
}

func (s *Server) handleLockScreening(c *gin.Context) {
	if err := s.analysis.LockScreening(c.Request.Context(), c.Param("patientId")); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ScreeningResponse{Success: true})
}

func (s *Server) handleAnalyzePatient(c *gin.Context) {
	response, err := s.analysis.AnalyzePatient(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleLatestAnalysis(c *gin.Context) {
	record, err := s.analysis.LatestAnalysis(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) handleAnalysisHistory(c *gin.Context) {
	limit, ok := s.queryInt(c, "limit", 0)
	if !ok {
		return
	}

	patientID := c.Param("patientId")
	records, err := s.analysis.AnalysisHistory(c.Request.Context(), patientID, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{PatientID: patientID, Count: len(records), Records: records})
}

// queryInt reads a non-negative integer query parameter. It writes a 400 and returns false when
// the value is malformed.
func (s *Server) queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		s.badRequest(c, fmt.Sprintf("%s must be a non-negative integer", name))
		return 0, false
	}
	return n, true
}
