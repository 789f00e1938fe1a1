package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/physio-triage-server/internal/feedback"
)

const defaultFeedbackPageSize = 50

func (s *Server) handleSubmitFeedback(c *gin.Context) {
	var entry feedback.GatingFeedback
	if err := c.ShouldBindJSON(&entry); err != nil {
		s.badRequest(c, "invalid feedback body")
		return
	}

	if err := s.feedback.Save(c.Request.Context(), &entry); err != nil {
		s.respondError(c, err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id":         entry.PatientID,
		"modality":           entry.Modality,
		"suggested_decision": entry.SuggestedDecision,
		"clinician_decision": entry.ClinicianDecision,
		"clinician_agreed":   entry.ClinicianAgreed,
	}).Info("Gating feedback recorded")

	c.JSON(http.StatusCreated, entry)
}

func (s *Server) handleListFeedback(c *gin.Context) {
	limit, ok := s.queryInt(c, "limit", defaultFeedbackPageSize)
	if !ok {
		return
	}
	offset, ok := s.queryInt(c, "offset", 0)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	entries, err := s.feedback.List(ctx, limit, offset)
	if err != nil {
		s.respondError(c, err)
		return
	}
	total, err := s.feedback.Count(ctx)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":    total,
		"limit":    limit,
		"offset":   offset,
		"feedback": entries,
	})
}

func (s *Server) handlePatientFeedback(c *gin.Context) {
	patientID := c.Param("patientId")
	entries, err := s.feedback.ListByPatient(c.Request.Context(), patientID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"patient_id": patientID,
		"count":      len(entries),
		"feedback":   entries,
	})
}

func (s *Server) handleFeedbackSummary(c *gin.Context) {
	summary, err := s.feedback.Summary(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"modalities": summary})
}

func (s *Server) handleExportFeedback(c *gin.Context) {
	filename := fmt.Sprintf("gating_feedback_%s.json", time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/json")
	c.Status(http.StatusOK)

	if err := s.feedback.ExportJSON(c.Request.Context(), c.Writer); err != nil {
		// Headers are already sent; the truncated body is all the client gets.
		s.logger.WithError(err).Error("Feedback export failed")
	}
}

func (s *Server) handleDeleteFeedback(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		s.badRequest(c, "feedback id must be a positive integer")
		return
	}

	if err := s.feedback.Delete(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
