// internal/api/handlers.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	commonerrors "admission-engine/internal/common/errors"
	"admission-engine/internal/common/validation"
	"admission-engine/internal/engine/scoring"
	"admission-engine/internal/models"
	"admission-engine/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (s *Server) submitApplication(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": commonerrors.ErrCodeValidationFailed, "message": "unreadable body"})
		return
	}
	if err := validation.ValidateSubmission(raw); err != nil {
		s.validationFailure(c, err)
		return
	}

	var req struct {
		ApplicantID string `json:"applicantId"`
		PostingID   string `json:"postingId"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": commonerrors.ErrCodeValidationFailed, "message": "malformed JSON"})
		return
	}

	app, err := s.gate.Submit(c.Request.Context(), req.ApplicantID, req.PostingID)
	if err != nil {
		s.engineFailure(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (s *Server) decideApplication(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": commonerrors.ErrCodeValidationFailed, "message": "unreadable body"})
		return
	}
	if err := validation.ValidateDecision(raw); err != nil {
		s.validationFailure(c, err)
		return
	}

	var req struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": commonerrors.ErrCodeValidationFailed, "message": "malformed JSON"})
		return
	}

	reviewerID := c.GetHeader("X-Reviewer-Id")
	app, err := s.arbiter.Transition(c.Request.Context(), c.Param("id"), models.ApplicationState(req.State), reviewerID)
	if err != nil {
		s.engineFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (s *Server) listApplications(c *gin.Context) {
	applicantID := c.Query("applicantId")
	if applicantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": commonerrors.ErrCodeValidationFailed, "message": "applicantId query parameter is required"})
		return
	}

	apps, err := s.stores.Applications.ListByApplicant(c.Request.Context(), applicantID)
	if err != nil {
		s.engineFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

func (s *Server) createPosting(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": commonerrors.ErrCodeValidationFailed, "message": "unreadable body"})
		return
	}
	if err := validation.ValidatePosting(raw); err != nil {
		s.validationFailure(c, err)
		return
	}

	var posting models.Posting
	if err := json.Unmarshal(raw, &posting); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": commonerrors.ErrCodeValidationFailed, "message": "malformed JSON"})
		return
	}

	posting.ID = uuid.New().String()
	posting.CreatedAt = time.Now().UTC()
	posting.ApplyDefaults()

	if err := s.stores.Postings.Create(c.Request.Context(), &posting); err != nil {
		s.engineFailure(c, err)
		return
	}

	// Fanout runs detached: the posting is created whether or not every
	// candidate could be notified.
	go func(p models.Posting) {
		ctx, cancel := context.WithTimeout(context.Background(), fanoutTimeout)
		defer cancel()
		if _, err := s.fanout.OnNewPosting(ctx, &p); err != nil {
			s.logger.Error("fanout failed", map[string]interface{}{
				"error":     err,
				"postingId": p.ID,
			})
		}
	}(posting)

	c.JSON(http.StatusCreated, posting)
}

func (s *Server) listPostings(c *gin.Context) {
	postings, err := s.stores.Postings.ListOpen(c.Request.Context())
	if err != nil {
		s.engineFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"postings": postings})
}

func (s *Server) getPosting(c *gin.Context) {
	posting, err := s.stores.Postings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": commonerrors.ErrCodePostingNotFound, "message": "Posting not found"})
			return
		}
		s.engineFailure(c, err)
		return
	}

	notified, err := s.stores.Notifications.CountForPosting(c.Request.Context(), posting.ID)
	if err != nil {
		s.engineFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"posting": posting, "notifiedCandidates": notified})
}

// previewMatch scores one candidate against one posting without side effects.
func (s *Server) previewMatch(c *gin.Context) {
	candidateID := c.Query("candidateId")
	postingID := c.Query("postingId")
	if candidateID == "" || postingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": commonerrors.ErrCodeValidationFailed, "message": "candidateId and postingId query parameters are required"})
		return
	}

	candidate, err := s.stores.Profiles.Get(c.Request.Context(), candidateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "CANDIDATE_NOT_FOUND", "message": "Candidate not found"})
			return
		}
		s.engineFailure(c, err)
		return
	}

	posting, err := s.stores.Postings.Get(c.Request.Context(), postingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": commonerrors.ErrCodePostingNotFound, "message": "Posting not found"})
			return
		}
		s.engineFailure(c, err)
		return
	}

	c.JSON(http.StatusOK, scoring.Score(candidate, posting))
}

func (s *Server) validationFailure(c *gin.Context, err error) {
	var ve *validation.Error
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    commonerrors.ErrCodeValidationFailed,
			"message": "Payload validation failed",
			"fields":  ve.Fields,
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"code": commonerrors.ErrCodeValidationFailed, "message": err.Error()})
}

func (s *Server) engineFailure(c *gin.Context, err error) {
	status := commonerrors.HTTPStatus(err)
	if status >= 500 {
		s.logger.Error("request failed", map[string]interface{}{
			"error": err,
			"path":  c.FullPath(),
		})
	}
	c.JSON(status, commonerrors.Body(err))
}
