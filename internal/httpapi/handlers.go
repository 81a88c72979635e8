package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/dedup"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/globaltime"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
	payloadschema "github.com/Hardcoreprawn/tech-content-curator-sub000/internal/schema"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/similarity"
)

const healthPingTimeout = 2 * time.Second

type scoreRequest struct {
	Profile string                      `json:"profile"`
	Left    payloadschema.RecordPayload `json:"left"`
	Right   payloadschema.RecordPayload `json:"right"`
}

type checkRequest struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
}

type postCheckRequest struct {
	Articles []dedup.Article `json:"articles"`
}

func (s *Server) handleHealth(c echo.Context) error {
	data := map[string]any{
		"service":  "curator-dedup",
		"time":     globaltime.UTC(),
		"database": "unconfigured",
	}
	if s.deps.Learner != nil {
		data["patterns"] = s.deps.Learner.Stats().LoadState
	}
	if s.deps.Database != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
		defer cancel()
		if err := s.deps.Database.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("database ping failed")
			data["database"] = "unreachable"
			return c.JSON(http.StatusServiceUnavailable, jsendResponse{Status: "fail", Data: data})
		}
		data["database"] = "ok"
	}
	return success(c, data)
}

func (s *Server) handleProfiles(c echo.Context) error {
	return success(c, map[string]any{
		"items": s.deps.Profiles,
		"names": s.deps.Profiles.Names(),
	})
}

func (s *Server) handleScore(c echo.Context) error {
	var req scoreRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be a JSON object"})
	}

	profile := strings.TrimSpace(req.Profile)
	if profile == "" {
		profile = similarity.ProfilePreGeneration
	}
	weights, err := s.deps.Profiles.Get(profile)
	if err != nil {
		return failValidation(c, map[string]string{"profile": "must be one of " + strings.Join(s.deps.Profiles.Names(), ", ")})
	}

	left, err := req.Left.Record(0)
	if err != nil {
		return failValidation(c, map[string]string{"left": err.Error()})
	}
	right, err := req.Right.Record(1)
	if err != nil {
		return failValidation(c, map[string]string{"right": err.Error()})
	}

	result := similarity.NewScorer(weights).Score(left, right)
	return success(c, result)
}

func (s *Server) handleCheck(c echo.Context) error {
	var req checkRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be a JSON object"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return failValidation(c, map[string]string{"title": "is required"})
	}

	result := s.deps.Pipeline.Check(record.TextRecord{
		Title:   strings.TrimSpace(req.Title),
		Summary: strings.TrimSpace(req.Summary),
		Tags:    req.Tags,
	})
	return success(c, result)
}

func (s *Server) handleDedupe(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return failValidation(c, map[string]string{"body": "could not be read"})
	}

	records, err := dedup.DecodeBatch(raw, s.logger)
	if err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	result, err := s.deps.Pipeline.PreGeneration(c.Request().Context(), records)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fail(c, http.StatusServiceUnavailable, "Request cancelled", nil)
		}
		s.logger.Error().Err(err).Msg("pre-generation dedup failed")
		return internalError(c, "Failed to deduplicate batch")
	}
	return success(c, result)
}

func (s *Server) handlePostCheck(c echo.Context) error {
	var req postCheckRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be a JSON object"})
	}
	if len(req.Articles) == 0 {
		return failValidation(c, map[string]string{"articles": "must not be empty"})
	}

	result, err := s.deps.Pipeline.PostGeneration(c.Request().Context(), dedup.Documents(req.Articles))
	if err != nil {
		s.logger.Error().Err(err).Msg("post-generation dedup failed")
		return internalError(c, "Failed to review articles")
	}
	return success(c, result)
}

func (s *Server) handlePatterns(c echo.Context) error {
	if s.deps.Learner == nil {
		return failNotFound(c, "Pattern learning is disabled")
	}
	return success(c, map[string]any{
		"items": s.deps.Learner.Patterns(),
		"stats": s.deps.Learner.Stats(),
	})
}

func (s *Server) handleMetrics(c echo.Context) error {
	if s.deps.Feedback == nil {
		return failNotFound(c, "Feedback recording is disabled")
	}
	return success(c, map[string]any{
		"quality":     s.deps.Feedback.GetQualityMetrics(),
		"suggestions": s.deps.Feedback.SuggestImprovements(),
	})
}
