// Package api provides HTTP handlers for the REST API.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-fuego/fuego"

	"github.com/blockedby/interview-os/internal/interview"
	"github.com/blockedby/interview-os/internal/models"
	"github.com/blockedby/interview-os/internal/resume"
	"github.com/blockedby/interview-os/internal/settings"
)

// maxSettingsBody bounds the settings document.
const maxSettingsBody = 64 << 10

// ============================================================================
// Health
// ============================================================================

func (s *Server) healthCheck(c fuego.ContextNoBody) (HealthResponse, error) {
	return HealthResponse{
		Status:  "ok",
		Version: "dev",
		Online:  s.deps.Engine.Online(),
	}, nil
}

// ============================================================================
// Session Handlers
// ============================================================================

func (s *Server) getSession(c fuego.ContextNoBody) (models.Session, error) {
	return s.deps.Engine.Snapshot(), nil
}

func (s *Server) setActive(c fuego.ContextWithBody[SetActiveRequest]) (StatusResponse, error) {
	body, err := c.Body()
	if err != nil {
		return StatusResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}

	if err := s.deps.Engine.SetActive(c.Context(), body.CandidateID); err != nil {
		return StatusResponse{}, s.mapError(err)
	}
	return StatusResponse{Status: "updated"}, nil
}

func (s *Server) startNewInterview(c fuego.ContextNoBody) (StatusResponse, error) {
	if err := s.deps.Engine.StartNewInterview(c.Context()); err != nil {
		return StatusResponse{}, s.mapError(err)
	}
	return StatusResponse{Status: "ready"}, nil
}

// updateSettings reads the body itself: invalid settings fall back to the defaults
// instead of being rejected by struct validation.
func (s *Server) updateSettings(c fuego.ContextNoBody) (models.InterviewSettings, error) {
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxSettingsBody))
	if err != nil {
		return models.InterviewSettings{}, fuego.BadRequestError{Detail: err.Error()}
	}

	validated, err := s.deps.Engine.UpdateSettings(c.Context(), settings.Decode(data))
	if err != nil {
		return models.InterviewSettings{}, s.mapError(err)
	}
	return validated, nil
}

func (s *Server) completeOnboarding(c fuego.ContextNoBody) (StatusResponse, error) {
	if err := s.deps.Engine.CompleteOnboarding(c.Context()); err != nil {
		return StatusResponse{}, s.mapError(err)
	}
	return StatusResponse{Status: "completed"}, nil
}

// ============================================================================
// Candidates Handlers
// ============================================================================

func (s *Server) addCandidate(c fuego.ContextWithBody[models.CandidateProfile]) (CandidateResponse, error) {
	body, err := c.Body()
	if err != nil {
		return CandidateResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}

	added, err := s.deps.Engine.AddCandidate(c.Context(), body)
	if err != nil {
		return CandidateResponse{}, s.mapError(err)
	}

	c.SetStatus(http.StatusCreated)
	return s.candidateResponse(added), nil
}

func (s *Server) getCandidate(c fuego.ContextNoBody) (CandidateResponse, error) {
	found, err := s.deps.Engine.Candidate(c.PathParam("id"))
	if err != nil {
		return CandidateResponse{}, s.mapError(err)
	}
	return s.candidateResponse(found), nil
}

func (s *Server) deleteCandidate(c fuego.ContextNoBody) (StatusResponse, error) {
	if err := s.deps.Engine.DeleteCandidate(c.Context(), c.PathParam("id")); err != nil {
		return StatusResponse{}, s.mapError(err)
	}
	return StatusResponse{Status: "deleted"}, nil
}

func (s *Server) deleteAllCandidates(c fuego.ContextNoBody) (StatusResponse, error) {
	if err := s.deps.Engine.DeleteAll(c.Context()); err != nil {
		return StatusResponse{}, s.mapError(err)
	}
	return StatusResponse{Status: "deleted"}, nil
}

// ============================================================================
// Interview Handlers
// ============================================================================

func (s *Server) startInterview(c fuego.ContextNoBody) (CandidateResponse, error) {
	started, err := s.deps.Engine.StartInterview(c.Context(), c.PathParam("id"))
	if err != nil {
		return CandidateResponse{}, s.mapError(err)
	}
	return s.candidateResponse(started), nil
}

func (s *Server) submitAnswer(c fuego.ContextWithBody[SubmitAnswerRequest]) (CandidateResponse, error) {
	body, err := c.Body()
	if err != nil {
		return CandidateResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}

	next, err := s.deps.Engine.SubmitAnswer(c.Context(), c.PathParam("id"), body.QuestionID, body.Text)
	if err != nil {
		return CandidateResponse{}, s.mapError(err)
	}
	return s.candidateResponse(next), nil
}

func (s *Server) timeoutQuestion(c fuego.ContextWithBody[TimeoutRequest]) (CandidateResponse, error) {
	body, err := c.Body()
	if err != nil {
		return CandidateResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}

	next, err := s.deps.Engine.Timeout(c.Context(), c.PathParam("id"), body.QuestionID)
	if err != nil {
		return CandidateResponse{}, s.mapError(err)
	}
	return s.candidateResponse(next), nil
}

func (s *Server) resetInterview(c fuego.ContextNoBody) (CandidateResponse, error) {
	reset, err := s.deps.Engine.Reset(c.Context(), c.PathParam("id"))
	if err != nil {
		return CandidateResponse{}, s.mapError(err)
	}
	return s.candidateResponse(reset), nil
}

// ============================================================================
// Connectivity Handlers
// ============================================================================

func (s *Server) getConnectivity(c fuego.ContextNoBody) (ConnectivityResponse, error) {
	return ConnectivityResponse{Online: s.deps.Engine.Online()}, nil
}

func (s *Server) setConnectivity(c fuego.ContextWithBody[ConnectivityRequest]) (ConnectivityResponse, error) {
	body, err := c.Body()
	if err != nil {
		return ConnectivityResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}

	s.deps.Engine.SetOnline(*body.Online)
	return ConnectivityResponse{Online: s.deps.Engine.Online()}, nil
}

// ============================================================================
// Resume Handlers
// ============================================================================

func (s *Server) uploadResume(c fuego.ContextNoBody) (ResumeResponse, error) {
	if s.deps.Resume == nil {
		return ResumeResponse{}, fuego.HTTPError{
			Title:  "Not Implemented",
			Status: http.StatusNotImplemented,
			Detail: "resume extraction is not configured",
		}
	}

	r := c.Request()
	r.Body = http.MaxBytesReader(c.Response(), r.Body, resume.MaxSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		return ResumeResponse{}, fuego.BadRequestError{Detail: "multipart field \"file\" is required"}
	}
	defer file.Close()

	text, err := s.deps.Resume.Extract(header.Filename, file)
	if err != nil {
		return ResumeResponse{}, s.mapError(err)
	}

	// fields typed next to the upload win over what the resume says
	profile := models.CandidateProfile{
		Name:  strings.TrimSpace(r.FormValue("name")),
		Email: strings.TrimSpace(r.FormValue("email")),
		Phone: strings.TrimSpace(r.FormValue("phone")),
	}
	if s.deps.Profiles != nil {
		profile = profile.Merge(s.deps.Profiles.ExtractProfile(c.Context(), text))
	}
	if s.deps.Skills != nil {
		profile.RankedSkills = s.deps.Skills.RankSkills(c.Context(), text)
	}
	profile.ResumeText = text

	return ResumeResponse{Profile: profile}, nil
}

// ============================================================================
// Helpers
// ============================================================================

func (s *Server) candidateResponse(c models.Candidate) CandidateResponse {
	resp := CandidateResponse{Candidate: c}
	if remaining, ok := interview.Remaining(c, s.now()); ok {
		secs := remaining.Seconds()
		resp.RemainingSeconds = &secs
	}
	return resp
}

// mapError translates engine and collaborator errors into HTTP errors.
func (s *Server) mapError(err error) error {
	var extractErr *resume.ExtractError

	switch {
	case errors.Is(err, interview.ErrNotFound):
		return fuego.NotFoundError{Detail: err.Error()}

	case errors.Is(err, interview.ErrInvalidTransition), errors.Is(err, interview.ErrStale):
		return fuego.HTTPError{Title: "Conflict", Status: http.StatusConflict, Detail: err.Error()}

	case errors.Is(err, interview.ErrNoQuestionsConfigured),
		errors.Is(err, settings.ErrProfileIncomplete),
		errors.Is(err, settings.ErrResumeRequired),
		errors.Is(err, settings.ErrTopicsRequired):
		return fuego.BadRequestError{Detail: err.Error()}

	case errors.Is(err, interview.ErrNoQuestions):
		return fuego.HTTPError{Title: "Service Unavailable", Status: http.StatusServiceUnavailable, Detail: err.Error()}

	case errors.Is(err, resume.ErrUnsupportedFormat):
		return fuego.HTTPError{Title: "Unsupported Media Type", Status: http.StatusUnsupportedMediaType, Detail: err.Error()}

	case errors.As(err, &extractErr):
		return fuego.HTTPError{Title: "Unprocessable Entity", Status: http.StatusUnprocessableEntity, Detail: err.Error()}
	}

	s.log.Error().Err(err).Msg("request failed")
	return fuego.InternalServerError{Detail: fmt.Sprintf("internal error: %v", err)}
}
