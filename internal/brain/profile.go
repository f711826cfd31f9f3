package brain

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/blockedby/interview-os/internal/llm"
	"github.com/blockedby/interview-os/internal/models"
)

// ProfileExtractor pulls candidate details out of resume text.
type ProfileExtractor struct {
	*Gateway
}

// NewProfileExtractor creates a profile extractor backed by g.
func NewProfileExtractor(g *Gateway) *ProfileExtractor {
	return &ProfileExtractor{Gateway: g}
}

type profileResponse struct {
	Name              string           `json:"name"`
	Email             string           `json:"email"`
	Phone             string           `json:"phone"`
	Skills            []string         `json:"skills"`
	YearsOfExperience *float64         `json:"yearsOfExperience"`
	KeyProjects       []models.Project `json:"keyProjects"`
	Technologies      []string         `json:"technologies"`
}

// ExtractProfile returns whatever fields the service could extract. It never fails: an empty
// profile is returned when the service is unavailable or the reply is unusable.
func (p *ProfileExtractor) ExtractProfile(ctx context.Context, resumeText string) models.CandidateProfile {
	if strings.TrimSpace(resumeText) == "" || !p.online() {
		return models.CandidateProfile{}
	}

	user := p.prompts.profile.Build(map[string]string{"RESUME": resumeText})

	var resp profileResponse
	err := p.complete(ctx, p.prompts.profile.System, user, nil, func(raw string) error {
		var out profileResponse
		if err := llm.Decode(raw, &out); err != nil {
			return err
		}
		resp = out
		return nil
	})
	if err != nil {
		p.log.Warn().Err(err).Msg("profile extraction failed")
		return models.CandidateProfile{}
	}

	var projects []models.Project
	for _, pr := range resp.KeyProjects {
		if strings.TrimSpace(pr.Title) != "" {
			projects = append(projects, pr)
		}
	}
	years := resp.YearsOfExperience
	if years != nil && *years < 0 {
		years = nil
	}

	return models.CandidateProfile{
		Name:              strings.TrimSpace(resp.Name),
		Email:             strings.TrimSpace(resp.Email),
		Phone:             strings.TrimSpace(resp.Phone),
		Skills:            cleanList(resp.Skills),
		YearsOfExperience: years,
		KeyProjects:       projects,
		Technologies:      cleanList(resp.Technologies),
	}
}

// SkillRanker ranks the skills found in a resume.
type SkillRanker struct {
	*Gateway
}

// NewSkillRanker creates a skill ranker backed by g.
func NewSkillRanker(g *Gateway) *SkillRanker {
	return &SkillRanker{Gateway: g}
}

type rankedSkillResponse struct {
	Name       string   `json:"name"`
	Confidence *float64 `json:"confidence"`
	Level      string   `json:"level"`
}

// RankSkills returns skills ordered by confidence. Items without a name, confidence or known
// level are dropped. An empty list is returned on any failure.
func (r *SkillRanker) RankSkills(ctx context.Context, resumeText string) []models.RankedSkill {
	if strings.TrimSpace(resumeText) == "" || !r.online() {
		return nil
	}

	user := r.prompts.skills.Build(map[string]string{"RESUME": resumeText})

	var skills []models.RankedSkill
	err := r.complete(ctx, r.prompts.skills.System, user, nil, func(raw string) error {
		var resp struct {
			Skills []rankedSkillResponse `json:"skills"`
		}
		if err := llm.Decode(raw, &resp); err != nil {
			return err
		}
		skills = normalizeRanked(resp.Skills)
		if len(resp.Skills) > 0 && len(skills) == 0 {
			return fmt.Errorf("%w: no valid ranked skills", llm.ErrMalformedResponse)
		}
		return nil
	})
	if err != nil {
		r.log.Warn().Err(err).Msg("skill ranking failed")
		return nil
	}
	return skills
}

func normalizeRanked(items []rankedSkillResponse) []models.RankedSkill {
	var out []models.RankedSkill
	seen := make(map[string]bool)
	for _, it := range items {
		name := strings.TrimSpace(it.Name)
		key := strings.ToLower(name)
		if name == "" || it.Confidence == nil || seen[key] {
			continue
		}
		level := models.SkillLevel(it.Level)
		switch level {
		case models.SkillPrimary, models.SkillSecondary, models.SkillBasic:
		default:
			continue
		}
		seen[key] = true
		out = append(out, models.RankedSkill{
			Name:       name,
			Confidence: min(max(*it.Confidence, 0), 100),
			Level:      level,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out
}

func cleanList(items []string) []string {
	var out []string
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}
