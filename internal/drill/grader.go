package drill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/ashureev/dsa-drill/internal/llm"
)

const (
	// MinScore and MaxScore bound the grading protocol.
	MinScore = 0
	MaxScore = 100

	feedbackToken = "FEEDBACK:"
)

var (
	// ErrGrading is returned when the provider could not grade a submission.
	ErrGrading = errors.New("grading failed")
	// ErrScoreMissing marks a reply without a parsable SCORE line. It is
	// never returned by Grade; the score falls back to zero.
	ErrScoreMissing = errors.New("reply has no SCORE line")

	scorePattern = regexp.MustCompile(`SCORE:\s*(\d+)`)
)

// GradeResult is the outcome of grading one submission.
type GradeResult struct {
	Score    int
	Feedback string
	// Parsed is false when the reply had no SCORE line and Score is the
	// zero fallback.
	Parsed bool
	// Clamped is true when the parsed score was outside [MinScore, MaxScore].
	Clamped bool
}

// ParseGrade extracts the score and feedback from a grading reply.
func ParseGrade(reply string) GradeResult {
	feedback := scorePattern.ReplaceAllString(reply, "")
	feedback = strings.TrimSpace(strings.ReplaceAll(feedback, feedbackToken, ""))

	match := scorePattern.FindStringSubmatch(reply)
	if match == nil {
		return fallbackGrade(feedback)
	}
	score, err := strconv.Atoi(match[1])
	if err != nil {
		return fallbackGrade(feedback)
	}

	result := GradeResult{Score: score, Feedback: feedback, Parsed: true}
	if score > MaxScore {
		result.Score = MaxScore
		result.Clamped = true
	}
	return result
}

// fallbackGrade is used when the reply does not follow the score protocol.
func fallbackGrade(feedback string) GradeResult {
	return GradeResult{Score: MinScore, Feedback: feedback, Parsed: false}
}

// Grader scores submissions against a stored mission.
type Grader struct {
	provider llm.Provider
	logger   *slog.Logger
}

// NewGrader creates a Grader backed by provider.
func NewGrader(provider llm.Provider, logger *slog.Logger) *Grader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Grader{provider: provider, logger: logger}
}

// Grade sends the mission and submission to the provider and parses the reply.
func (g *Grader) Grade(ctx context.Context, mission, submission string) (GradeResult, error) {
	reply, err := g.provider.Generate(ctx, graderPersona, gradingPrompt(mission, submission))
	if err != nil {
		return GradeResult{}, fmt.Errorf("%w: %w", ErrGrading, err)
	}
	if strings.TrimSpace(reply) == "" {
		return GradeResult{}, fmt.Errorf("%w: empty reply", ErrGrading)
	}

	result := ParseGrade(reply)
	if !result.Parsed {
		g.logger.Warn("Grading reply fell back to zero score", "error", ErrScoreMissing, "reply_length", len(reply))
	}
	if result.Clamped {
		g.logger.Warn("Grading score clamped", "clamped_to", result.Score)
	}
	return result, nil
}
