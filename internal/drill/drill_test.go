package drill

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ashureev/dsa-drill/internal/domain"
	"github.com/ashureev/dsa-drill/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProvider struct {
	reply  string
	err    error
	system string
	prompt string
	calls  int
}

func (p *recordingProvider) Generate(_ context.Context, system, prompt string) (string, error) {
	p.calls++
	p.system = system
	p.prompt = prompt
	return p.reply, p.err
}

func TestParseGradeHappyPath(t *testing.T) {
	got := ParseGrade("SCORE: 85\nFEEDBACK: Good job, O(n) achieved.")
	assert.Equal(t, GradeResult{Score: 85, Feedback: "Good job, O(n) achieved.", Parsed: true}, got)
}

func TestParseGradeToleratesLayout(t *testing.T) {
	got := ParseGrade("Verdict below.\n\nSCORE:40\n\nFEEDBACK:\nCorrect but O(n^2).\n")
	assert.Equal(t, 40, got.Score)
	assert.True(t, got.Parsed)
	assert.Equal(t, "Verdict below.\n\n\n\n\nCorrect but O(n^2).", got.Feedback)
}

func TestParseGradeFallback(t *testing.T) {
	reply := "  I could not evaluate this answer.  "
	got := ParseGrade(reply)
	assert.Equal(t, 0, got.Score)
	assert.False(t, got.Parsed)
	assert.Equal(t, strings.TrimSpace(reply), got.Feedback)
}

func TestParseGradeClampsOutOfRange(t *testing.T) {
	got := ParseGrade("SCORE: 150\nFEEDBACK: wow")
	assert.Equal(t, MaxScore, got.Score)
	assert.True(t, got.Clamped)
	assert.Equal(t, "wow", got.Feedback)

	got = ParseGrade("SCORE: 99999999999999999999999\nFEEDBACK: huge")
	assert.Equal(t, 0, got.Score)
	assert.False(t, got.Parsed)
}

func TestParseGradeNegativeIsNotAScore(t *testing.T) {
	got := ParseGrade("SCORE: -20\nFEEDBACK: bad")
	assert.Equal(t, 0, got.Score)
	assert.False(t, got.Parsed)
}

func TestGraderSendsMissionAndSubmissionVerbatim(t *testing.T) {
	p := &recordingProvider{reply: "SCORE: 70\nFEEDBACK: Fine."}
	g := NewGrader(p, nil)

	mission := "**Two Sum**\n\n**Statement**: find indices"
	submission := "use a hash map: O(n)\n```go\nfunc twoSum() {}\n```"
	got, err := g.Grade(context.Background(), mission, submission)
	require.NoError(t, err)

	assert.Equal(t, 70, got.Score)
	assert.Equal(t, "Fine.", got.Feedback)
	assert.Equal(t, graderPersona, p.system)
	assert.Contains(t, p.prompt, "PROBLEM: "+mission+"\n")
	assert.Contains(t, p.prompt, "CANDIDATE SOLUTION: "+submission+"\n")
	assert.Contains(t, p.system, "SCORE:")
	assert.Contains(t, p.system, "FEEDBACK:")
}

func TestGraderProviderFailure(t *testing.T) {
	g := NewGrader(&recordingProvider{err: llm.ErrProvider}, nil)
	_, err := g.Grade(context.Background(), "m", "s")
	require.ErrorIs(t, err, ErrGrading)
	require.ErrorIs(t, err, llm.ErrProvider)

	g = NewGrader(&recordingProvider{reply: " \n"}, nil)
	_, err = g.Grade(context.Background(), "m", "s")
	require.ErrorIs(t, err, ErrGrading)
}

func TestGeneratorTrimsAndNamesTopic(t *testing.T) {
	p := &recordingProvider{reply: "\n  **Longest Substring**\nExample: abcabcbb -> 3  \n"}
	g := NewGenerator(p, nil)

	got, err := g.Generate(context.Background(), domain.TopicSlidingWindow)
	require.NoError(t, err)
	assert.Equal(t, "**Longest Substring**\nExample: abcabcbb -> 3", got)
	assert.Equal(t, problemSetterPersona, p.system)
	assert.Contains(t, p.prompt, "Sliding Window")
	assert.Contains(t, p.prompt, "No solution")
}

func TestGeneratorFailures(t *testing.T) {
	cases := map[string]*recordingProvider{
		"provider error": {err: errors.New("timeout")},
		"empty reply":    {reply: "   "},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewGenerator(p, nil).Generate(context.Background(), domain.TopicArrays)
			require.ErrorIs(t, err, ErrGeneration)
		})
	}

	p := &recordingProvider{reply: "x"}
	_, err := NewGenerator(p, nil).Generate(context.Background(), domain.Topic("Graphs"))
	require.ErrorIs(t, err, ErrGeneration)
	assert.Zero(t, p.calls)
}

func TestRandomTopicCoversTopicSet(t *testing.T) {
	g := NewGenerator(&recordingProvider{}, nil)
	seen := make(map[domain.Topic]bool)
	for i := range len(domain.Topics()) {
		g.pick = func(int) int { return i }
		seen[g.RandomTopic()] = true
	}
	assert.Len(t, seen, len(domain.Topics()))

	g.pick = func(n int) int { return n - 1 }
	assert.Equal(t, domain.TopicLinkedLists, g.RandomTopic())
}
