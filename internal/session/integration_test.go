package session

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ashureev/dsa-drill/internal/domain"
	"github.com/ashureev/dsa-drill/internal/drill"
	"github.com/ashureev/dsa-drill/internal/llm"
	"github.com/ashureev/dsa-drill/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider answers problem prompts with a fixed problem and grading
// prompts with a fixed verdict.
func scriptedProvider(problem, verdict string) llm.Provider {
	return llm.ProviderFunc(func(_ context.Context, _, userPrompt string) (string, error) {
		if strings.HasPrefix(userPrompt, "PROBLEM:") {
			return verdict, nil
		}
		return "  " + problem + "\n", nil
	})
}

func TestDrillLoopAgainstSQLite(t *testing.T) {
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "agents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	provider := scriptedProvider("**Valid Parentheses**", "SCORE: 120\nFEEDBACK: Optimal stack solution.")
	messenger := &fakeMessenger{}
	ctrl, err := NewController(Deps{
		Repo:      repo,
		Generator: drill.NewGenerator(provider, nil),
		Grader:    drill.NewGrader(provider, nil),
		Messenger: messenger,
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, ctrl.Handle(ctx, Event{Kind: EventStart, UserID: testUser, DisplayName: "Ada", ChatID: testChat}))

	for round := 1; round <= 2; round++ {
		require.NoError(t, ctrl.Handle(ctx, buttonEvent(ButtonProblem)))
		agent, err := repo.GetAgent(ctx, testUser)
		require.NoError(t, err)
		assert.Equal(t, domain.MissionOpen{Problem: "**Valid Parentheses**"}, agent.State())

		require.NoError(t, ctrl.Handle(ctx, textEvent("use a stack")))
		agent, err = repo.GetAgent(ctx, testUser)
		require.NoError(t, err)
		assert.Nil(t, agent.Mission)
		assert.Equal(t, round*drill.MaxScore, agent.XP)
	}

	agent, err := repo.GetAgent(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, domain.RankJuniorSDE, agent.Rank)

	final := messenger.lastSent()
	assert.Contains(t, final.Msg.Text, "Optimal stack solution.")
	assert.Contains(t, final.Msg.Text, "+100 XP")
	assert.NotContains(t, final.Msg.Text, "SCORE:")

	require.NoError(t, ctrl.Handle(ctx, textEvent("late answer")))
	assert.Equal(t, textNoMission, messenger.lastSent().Msg.Text)
}
