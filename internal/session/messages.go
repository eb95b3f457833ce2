package session

import (
	"fmt"
	"strings"

	"github.com/ashureev/dsa-drill/internal/domain"
	"github.com/ashureev/dsa-drill/internal/drill"
)

const (
	textSelecting       = "⏳ *Selecting DSA Problem...*"
	textGlitch          = "⚠️ System Glitch. Try again."
	textNoMission       = "⚠️ No active problem. Click below."
	textRunningTests    = "🖥️ *Running Test Cases...*"
	textErrorEvaluating = "⚠️ Error evaluating."
	textMissionClosed   = "⚠️ That problem is no longer open. Grab a new one below."
	textSlowDown        = "⏱ Slow down. Try again in a minute."
	textAbout           = "Improve your OA skills. Be ready for FAANG."
	textStoreError      = "⚠️ Could not load your progress. Try again."

	progressCells = 10
)

// MainMenu is shown on /start and after any failure.
func MainMenu() Keyboard {
	return Keyboard{
		{{Text: "💻 New Problem", Data: ButtonProblem}},
		{
			{Text: "📈 Progress", Data: ButtonStatus},
			{Text: "ℹ️ Info", Data: ButtonAbout},
		},
	}
}

// NextProblemMenu is shown under grading feedback.
func NextProblemMenu() Keyboard {
	return Keyboard{
		{{Text: "🚀 Next Problem", Data: ButtonProblem}},
	}
}

func welcomeText(displayName string) string {
	return fmt.Sprintf("👨‍💻 TECH INTERVIEW PREP ONLINE\n\n"+
		"Candidate: %s\n\n"+
		"I am The Tech Lead. I will test your DSA skills.\n"+
		"Crack the code, optimize your Big O, and get hired.\n\n"+
		"Ready for your first coding challenge?", displayName)
}

func problemText(topic domain.Topic, problem string) string {
	return fmt.Sprintf("🧠 *TOPIC: %s*\n\n%s\n\n👇 _Paste your solution or explain logic below..._",
		strings.ToUpper(string(topic)), problem)
}

func feedbackText(result drill.GradeResult, rank domain.Rank) string {
	return fmt.Sprintf("%s\n\n✅ +%d XP\nRole: %s", result.Feedback, result.Score, rank)
}

func statusText(agent *domain.Agent) string {
	return fmt.Sprintf("Role: %s | XP: %d\n%s", agent.Rank, agent.XP, progressBar(agent.XP))
}

// progressBar renders progress toward the top rank as a fixed-width bar.
func progressBar(xp int) string {
	capped := min(max(xp, 0), domain.MaxRankXP)
	filled := capped * progressCells / domain.MaxRankXP
	return strings.Repeat("▓", filled) + strings.Repeat("░", progressCells-filled)
}
