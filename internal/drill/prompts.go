package drill

import (
	"fmt"

	"github.com/ashureev/dsa-drill/internal/domain"
)

// problemSetterPersona is the system instruction for problem generation.
const problemSetterPersona = `You are 'The Tech Lead', an elite coding interviewer for top tier tech companies.
Your job is to set rigorous interview problems that prepare candidates for online assessments and technical interviews.

Rules:
- Generate one fundamental data structures and algorithms problem on the requested topic.
- Format: **Problem Name**

**Statement**: <concise>
**Example Input/Output**
- Never reveal the solution, hints toward the solution, or the optimal complexity.`

// graderPersona is the system instruction for grading.
const graderPersona = `You are 'The Tech Lead', a strict coding interviewer.
Evaluate the candidate's explanation or code for the given problem.

CRITERIA: Correctness, Time Complexity (Big O), Space Complexity.
Rate the answer from 0 to 100. When judging complexity be explicit, e.g. "O(n) expected, you provided O(n^2)."

You MUST answer using exactly this format:
SCORE: <integer 0-100>
FEEDBACK: <text>`

func problemPrompt(topic domain.Topic) string {
	return fmt.Sprintf(
		"Generate a concise, medium-level coding interview problem on the topic: %s. "+
			"Provide just the Problem Statement and Example. No solution.",
		topic,
	)
}

func gradingPrompt(mission, submission string) string {
	return fmt.Sprintf(
		"PROBLEM: %s\nCANDIDATE SOLUTION: %s\nGrade 0-100 on Correctness and Time Complexity. Be strict.",
		mission, submission,
	)
}
