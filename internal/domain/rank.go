package domain

// Rank is a discrete label derived from cumulative XP.
type Rank string

const (
	RankIntern        Rank = "INTERN"
	RankJuniorSDE     Rank = "JUNIOR SDE"
	RankSDEII         Rank = "SDE II"
	RankSeniorSDE     Rank = "SENIOR SDE"
	RankStaffEngineer Rank = "STAFF ENGINEER"
)

// MaxRankXP is the XP at which the top rank is reached.
const MaxRankXP = 2000

// rankLadder is ordered highest threshold first.
var rankLadder = []struct {
	minXP int
	rank  Rank
}{
	{MaxRankXP, RankStaffEngineer},
	{1000, RankSeniorSDE},
	{500, RankSDEII},
	{200, RankJuniorSDE},
}

// RankFor maps cumulative XP to a rank label.
func RankFor(xp int) Rank {
	for _, step := range rankLadder {
		if xp >= step.minXP {
			return step.rank
		}
	}
	return RankIntern
}

// Ranks returns every rank label, lowest first.
func Ranks() []Rank {
	return []Rank{RankIntern, RankJuniorSDE, RankSDEII, RankSeniorSDE, RankStaffEngineer}
}
