package reward

// Rank is one tier of the loyalty ladder
type Rank struct {
	Name      string `json:"name"`
	Threshold int    `json:"threshold"` // minimum cumulative points
}

// rankTable is the fixed ascending tier table. Thresholds are versioned
// policy data: change them here, never in pipeline code.
var rankTable = []Rank{
	{Name: "Eco Beginner", Threshold: 0},
	{Name: "Eco Supporter", Threshold: 500},
	{Name: "Eco Challenger", Threshold: 2000},
	{Name: "Eco Master", Threshold: 5000},
	{Name: "Eco Hero", Threshold: 10000},
}

// RankForPoints returns the highest rank whose threshold the cumulative
// point total meets
func RankForPoints(points int) string {
	rank := rankTable[0].Name
	for _, r := range rankTable {
		if points >= r.Threshold {
			rank = r.Name
		}
	}
	return rank
}

// Ranks returns the ascending tier table
func Ranks() []Rank {
	out := make([]Rank, len(rankTable))
	copy(out, rankTable)
	return out
}
