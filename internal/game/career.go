package game

type CareerLevel struct {
	Level     int    `json:"level"`
	Name      string `json:"name"`
	Threshold int64  `json:"threshold"`
}

// careerLevels is ordered by threshold.
var careerLevels = []CareerLevel{
	{Level: 1, Name: "Unknown", Threshold: 0},
	{Level: 2, Name: "Local Act", Threshold: 100_000},
	{Level: 3, Name: "Rising Star", Threshold: 1_000_000},
	{Level: 4, Name: "Breakthrough Artist", Threshold: 10_000_000},
	{Level: 5, Name: "Established Artist", Threshold: 50_000_000},
	{Level: 6, Name: "Headliner", Threshold: 100_000_000},
	{Level: 7, Name: "Star", Threshold: 500_000_000},
	{Level: 8, Name: "Superstar", Threshold: 1_000_000_000},
	{Level: 9, Name: "Icon", Threshold: 5_000_000_000},
	{Level: 10, Name: "Legend", Threshold: 10_000_000_000},
}

func CareerLevels() []CareerLevel {
	out := make([]CareerLevel, len(careerLevels))
	copy(out, careerLevels)
	return out
}

// CareerLevelFor returns the highest level whose threshold total meets.
func CareerLevelFor(total int64) int {
	level := careerLevels[0].Level
	for _, l := range careerLevels {
		if total < l.Threshold {
			break
		}
		level = l.Level
	}
	return level
}

func CareerLevelName(level int) string {
	for _, l := range careerLevels {
		if l.Level == level {
			return l.Name
		}
	}
	if level > careerLevels[len(careerLevels)-1].Level {
		return careerLevels[len(careerLevels)-1].Name
	}
	return careerLevels[0].Name
}

// RatchetCareerLevel never lets the level fall below previous.
func RatchetCareerLevel(previous int, total int64) int {
	return max(previous, CareerLevelFor(total))
}
