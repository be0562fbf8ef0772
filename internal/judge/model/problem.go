package model

// Difficulty of a problem. The integer codes are persisted.
type Difficulty int

const (
	DifficultySchool Difficulty = 0
	DifficultyEasy   Difficulty = 1
	DifficultyMedium Difficulty = 2
	DifficultyHard   Difficulty = 3
)

// Difficulties lists every difficulty in ascending order.
var Difficulties = []Difficulty{DifficultySchool, DifficultyEasy, DifficultyMedium, DifficultyHard}

func (d Difficulty) String() string {
	switch d {
	case DifficultySchool:
		return "school"
	case DifficultyEasy:
		return "easy"
	case DifficultyMedium:
		return "medium"
	case DifficultyHard:
		return "hard"
	}
	return "unknown"
}

func (d Difficulty) Valid() bool {
	return d >= DifficultySchool && d <= DifficultyHard
}

// Problem is the read model consumed by the judge.
type Problem struct {
	ID          int64      `json:"-"`
	PublicID    string     `json:"public_id"`
	Name        string     `json:"name"`
	Difficulty  Difficulty `json:"difficulty"`
	Description string     `json:"description,omitempty"`
	Constraints string     `json:"constraints,omitempty"`
	Likes       int64      `json:"likes"`
	Dislikes    int64      `json:"dislikes"`
	Published   bool       `json:"published"`
	Tags        []string   `json:"tags"`
	TestCases   []TestCase `json:"testcases,omitempty"`
}

// SelectTestCases returns the sample testcases, or every testcase when sampleOnly is false.
func (p *Problem) SelectTestCases(sampleOnly bool) []TestCase {
	if !sampleOnly {
		return p.TestCases
	}
	selected := make([]TestCase, 0, len(p.TestCases))
	for _, tc := range p.TestCases {
		if tc.IsSample {
			selected = append(selected, tc)
		}
	}
	return selected
}

// Language maps a synthesizer profile to the execution backend's language id.
type Language struct {
	ID        int64  `json:"-"`
	PublicID  string `json:"public_id"`
	Name      string `json:"name"`
	BackendID int    `json:"-"`
}
