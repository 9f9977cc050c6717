package domain

// AllCategories is the category sentinel that samples across the whole cache.
const AllCategories = "all"

// Phase is the lifecycle position of a quiz session.
type Phase string

const (
	PhaseLoading   Phase = "loading"
	PhaseActive    Phase = "active"
	PhaseConfirmed Phase = "confirmed"
	PhaseFinished  Phase = "finished"
)

// SessionState is a snapshot of one quiz attempt.
type SessionState struct {
	Category       string     `json:"category"`
	Questions      []Question `json:"-"`
	CurrentIndex   int        `json:"currentIndex"`
	SelectedAnswer string     `json:"selectedAnswer,omitempty"`
	IsConfirmed    bool       `json:"isConfirmed"`
	CorrectCount   int        `json:"correctCount"`
	Score          int        `json:"score"`
	ElapsedSeconds int64      `json:"elapsedSeconds"`
	IsFinished     bool       `json:"isFinished"`
}

// Phase derives the state-machine position from the snapshot.
func (s SessionState) Phase() Phase {
	switch {
	case s.IsFinished:
		return PhaseFinished
	case len(s.Questions) == 0:
		return PhaseLoading
	case s.IsConfirmed:
		return PhaseConfirmed
	default:
		return PhaseActive
	}
}

// TotalQuestions is the size of the question set.
func (s SessionState) TotalQuestions() int {
	return len(s.Questions)
}

// CurrentQuestion returns the question under play, if any.
func (s SessionState) CurrentQuestion() (Question, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.CurrentIndex], true
}

// Progress is (index+1)/total, 0 for an empty set.
func (s SessionState) Progress() float64 {
	if len(s.Questions) == 0 {
		return 0
	}
	return float64(s.CurrentIndex+1) / float64(len(s.Questions))
}

// Percentage is correct/total*100, 0 for an empty set.
func (s SessionState) Percentage() float64 {
	if len(s.Questions) == 0 {
		return 0
	}
	return float64(s.CorrectCount) / float64(len(s.Questions)) * 100
}
