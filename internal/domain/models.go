package domain

import "time"

// Mode selects which question banks an assembly draws from.
type Mode string

const (
	ModePractical Mode = "PR"
	ModeLeveling  Mode = "NV"
	ModeSoftSkill Mode = "BL"
	ModeMixed     Mode = "MIX"
	ModeInterview Mode = "ENT"
)

// Banks lists the single-bank modes in the order blended assemblies draw them.
var Banks = []Mode{ModeLeveling, ModePractical, ModeSoftSkill}

// ParseMode normalizes raw input ("mix", " pr ") into a known mode.
func ParseMode(raw string) (Mode, bool) {
	switch m := Mode(upper(raw)); m {
	case ModePractical, ModeLeveling, ModeSoftSkill, ModeMixed, ModeInterview:
		return m, true
	default:
		return "", false
	}
}

// Blended reports whether the mode draws from every bank.
func (m Mode) Blended() bool {
	return m == ModeMixed || m == ModeInterview
}

// Label is the test-type label persisted on the Test row.
func (m Mode) Label() string {
	switch m {
	case ModeLeveling:
		return "leveling"
	case ModeMixed, ModeInterview:
		return "interview"
	default:
		return "practice"
	}
}

// BankTag is the bank recorded in test metadata; blended modes collapse to MIX.
func (m Mode) BankTag() string {
	if m.Blended() {
		return string(ModeMixed)
	}
	return string(m)
}

// BankAliases returns the lower-case bank tags a single-bank mode matches.
func BankAliases(m Mode) []string {
	switch m {
	case ModeLeveling:
		return []string{"nv", "leveling", "nivel", "nivelacion", "nivelación"}
	case ModeSoftSkill:
		return []string{"bl", "soft-skill", "blanda", "blandas"}
	default:
		return []string{"pr", "practical", "practica", "práctica"}
	}
}

// Levels accepted by the assembler after normalization.
var Levels = map[string]struct{}{
	"jr": {}, "mid": {}, "sr": {}, "ssr": {}, "1": {}, "2": {}, "3": {},
}

// QuestionKind distinguishes auto-gradable questions from free text.
type QuestionKind string

const (
	KindSingleChoice QuestionKind = "single-choice"
	KindOpenText     QuestionKind = "open-text"
)

// Choice is one selectable option of a single-choice question.
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// AnswerConfig is the answer-key configuration stored on a bank question.
type AnswerConfig struct {
	Choices       []Choice `json:"choices,omitempty"`
	CorrectChoice string   `json:"correctChoice,omitempty"`
	MinChars      int      `json:"minChars,omitempty"`
	MaxChars      int      `json:"maxChars,omitempty"`
	Format        string   `json:"format,omitempty"`
}

// Question is a read-only bank entry.
type Question struct {
	ID     string
	Bank   string
	Sector string
	Level  string
	Kind   QuestionKind
	Prompt string
	Hint   string
	Config AnswerConfig
	Active bool
}

// DrawFilter narrows a random draw from the question bank.
type DrawFilter struct {
	Banks   []string // lower-case bank aliases
	Sector  string
	Level   string
	Kind    QuestionKind // empty matches any kind
	Exclude []string
	Limit   int
}

// Test is an assembled, immutable evaluation instance.
type Test struct {
	ID        string
	TypeLabel string
	Mode      Mode
	Sector    string
	Level     string
	Metadata  map[string]any
	Active    bool
	CreatedAt time.Time
}

// TestQuestion binds a Question to a Test at a 1-based position. Presentation
// fields and the answer key are snapshots taken at assembly time.
type TestQuestion struct {
	ID         string
	TestID     string
	QuestionID string
	Order      int
	Bank       string
	Kind       QuestionKind
	Prompt     string
	Hint       string
	Choices    []Choice
	AnswerKey  string // empty when the question cannot be auto-graded
	MinChars   int
	MaxChars   int
}

// HasAnswerKey reports whether answers to this question are graded automatically.
func (q TestQuestion) HasAnswerKey() bool {
	return q.AnswerKey != ""
}

// AttemptState is the lifecycle state of an attempt.
type AttemptState string

const (
	StateInProgress AttemptState = "IN_PROGRESS"
	StateFinished   AttemptState = "FINISHED"
	StateAbandoned  AttemptState = "ABANDONED"
)

// Terminal reports whether no further transitions are allowed.
func (s AttemptState) Terminal() bool {
	return s == StateFinished || s == StateAbandoned
}

// Attempt is one user's run through one Test.
type Attempt struct {
	ID             string
	UserID         string
	TestID         string
	StartedAt      time.Time
	EndedAt        *time.Time
	Score          *int
	State          AttemptState
	TotalQuestions int
	Feedback       string
}

// Answer is a single recorded response. Correct is nil when not auto-graded.
type Answer struct {
	ID             string
	AttemptID      string
	TestQuestionID string
	Value          string
	Correct        *bool
	SubmittedAt    time.Time
}

// Band is the qualitative category derived from a percentage.
type Band string

const (
	BandExcellent    Band = "excellent"
	BandGood         Band = "good"
	BandFair         Band = "fair"
	BandInsufficient Band = "insufficient"
)

// ScoreResult aggregates the recorded answers of an attempt.
type ScoreResult struct {
	Percentage      int      `json:"percentage"`
	CorrectCount    int      `json:"correctCount"`
	TotalCount      int      `json:"totalCount"`
	Band            Band     `json:"band"`
	FeedbackText    string   `json:"feedbackText"`
	Recommendations []string `json:"recommendations"`
}
