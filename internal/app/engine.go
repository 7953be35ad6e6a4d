package app

import (
	"go.uber.org/zap"
)

// Engine groups the assessment use cases behind one value for the transports.
type Engine struct {
	*Assembler
	*AttemptService
	*AnswerRecorder
	*ScoringEngine
}

func NewEngine(bank QuestionBank, store Store, catalog TestCatalog, maxQuestions int, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	attempts := NewAttemptService(store, catalog, log.Named("attempts"))
	return &Engine{
		Assembler:      NewAssembler(bank, store, maxQuestions, log.Named("assembler")),
		AttemptService: attempts,
		AnswerRecorder: NewAnswerRecorder(store, catalog, log.Named("answers")),
		ScoringEngine:  attempts.scorer,
	}
}
