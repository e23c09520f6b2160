package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMatchingIgnoresStage(t *testing.T) {
	err := NewPipelineError(KindGenerationFailed, StageGenerate, errors.New("boom"))

	assert.True(t, errors.Is(err, ErrGenerationFailed))
	assert.False(t, errors.Is(err, ErrIndexUnavailable))
}

func TestSentinelMatchingThroughWrapping(t *testing.T) {
	inner := NewPipelineError(KindEmbeddingUnavailable, StageEmbed, errors.New("connection refused"))
	wrapped := fmt.Errorf("answering query: %w", inner)

	assert.True(t, errors.Is(wrapped, ErrEmbeddingUnavailable))
	assert.Equal(t, StageEmbed, StageOf(wrapped))
	assert.Equal(t, KindEmbeddingUnavailable, KindOf(wrapped))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := NewTransientError(KindIndexUnavailable, StageRetrieve, cause)

	assert.True(t, errors.Is(err, cause))
}

func TestTransience(t *testing.T) {
	assert.True(t, IsTransient(NewTransientError(KindGenerationFailed, StageGenerate, errors.New("429"))))
	assert.False(t, IsTransient(NewPipelineError(KindGenerationFailed, StageGenerate, errors.New("401"))))
	assert.False(t, IsTransient(errors.New("plain")))
}

func TestUntaggedErrorsHaveNoStageOrKind(t *testing.T) {
	err := errors.New("plain")

	assert.Equal(t, Stage(""), StageOf(err))
	assert.Equal(t, ErrorKind(""), KindOf(err))
}

func TestErrorStringNamesKindAndStage(t *testing.T) {
	err := NewPipelineError(KindBudgetExceeded, StageCompose, errors.New("prompt too large"))

	assert.Contains(t, err.Error(), "budget_exceeded")
	assert.Contains(t, err.Error(), "compose")
	assert.Contains(t, err.Error(), "prompt too large")
}
