package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Format(t *testing.T) {
	assert.EqualError(t, New(CodeNotFound, "entry not found"), "[NOT_FOUND] entry not found")
	assert.EqualError(t,
		Wrap(errors.New("bad toml"), CodeInvalidProject, "load project"),
		"[INVALID_PROJECT] load project: bad toml")

	err := AddContext(Newf(CodeConflict, "duplicate %s", "slack"), CtxPath, "a.yaml")
	err = AddContext(err, CtxClass, "SlackBubble")
	assert.EqualError(t, err, "[CONFLICT] duplicate slack (class=SlackBubble path=a.yaml)")
}

func TestAddContext_WrapsPlainErrors(t *testing.T) {
	cause := errors.New("boom")
	err := AddContext(cause, CtxOperation, "analyze")
	assert.True(t, IsCode(err, CodeInternal))
	assert.ErrorIs(t, err, cause)
}

func TestCodeOf(t *testing.T) {
	parse := AddContext(New(CodeParseFailed, "syntax error"), CtxLine, 3)
	wrapped := fmt.Errorf("analyze flow.ts: %w", parse)

	assert.Equal(t, CodeParseFailed, CodeOf(wrapped))
	assert.True(t, IsCode(wrapped, CodeParseFailed))
	assert.False(t, IsCode(wrapped, CodeNotFound))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}
