package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abhisek/mathguide/internal/hint"
)

func TestForAction(t *testing.T) {
	assert.True(t, ForAction(hint.ActionEmitHint).GetItalic())
	assert.True(t, ForAction(hint.ActionConfirmCorrect).GetBold())
	assert.True(t, ForAction(hint.ActionPresentProblem).GetBorderLeft())
	assert.Equal(t, Flag.GetForeground(), ForAction(hint.ActionFlagError).GetForeground())
	assert.Equal(t, Nudge.GetForeground(), ForAction(hint.ActionRequestNewAttempt).GetForeground())
	assert.Equal(t, Body.GetForeground(), ForAction(hint.ActionNone).GetForeground())
}

func TestRenderKeepsText(t *testing.T) {
	out := ForAction(hint.ActionEmitHint).Render("Try factoring.")
	assert.Contains(t, out, "Try factoring.")
}
