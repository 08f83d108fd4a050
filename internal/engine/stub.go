package engine

import (
	"context"
	"strings"
)

// StubModelClient returns canned responses for every pipeline step (for
// development/testing without API keys). Its critic asks for one revision
// on round 1 and approves afterwards, so the refinement loop is exercised
// end to end.
type StubModelClient struct{}

func (m *StubModelClient) Complete(_ context.Context, prompt string) (string, error) {
	return m.respond(prompt), nil
}

func (m *StubModelClient) CompleteWithImages(_ context.Context, prompt string, _ []string) (string, error) {
	return m.respond(prompt), nil
}

func (m *StubModelClient) respond(prompt string) string {
	switch {
	case strings.Contains(prompt, "diagram taxonomist"):
		return "pipeline"

	case strings.Contains(prompt, "visual planner"):
		return "[Stub] A left-to-right pipeline diagram with four labeled stages " +
			"connected by arrows, each stage a rounded rectangle with a short caption underneath."

	case strings.Contains(prompt, "visual stylist"):
		return "[Stub] A left-to-right pipeline diagram with four labeled stages, " +
			"flat design, white background, single accent color, generous spacing between stages."

	case strings.Contains(prompt, "diagram critic"):
		if strings.Contains(prompt, "round 1 of") {
			return `{"critic_suggestions": "[Stub] arrows need clearer direction", ` +
				`"revised_description": "[Stub] The same pipeline diagram with bold directional arrowheads between stages."}`
		}
		return `{"critic_suggestions": "APPROVED"}`
	}

	return "[Stub] ok"
}
