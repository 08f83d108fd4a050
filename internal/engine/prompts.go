package engine

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Prompts holds the templates for every language-model step. Templates use
// {placeholder} substitution so an override file cannot break formatting by
// reordering arguments.
type Prompts struct {
	Classify         string `yaml:"retriever_classify"`
	Planner          string `yaml:"planner"`
	Stylist          string `yaml:"stylist"`
	VisualizerSystem string `yaml:"visualizer_system"`
	Critic           string `yaml:"critic"`
}

// DefaultPrompts returns the compiled-in templates.
func DefaultPrompts() Prompts {
	return Prompts{
		Classify: `You are a diagram taxonomist. Classify the brief below into exactly one of these categories:
pipeline, staged-progression, canvas, comparison-cards, matrix, wheel, concept-explainer

Respond with ONLY the category name, nothing else.

Brief:
{brief}`,

		Planner: `You are a visual planner for business diagrams. Using the brief and the reference
diagrams attached as images, write a complete, self-contained description of the
diagram to generate: layout, elements, labels, connections, and reading order.
Describe only what should appear in the image.

Brief:
{brief}`,

		Stylist: `You are a visual stylist. Rewrite the description below so it follows the house
style for {category} diagrams: flat design, generous whitespace, a restrained
palette, and short legible labels. Keep every structural element; change only
presentation. Output the revised description and nothing else.

Description:
{description}`,

		VisualizerSystem: `Render a clean, presentation-ready business diagram. Flat vector style, white
background, high contrast text, no watermarks, no photographic elements.`,

		Critic: `You are a diagram critic reviewing round {round} of {max_rounds}. Compare the
attached image against the brief and the description it was generated from.

Brief:
{brief}

Description:
{description}

If the image faithfully serves the brief, respond with this exact JSON:
{"critic_suggestions": "APPROVED"}

Otherwise respond with JSON of the form:
{"critic_suggestions": "<short summary of the problems>", "revised_description": "<complete corrected description>"}

Output ONLY the JSON object, no markdown fences, no commentary.`,
	}
}

// LoadPrompts reads a YAML override file and merges non-empty entries over
// the defaults. A missing file yields plain defaults; a malformed file is
// an error since a half-applied override would be confusing to debug.
func LoadPrompts(path string) (Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return p, err
	}

	var override Prompts
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return p, fmt.Errorf("parse prompts file %s: %w", path, err)
	}

	if override.Classify != "" {
		p.Classify = override.Classify
	}
	if override.Planner != "" {
		p.Planner = override.Planner
	}
	if override.Stylist != "" {
		p.Stylist = override.Stylist
	}
	if override.VisualizerSystem != "" {
		p.VisualizerSystem = override.VisualizerSystem
	}
	if override.Critic != "" {
		p.Critic = override.Critic
	}
	return p, nil
}

func (p Prompts) buildClassify(brief string) string {
	return strings.NewReplacer("{brief}", brief).Replace(p.Classify)
}

func (p Prompts) buildPlanner(brief string) string {
	return strings.NewReplacer("{brief}", brief).Replace(p.Planner)
}

func (p Prompts) buildStylist(description, category string) string {
	return strings.NewReplacer(
		"{description}", description,
		"{category}", category,
	).Replace(p.Stylist)
}

func (p Prompts) buildCritic(brief, description string, round, maxRounds int) string {
	return strings.NewReplacer(
		"{brief}", brief,
		"{description}", description,
		"{round}", strconv.Itoa(round),
		"{max_rounds}", strconv.Itoa(maxRounds),
	).Replace(p.Critic)
}
