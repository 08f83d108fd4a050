package model

// Reference is an exemplar diagram from the static catalog. The image
// encoding is populated lazily, only for references that were actually
// selected for a run.
type Reference struct {
	Category    string `json:"category"`
	File        string `json:"file"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

// CritiqueVerdict is the outcome of evaluating one generated image.
// When Approved is false, RevisedDescription carries the replacement
// description for the next round, or "" when the critic supplied none.
type CritiqueVerdict struct {
	Approved           bool   `json:"approved"`
	Summary            string `json:"summary"`
	RevisedDescription string `json:"revised_description,omitempty"`
}

// HasRevision reports whether the verdict carries a usable replacement
// description.
func (v CritiqueVerdict) HasRevision() bool {
	return !v.Approved && v.RevisedDescription != ""
}

// RoundRecord captures the artifacts of one generate-then-critique round.
type RoundRecord struct {
	Round   int             `json:"round"`
	Image   []byte          `json:"-"`
	Verdict CritiqueVerdict `json:"verdict"`
}
