package synth

// Size is the generic image size vocabulary of the pipeline. Backends
// translate it into whatever their API accepts.
type Size string

const (
	SizeSquare    Size = "1024x1024"
	SizePortrait  Size = "1024x1536"
	SizeLandscape Size = "1536x1024"
)

// Quality is the generic quality vocabulary of the pipeline.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// ParseSize validates a configured size string, falling back to landscape.
func ParseSize(s string) Size {
	switch Size(s) {
	case SizeSquare, SizePortrait, SizeLandscape:
		return Size(s)
	}
	return SizeLandscape
}

// ParseQuality validates a configured quality string, falling back to high.
func ParseQuality(q string) Quality {
	switch Quality(q) {
	case QualityLow, QualityMedium, QualityHigh:
		return Quality(q)
	}
	return QualityHigh
}

// DALL-E 3 accepts only two named quality tiers and three fixed sizes.
// The tables map each generic value to the closest accepted equivalent.
var (
	dalleSizes = map[Size]string{
		SizeSquare:    "1024x1024",
		SizePortrait:  "1024x1792",
		SizeLandscape: "1792x1024",
	}
	dalleQuality = map[Quality]string{
		QualityLow:    "standard",
		QualityMedium: "standard",
		QualityHigh:   "hd",
	}
)

// Gemini image models take an aspect ratio rather than pixel dimensions.
var geminiAspectRatios = map[Size]string{
	SizeSquare:    "1:1",
	SizePortrait:  "2:3",
	SizeLandscape: "3:2",
}

// openaiParams is the per-call parameter set after translation for the
// OpenAI images API.
type openaiParams struct {
	size    string
	quality string
	// wantsB64Flag is set for models that default to returning URLs and
	// must be asked for base64 payloads explicitly. gpt-image-1 always
	// returns base64 and rejects the parameter.
	wantsB64Flag bool
}

func mapOpenAIParams(modelID string, size Size, quality Quality) openaiParams {
	if modelID == "dall-e-3" {
		return openaiParams{
			size:         dalleSizes[size],
			quality:      dalleQuality[quality],
			wantsB64Flag: true,
		}
	}
	return openaiParams{size: string(size), quality: string(quality)}
}
