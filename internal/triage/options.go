package triage

// Options tunes inference calls and retrieval. A nil Temperature means 0.2;
// 0 is a valid setting.
type Options struct {
	Temperature     *float64
	Pass1MaxTokens  int
	Pass2MaxTokens  int
	RefineMaxTokens int

	// MaxMessages caps how many summaries one run considers.
	MaxMessages int
	// FetchConcurrency bounds parallel full-body retrieval.
	FetchConcurrency int
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	temperature := 0.2
	return Options{
		Temperature:      &temperature,
		Pass1MaxTokens:   2000,
		Pass2MaxTokens:   2500,
		RefineMaxTokens:  2000,
		MaxMessages:      50,
		FetchConcurrency: 4,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Temperature == nil {
		o.Temperature = d.Temperature
	}
	if o.Pass1MaxTokens <= 0 {
		o.Pass1MaxTokens = d.Pass1MaxTokens
	}
	if o.Pass2MaxTokens <= 0 {
		o.Pass2MaxTokens = d.Pass2MaxTokens
	}
	if o.RefineMaxTokens <= 0 {
		o.RefineMaxTokens = d.RefineMaxTokens
	}
	if o.MaxMessages <= 0 {
		o.MaxMessages = d.MaxMessages
	}
	if o.FetchConcurrency <= 0 {
		o.FetchConcurrency = d.FetchConcurrency
	}
	return o
}
