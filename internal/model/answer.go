package model

type SourceCitation struct {
	Company *string `json:"company"`
	Filing  *string `json:"filing"`
	Period  *string `json:"period"`
	Snippet string  `json:"snippet"`
	URL     *string `json:"url"`
}

type StructuredAnswer struct {
	Answer     string           `json:"answer"`
	Sources    []SourceCitation `json:"sources"`
	Confidence float64          `json:"confidence"`
}
