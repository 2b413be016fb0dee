package llm

import "context"

// ResultFields is the normalized shape we want from the LLM for one test
// measurement. Values stay strings to tolerate non-numeric entries such as
// "positive".
type ResultFields struct {
	TestDate       string `json:"test_date,omitempty"` // as printed on the report
	RawName        string `json:"test_name"`
	Value          string `json:"test_result"`
	Unit           string `json:"test_uom,omitempty"`
	RefRange       string `json:"ref_range,omitempty"`
	Classification string `json:"classification,omitempty"` // normal | high | low
	Reason         string `json:"reason,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

// ExtractRequest carries one document's text to the extraction call.
type ExtractRequest struct {
	Text         string
	FilenameHint string
	PrepMethod   string // "pdf-text" | "pdf-ocr"
	Confidence   float32
}

// ExtractResponse is the parsed extraction payload: the per-test fields plus
// the report-level test date when the LLM found one.
type ExtractResponse struct {
	TestDate string         `json:"test_date,omitempty"`
	Results  []ResultFields `json:"results"`
}

// KnownMapping is one previously established (canonical, raw) name pair,
// replayed to the grouping call as non-negotiable context.
type KnownMapping struct {
	CanonicalName string `json:"canonical_name"`
	RawName       string `json:"raw_name"`
}

// NameCorrection is one grouping decision from the reasoning service. Any
// other shape fails parsing.
type NameCorrection struct {
	RawName       string `json:"raw_name"`
	CanonicalName string `json:"canonical_name"`
}

// ResultExtractor is the interface the extraction adapter depends on.
type ResultExtractor interface {
	ExtractResults(ctx context.Context, req ExtractRequest) (ExtractResponse, []byte /*rawJSON*/, error)
}

// NameGrouper is the interface the standardization engine depends on.
type NameGrouper interface {
	GroupNames(ctx context.Context, known []KnownMapping, unmapped []string) ([]NameCorrection, error)
}
