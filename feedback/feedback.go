// Package feedback scores a resume against a job posting using an AI model.
package feedback

import (
	"encoding/json"
	"log/slog"
	"math"
)

// Logger is global since we will need it everywhere
var Logger = slog.Default()

// TipType marks a tip as a strength or an area to work on
type TipType string

const (
	TipGood    TipType = "good"
	TipImprove TipType = "improve"
)

// Tip is a short piece of advice
type Tip struct {
	Type TipType `json:"type"`
	Tip  string  `json:"tip"`
}

// DetailedTip is a tip with an explanation
type DetailedTip struct {
	Type        TipType `json:"type"`
	Tip         string  `json:"tip"`
	Explanation string  `json:"explanation"`
}

// Score is a 0-100 rating. Models sometimes answer with fractions, which
// are rounded to the nearest whole point.
type Score int

func (s *Score) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*s = Score(math.Round(f))
	return nil
}

// ATSScore rates how well the resume survives applicant tracking systems
type ATSScore struct {
	Score Score `json:"score"`
	Tips  []Tip `json:"tips"`
}

// CategoryScore rates one aspect of the resume
type CategoryScore struct {
	Score Score         `json:"score"`
	Tips  []DetailedTip `json:"tips"`
}

// Summary lists the headline findings
type Summary struct {
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
}

// Keywords compares resume wording with the job description
type Keywords struct {
	Found     []string `json:"found"`
	Missing   []string `json:"missing"`
	Suggested []string `json:"suggested"`
}

// Feedback is the full analysis of one resume. Scores run from 0 to 100.
type Feedback struct {
	OverallScore Score         `json:"overallScore"`
	ATS          ATSScore      `json:"ATS"`
	ToneAndStyle CategoryScore `json:"toneAndStyle"`
	Content      CategoryScore `json:"content"`
	Structure    CategoryScore `json:"structure"`
	Skills       CategoryScore `json:"skills"`
	Summary      *Summary      `json:"summary,omitempty"`
	Keywords     *Keywords     `json:"keywords,omitempty"`
}
