// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package criteria

import "fmt"

// Kind selects which rule list a template extends.
type Kind string

const (
	KindInclusion Kind = "inclusion"
	KindExclusion Kind = "exclusion"
)

// Template is a commonly used screening rule.
type Template struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
	Kind  Kind   `json:"kind" yaml:"kind"`
	Rule  string `json:"rule" yaml:"rule"`
}

var templates = []Template{
	{ID: "human-subjects", Label: "Human Subjects Only", Kind: KindInclusion, Rule: "Study must include human participants"},
	{ID: "adults-only", Label: "Adults Only (18+)", Kind: KindInclusion, Rule: "Participants must be adults aged 18 years or older"},
	{ID: "randomized-control-studies", Label: "Randomized Control Studies", Kind: KindInclusion, Rule: "Study must be a randomized control study"},
	{ID: "systematic-reviews-only", Label: "Systematic Reviews Only", Kind: KindInclusion, Rule: "Study must be a systematic review"},
	{ID: "systematic-reviews-and-meta-analyses", Label: "Systematic Reviews and Meta-Analyses", Kind: KindInclusion, Rule: "Study must be a systematic review or meta-analysis"},
	{ID: "quantitative-studies-only", Label: "Quantitative Studies Only", Kind: KindInclusion, Rule: "Study must be a quantitative study"},
	{ID: "qualitative-studies-only", Label: "Qualitative Studies Only", Kind: KindInclusion, Rule: "Study must be a qualitative study"},
	{ID: "animal-studies", Label: "Animal Studies", Kind: KindExclusion, Rule: "Exclude studies conducted on animals"},
	{ID: "reviews", Label: "Review Articles", Kind: KindExclusion, Rule: "Exclude literature reviews, systematic reviews, and meta-analyses"},
	{ID: "case-studies-and-case-reports", Label: "Case Studies and Case Reports", Kind: KindExclusion, Rule: "Exclude case studies and case reports"},
}

// Templates returns the built-in template catalogue, inclusion rules first.
func Templates() []Template {
	return append([]Template(nil), templates...)
}

// TemplateByID looks up a built-in template.
func TemplateByID(id string) (Template, error) {
	for _, t := range templates {
		if t.ID == id {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("unknown criteria template %q", id)
}
