package usecase

import (
	"testing"

	"github.com/graymont/bidpipe/internal/core/domain"
)

func TestCombineSingleResultIsIdentity(t *testing.T) {
	c := NewCombiner()
	input := &domain.ExtractionResult{
		ProjectName: "Clinic Renovation",
		Confidence:  domain.ConfidenceHigh,
		Packages: []domain.ResultPackage{
			{Name: "Mechanical", DivisionCode: "23", Items: []domain.ResultItem{{Description: "RTU"}}},
		},
	}

	out := c.Combine([]*domain.ExtractionResult{input})
	if out.ProjectName != "Clinic Renovation" || out.Confidence != domain.ConfidenceHigh {
		t.Fatalf("single input must pass through unchanged, got %+v", out)
	}
	if len(out.Packages) != 1 || out.Packages[0].Name != "Mechanical" {
		t.Fatalf("packages = %+v", out.Packages)
	}
}

func TestCombineSingleResultDoesNotMutateInput(t *testing.T) {
	c := NewCombiner()
	empty := &domain.ExtractionResult{Confidence: domain.ConfidenceLow}

	out := c.Combine([]*domain.ExtractionResult{empty})
	if len(out.Packages) != 1 || out.Packages[0].Name != "GENERAL" {
		t.Fatalf("packages = %+v, want the GENERAL catch-all", out.Packages)
	}
	if len(empty.Packages) != 0 {
		t.Fatalf("caller's input grew packages: %+v", empty.Packages)
	}

	populated := &domain.ExtractionResult{
		Confidence: domain.ConfidenceHigh,
		Packages: []domain.ResultPackage{
			{Name: "Plumbing", DivisionCode: "22"},
		},
	}
	out = c.Combine([]*domain.ExtractionResult{populated})
	out.Packages[0].Name = "edited downstream"
	if populated.Packages[0].Name != "Plumbing" {
		t.Fatalf("caller's packages slice is shared with the output")
	}
}

func TestCombineEmptyYieldsGeneralCatchAll(t *testing.T) {
	c := NewCombiner()

	out := c.Combine(nil)
	if len(out.Packages) != 1 {
		t.Fatalf("packages = %d, want 1 catch-all", len(out.Packages))
	}
	pkg := out.Packages[0]
	if pkg.Name != "GENERAL" || pkg.DivisionCode != "00" {
		t.Fatalf("catch-all = %+v", pkg)
	}
	if out.Confidence != domain.ConfidenceLow {
		t.Fatalf("confidence = %q, want low", out.Confidence)
	}
}

func TestCombineMergesByDivisionAndName(t *testing.T) {
	c := NewCombiner()
	page1 := &domain.ExtractionResult{
		ProjectName: "Clinic Renovation",
		Confidence:  domain.ConfidenceHigh,
		PageNumber:  1,
		Packages: []domain.ResultPackage{
			{Name: "Mechanical", DivisionCode: "23", Items: []domain.ResultItem{{Description: "RTU-1"}}},
		},
	}
	page2 := &domain.ExtractionResult{
		Confidence: domain.ConfidenceHigh,
		PageNumber: 2,
		Packages: []domain.ResultPackage{
			{Name: "  mechanical ", DivisionCode: "23", Items: []domain.ResultItem{{Description: "RTU-2"}}},
			{Name: "Electrical", DivisionCode: "26", Items: []domain.ResultItem{{Description: "Panel A"}}},
		},
	}

	out := c.Combine([]*domain.ExtractionResult{page1, page2})
	if len(out.Packages) != 2 {
		t.Fatalf("packages = %d, want 2 (mechanical merged case-insensitively)", len(out.Packages))
	}
	mech := out.Packages[0]
	if mech.Name != "Mechanical" || len(mech.Items) != 2 {
		t.Fatalf("merged mechanical = %+v", mech)
	}
	if mech.Items[0].PageNumber != 1 || mech.Items[1].PageNumber != 2 {
		t.Fatalf("items must carry their source page: %+v", mech.Items)
	}
	if out.ProjectName != "Clinic Renovation" {
		t.Fatalf("first-seen project name must win, got %q", out.ProjectName)
	}
	if out.Confidence != domain.ConfidenceHigh {
		t.Fatalf("all-high inputs must aggregate high, got %q", out.Confidence)
	}
}

func TestCombineEmptyDivisionFoldsIntoGeneral(t *testing.T) {
	c := NewCombiner()
	a := &domain.ExtractionResult{
		Confidence: domain.ConfidenceMedium,
		Packages: []domain.ResultPackage{
			{Name: "Misc", Items: []domain.ResultItem{{Description: "allowance"}}},
		},
	}
	b := &domain.ExtractionResult{
		Confidence: domain.ConfidenceMedium,
		Packages: []domain.ResultPackage{
			{Name: "misc", DivisionCode: "", Items: []domain.ResultItem{{Description: "permit fees"}}},
		},
	}

	out := c.Combine([]*domain.ExtractionResult{a, b})
	if len(out.Packages) != 1 || len(out.Packages[0].Items) != 2 {
		t.Fatalf("blank-division packages with equal names must merge, got %+v", out.Packages)
	}
}

func TestCombineConfidenceAggregation(t *testing.T) {
	c := NewCombiner()
	high := func() *domain.ExtractionResult {
		return &domain.ExtractionResult{Confidence: domain.ConfidenceHigh}
	}
	medium := func() *domain.ExtractionResult {
		return &domain.ExtractionResult{Confidence: domain.ConfidenceMedium}
	}
	low := func() *domain.ExtractionResult {
		return &domain.ExtractionResult{Confidence: domain.ConfidenceLow}
	}

	cases := []struct {
		name   string
		inputs []*domain.ExtractionResult
		want   domain.ConfidenceLevel
	}{
		{"all high", []*domain.ExtractionResult{high(), high()}, domain.ConfidenceHigh},
		{"any low wins", []*domain.ExtractionResult{high(), low(), high()}, domain.ConfidenceLow},
		{"mixed is medium", []*domain.ExtractionResult{high(), medium()}, domain.ConfidenceMedium},
	}
	for _, tc := range cases {
		if got := c.Combine(tc.inputs).Confidence; got != tc.want {
			t.Fatalf("%s: confidence = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestCombineSkipsNilResults(t *testing.T) {
	c := NewCombiner()
	only := &domain.ExtractionResult{
		Confidence: domain.ConfidenceMedium,
		Packages: []domain.ResultPackage{
			{Name: "Plumbing", DivisionCode: "22", Items: []domain.ResultItem{{Description: "floor drain"}}},
		},
	}

	out := c.Combine([]*domain.ExtractionResult{nil, only, nil})
	if len(out.Packages) != 1 || out.Packages[0].Name != "Plumbing" {
		t.Fatalf("packages = %+v", out.Packages)
	}
}

func TestCombineRepairedFlagPropagates(t *testing.T) {
	c := NewCombiner()
	clean := &domain.ExtractionResult{Confidence: domain.ConfidenceHigh}
	repaired := &domain.ExtractionResult{Confidence: domain.ConfidenceHigh, Repaired: true}

	out := c.Combine([]*domain.ExtractionResult{clean, repaired})
	if !out.Repaired {
		t.Fatalf("repaired flag must survive merging")
	}
}
