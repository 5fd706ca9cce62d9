package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"

	"github.com/graymont/bidpipe/internal/core/domain"
	"github.com/graymont/bidpipe/internal/core/ports"
)

// SyntheticModel is a deterministic stand-in for the external model,
// used for demos and tests without incurring external calls. Output is
// seeded by the document names so repeated runs are identical.
type SyntheticModel struct{}

func NewSyntheticModel() *SyntheticModel {
	return &SyntheticModel{}
}

var syntheticTrades = []struct {
	trade    string
	division string
	name     string
	items    []string
	units    []string
}{
	{"Mechanical", "23", "HVAC Systems", []string{"Install rooftop unit RTU-1", "Supply and return ductwork, low pressure", "VAV terminal units with reheat", "Exhaust fan EF-2 with backdraft damper", "Testing, adjusting and balancing"}, []string{"EA", "LF", "EA", "EA", "LS"}},
	{"Electrical", "26", "Power Distribution", []string{"480V switchgear section", "Branch circuit conduit and wire", "Duplex receptacles, 20A", "Panelboard LP-1, 42 circuit", "Lighting fixtures type A"}, []string{"EA", "LF", "EA", "EA", "EA"}},
	{"Plumbing", "22", "Domestic Water", []string{"Water heater WH-1, 80 gal", "Copper domestic water piping", "Wall hung lavatory with carrier", "Floor drains with trap primer"}, []string{"EA", "LF", "EA", "EA"}},
	{"Fire Protection", "21", "Wet Pipe Sprinkler", []string{"Wet pipe sprinkler zone, ordinary hazard", "Fire department connection", "Upright brass sprinkler heads"}, []string{"SF", "EA", "EA"}},
}

func (m *SyntheticModel) Extract(_ context.Context, req ports.ModelRequest) (*ports.ModelResponse, error) {
	seed := fnv.New32a()
	for _, doc := range req.Documents {
		_, _ = seed.Write([]byte(doc.Name))
	}
	n := seed.Sum32()

	pkgCount := 2 + int(n%3)
	result := domain.ExtractionResult{
		ProjectName: "Synthetic Project",
		Confidence:  domain.ConfidenceHigh,
	}

	for p := 0; p < pkgCount && p < len(syntheticTrades); p++ {
		tpl := syntheticTrades[(int(n)+p)%len(syntheticTrades)]
		pkg := domain.ResultPackage{
			Name:         tpl.name,
			Trade:        tpl.trade,
			DivisionCode: tpl.division,
			Confidence:   0.8 + float64((int(n)+p)%3)*0.05,
		}
		itemCount := 2 + (int(n)+p)%int(len(tpl.items)-1)
		for i := 0; i <= itemCount && i < len(tpl.items); i++ {
			pkg.Items = append(pkg.Items, domain.ResultItem{
				ItemNumber:  fmt.Sprintf("%s-%02d", tpl.division, i+1),
				Description: tpl.items[i],
				Quantity:    float64(1 + (int(n)+i)%40),
				Unit:        tpl.units[i],
				PageNumber:  1 + i,
				Confidence:  0.75 + float64(i%4)*0.05,
			})
		}
		result.Packages = append(result.Packages, pkg)
	}

	if req.Kind == domain.KindReview || req.Kind == domain.KindCorrelation {
		result.Packages = nil
		result.Observations = []domain.ResultObservation{
			{
				Severity: "info",
				Category: "scope",
				Title:    "Synthetic review finding",
				Insight:  "Generated observation for demo runs.",
			},
		}
	}

	body, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal synthetic result: %w", err)
	}

	return &ports.ModelResponse{
		Text:  string(body),
		Model: "synthetic",
		Usage: domain.TokenUsage{InputTokens: 0, OutputTokens: int64(len(body) / 4)},
	}, nil
}
