package workflow

import (
	"testing"

	"finscope-be/internal/entity"
)

func acmeFiling(accession string) entity.SecSelection {
	return entity.SecSelection{
		Ticker:      "ACME",
		CompanyName: "Acme Corp",
		Filing:      entity.Filing{AccessionNumber: accession, FormType: "10-K"},
	}
}

func TestDerive(t *testing.T) {
	active := &entity.Session{
		SessionId:    "sess-1",
		WorkflowType: "sec",
		Origin:       acmeFiling("0001-23"),
	}

	tests := []struct {
		name    string
		active  *entity.Session
		pending entity.Selection
		want    Status
	}{
		{"no session", nil, nil, StatusEmpty},
		{"no session ignores pending", nil, acmeFiling("0001-23"), StatusEmpty},
		{"active without pending is resumable", active, nil, StatusActiveClean},
		{"identical selection is clean", active, acmeFiling("0001-23"), StatusActiveClean},
		{
			"non-identity fields do not dirty",
			active,
			entity.SecSelection{Ticker: "acme", CompanyName: "Renamed Corp", Filing: entity.Filing{AccessionNumber: "0001-23", FormType: "10-Q"}},
			StatusActiveClean,
		},
		{"diverged filing is dirty", active, acmeFiling("0002-24"), StatusActiveDirty},
		{
			"cross workflow is dirty",
			active,
			entity.UploadSelection{CompanyName: "Acme Corp", FileName: "report.pdf", FileSize: 10},
			StatusActiveDirty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Derive(tt.active, tt.pending); got != tt.want {
				t.Errorf("Derive = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCallToAction(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusEmpty, "Start Analysis"},
		{StatusActiveClean, "Resume Analysis"},
		{StatusActiveDirty, "Start New Analysis"},
		{StatusConflict, "Start New Analysis"},
	}
	for _, tt := range tests {
		if got := tt.status.CallToAction(); got != tt.want {
			t.Errorf("%s.CallToAction() = %q, want %q", tt.status, got, tt.want)
		}
	}
}
