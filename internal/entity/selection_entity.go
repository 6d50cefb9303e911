package entity

import (
	"encoding/json"
	"fmt"
	"strings"

	"finscope-be/internal/constant"
)

// ValidationError reports a missing or malformed selection field. It is
// resolved locally and never reaches the analysis backend.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid selection: %s %s", e.Field, e.Reason)
}

// Selection describes what the user currently wants analyzed. Two
// selections refer to the same analysis iff their Identity strings are
// equal; selections of different workflows never match because the
// identity is prefixed with the workflow type.
type Selection interface {
	Workflow() string
	Identity() string
	Company() string
	Validate() error
}

type Filing struct {
	AccessionNumber string `json:"accession_number"`
	FormType        string `json:"form_type"`
	FilingDate      string `json:"filing_date"`
}

// SecSelection targets a single SEC filing of a company.
type SecSelection struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"company_name"`
	Filing      Filing `json:"filing"`
}

func (s SecSelection) Workflow() string { return constant.WorkflowSec }

func (s SecSelection) Company() string { return s.CompanyName }

// Identity is ticker + accession number. Form type and filing date are
// display fields carried by the accession number already.
func (s SecSelection) Identity() string {
	return fmt.Sprintf("sec:%s:%s", strings.ToUpper(strings.TrimSpace(s.Ticker)), s.Filing.AccessionNumber)
}

func (s SecSelection) Validate() error {
	if strings.TrimSpace(s.Ticker) == "" {
		return &ValidationError{Field: "ticker", Reason: "is required"}
	}
	if strings.TrimSpace(s.CompanyName) == "" {
		return &ValidationError{Field: "company_name", Reason: "is required"}
	}
	if strings.TrimSpace(s.Filing.AccessionNumber) == "" {
		return &ValidationError{Field: "filing.accession_number", Reason: "is required"}
	}
	return nil
}

// UploadSelection targets a user-uploaded document. FileName+FileSize
// form the file fingerprint: byte content is not persisted, so this is
// the strongest identity the draft store can carry across reloads.
type UploadSelection struct {
	CompanyName string `json:"company_name"`
	DocTitle    string `json:"doc_title"`
	DocType     string `json:"doc_type"`
	Year        int    `json:"year"`
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
}

func (u UploadSelection) Workflow() string { return constant.WorkflowUpload }

func (u UploadSelection) Company() string { return u.CompanyName }

// Identity covers company, doc type, year and the file fingerprint.
// DocTitle is intentionally excluded: retitling a document does not make
// it a different analysis.
func (u UploadSelection) Identity() string {
	return fmt.Sprintf("upload:%s:%s:%d:%s:%d",
		strings.ToLower(strings.TrimSpace(u.CompanyName)),
		strings.ToLower(strings.TrimSpace(u.DocType)),
		u.Year,
		u.FileName,
		u.FileSize,
	)
}

func (u UploadSelection) Validate() error {
	if strings.TrimSpace(u.CompanyName) == "" {
		return &ValidationError{Field: "company_name", Reason: "is required"}
	}
	if u.FileName == "" || u.FileSize <= 0 {
		return &ValidationError{Field: "file", Reason: "is required"}
	}
	return nil
}

// SameSelection compares two selections by identity. Either side may be
// nil, which never matches anything.
func SameSelection(a, b Selection) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Identity() == b.Identity()
}

// selectionEnvelope tags the concrete variant so a Selection survives a
// JSON round trip through the persistent store.
type selectionEnvelope struct {
	Workflow string          `json:"workflow"`
	Payload  json.RawMessage `json:"payload"`
}

func EncodeSelection(s Selection) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("encode selection: nil selection")
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return json.Marshal(selectionEnvelope{Workflow: s.Workflow(), Payload: payload})
}

func DecodeSelection(data []byte) (Selection, error) {
	var env selectionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	switch env.Workflow {
	case constant.WorkflowSec:
		var s SecSelection
		if err := json.Unmarshal(env.Payload, &s); err != nil {
			return nil, err
		}
		return s, nil
	case constant.WorkflowUpload:
		var u UploadSelection
		if err := json.Unmarshal(env.Payload, &u); err != nil {
			return nil, err
		}
		return u, nil
	default:
		return nil, fmt.Errorf("decode selection: unknown workflow %q", env.Workflow)
	}
}
