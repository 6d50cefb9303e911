package specification

import (
	"strings"

	"gorm.io/gorm"
)

// ByCompanyQuery matches conversations whose company name contains the
// query, case-insensitively. An empty query matches everything.
type ByCompanyQuery struct {
	Query string
}

func (s ByCompanyQuery) Apply(db *gorm.DB) *gorm.DB {
	q := strings.TrimSpace(s.Query)
	if q == "" {
		return db
	}
	return db.Where("company_name ILIKE ?", "%"+q+"%")
}

// ByWorkflowType filters conversations by their originating workflow.
type ByWorkflowType struct {
	WorkflowType string
}

func (s ByWorkflowType) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("workflow_type = ?", s.WorkflowType)
}
