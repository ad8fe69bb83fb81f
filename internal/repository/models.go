package repository

import (
	"time"

	"github.com/agrolab/sample-engine/internal/domain"
	"gorm.io/datatypes"
)

// SampleModel is the persistence model for the samples table.
type SampleModel struct {
	ID             string                      `gorm:"type:uuid;primaryKey"`
	LabNumber      *string                     `gorm:"type:varchar(20)"`
	ContainerID    string                      `gorm:"type:varchar(40);not null"`
	SampleName     string                      `gorm:"type:varchar(120)"`
	FarmID         string                      `gorm:"type:uuid;not null"`
	Mode           domain.Mode                 `gorm:"type:varchar(10);not null"`
	SampleType     string                      `gorm:"type:varchar(40);not null"`
	PackageID      string                      `gorm:"type:varchar(60);not null"`
	AddOnIDs       datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Status         domain.Status               `gorm:"type:varchar(20);not null"`
	CompletedTests datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	PendingTests   datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (SampleModel) TableName() string {
	return "samples"
}

// ChangeRequestModel is the persistence model for change_requests.
type ChangeRequestModel struct {
	ID               string                      `gorm:"type:uuid;primaryKey"`
	SampleID         string                      `gorm:"type:uuid;not null"`
	ProposedPackage  string                      `gorm:"type:varchar(60);not null"`
	ProposedAddOnIDs datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	ProposedName     *string                     `gorm:"type:varchar(120)"`
	CostDelta        float64                     `gorm:"type:numeric(10,2);not null"`
	Status           domain.ChangeRequestStatus  `gorm:"type:varchar(20);not null"`
	Dispatched       bool                        `gorm:"not null;default:false"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (ChangeRequestModel) TableName() string {
	return "change_requests"
}

// ResultEventModel is the persistence model for result_events.
type ResultEventModel struct {
	ID          string                      `gorm:"type:uuid;primaryKey"`
	SampleID    string                      `gorm:"type:uuid;not null"`
	Analytes    datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	StatusAfter domain.Status               `gorm:"type:varchar(20);not null"`
	CreatedAt   time.Time
}

func (ResultEventModel) TableName() string {
	return "result_events"
}

func sampleModelFromDomain(s *domain.Sample) *SampleModel {
	if s == nil {
		return nil
	}

	var labNumber *string
	if s.LabNumber != "" {
		value := s.LabNumber
		labNumber = &value
	}

	return &SampleModel{
		ID:             s.ID,
		LabNumber:      labNumber,
		ContainerID:    s.ContainerID,
		SampleName:     s.SampleName,
		FarmID:         s.FarmID,
		Mode:           s.Mode,
		SampleType:     s.SampleType,
		PackageID:      s.PackageID,
		AddOnIDs:       datatypes.NewJSONSlice(s.AddOnIDs),
		Status:         s.Status,
		CompletedTests: datatypes.NewJSONSlice(s.CompletedTests),
		PendingTests:   datatypes.NewJSONSlice(s.PendingTests),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func sampleModelToDomain(m *SampleModel) *domain.Sample {
	if m == nil {
		return nil
	}

	labNumber := ""
	if m.LabNumber != nil {
		labNumber = *m.LabNumber
	}

	return &domain.Sample{
		ID:             m.ID,
		LabNumber:      labNumber,
		ContainerID:    m.ContainerID,
		SampleName:     m.SampleName,
		FarmID:         m.FarmID,
		Mode:           m.Mode,
		SampleType:     m.SampleType,
		PackageID:      m.PackageID,
		AddOnIDs:       []string(m.AddOnIDs),
		Status:         m.Status,
		CompletedTests: []string(m.CompletedTests),
		PendingTests:   []string(m.PendingTests),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func changeRequestModelFromDomain(c *domain.ChangeRequest) *ChangeRequestModel {
	if c == nil {
		return nil
	}

	return &ChangeRequestModel{
		ID:               c.ID,
		SampleID:         c.SampleID,
		ProposedPackage:  c.ProposedPackage,
		ProposedAddOnIDs: datatypes.NewJSONSlice(c.ProposedAddOnIDs),
		ProposedName:     c.ProposedName,
		CostDelta:        c.CostDelta,
		Status:           c.Status,
		Dispatched:       c.Dispatched,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func changeRequestModelToDomain(m *ChangeRequestModel) *domain.ChangeRequest {
	if m == nil {
		return nil
	}

	return &domain.ChangeRequest{
		ID:               m.ID,
		SampleID:         m.SampleID,
		ProposedPackage:  m.ProposedPackage,
		ProposedAddOnIDs: []string(m.ProposedAddOnIDs),
		ProposedName:     m.ProposedName,
		CostDelta:        m.CostDelta,
		Status:           m.Status,
		Dispatched:       m.Dispatched,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func resultEventModelFromDomain(e *domain.ResultEvent) *ResultEventModel {
	if e == nil {
		return nil
	}

	return &ResultEventModel{
		ID:          e.ID,
		SampleID:    e.SampleID,
		Analytes:    datatypes.NewJSONSlice(e.Analytes),
		StatusAfter: e.StatusAfter,
		CreatedAt:   e.CreatedAt,
	}
}

func resultEventModelToDomain(m *ResultEventModel) *domain.ResultEvent {
	if m == nil {
		return nil
	}

	return &domain.ResultEvent{
		ID:          m.ID,
		SampleID:    m.SampleID,
		Analytes:    []string(m.Analytes),
		StatusAfter: m.StatusAfter,
		CreatedAt:   m.CreatedAt,
	}
}
