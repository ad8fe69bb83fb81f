package queue

import (
	"fmt"
	"strings"
)

// ResultMessage is the lab's payload on lab.results: analytes that finished
// for a sample, optionally carrying the lab number issued at check-in.
type ResultMessage struct {
	SampleID  string   `json:"sampleId"`
	LabNumber string   `json:"labNumber,omitempty"`
	Analytes  []string `json:"analytes"`
}

func (m ResultMessage) Validate() error {
	if strings.TrimSpace(m.SampleID) == "" {
		return fmt.Errorf("sampleId is required")
	}
	if len(m.Analytes) == 0 {
		return fmt.Errorf("analytes is required")
	}
	for _, analyte := range m.Analytes {
		if strings.TrimSpace(analyte) == "" {
			return fmt.Errorf("analytes contains an empty name")
		}
	}
	return nil
}

// DecisionMessage is the lab's payload on lab.decisions: the verdict on a
// previously forwarded change request.
type DecisionMessage struct {
	ChangeRequestID string `json:"changeRequestId"`
	Approved        bool   `json:"approved"`
}

func (m DecisionMessage) Validate() error {
	if strings.TrimSpace(m.ChangeRequestID) == "" {
		return fmt.Errorf("changeRequestId is required")
	}
	return nil
}

// ApprovalMessage is the portal's payload on lab.approvals: a configuration
// change against an in-progress sample, forwarded for lab review.
type ApprovalMessage struct {
	ChangeRequestID  string   `json:"changeRequestId"`
	SampleID         string   `json:"sampleId"`
	ProposedPackage  string   `json:"proposedPackage"`
	ProposedAddOnIDs []string `json:"proposedAddOnIds"`
	CostDelta        float64  `json:"costDelta"`
}

func (m ApprovalMessage) Validate() error {
	if strings.TrimSpace(m.ChangeRequestID) == "" {
		return fmt.Errorf("changeRequestId is required")
	}
	if strings.TrimSpace(m.SampleID) == "" {
		return fmt.Errorf("sampleId is required")
	}
	if strings.TrimSpace(m.ProposedPackage) == "" {
		return fmt.Errorf("proposedPackage is required")
	}
	return nil
}
