package model

// DeadlineOngoing marks a scheme without a closing date
const DeadlineOngoing = "Ongoing"

// SchemeRecord is one government scheme entry with display and application metadata.
// Name is treated as the key within one result set; duplicates are not rejected.
type SchemeRecord struct {
	Name           string `json:"name" yaml:"name"`
	Benefit        string `json:"benefit" yaml:"benefit"` // Display string, never parsed
	Description    string `json:"description" yaml:"description"`
	Eligibility    string `json:"eligibility" yaml:"eligibility"`
	Ministry       string `json:"ministry" yaml:"ministry"`
	Deadline       string `json:"deadline" yaml:"deadline"`             // ISO date or "Ongoing"
	ApplicationURL string `json:"applicationUrl" yaml:"applicationUrl"` // Not validated
}

// IsOngoing reports whether the scheme accepts applications without a deadline
func (s SchemeRecord) IsOngoing() bool {
	return s.Deadline == DeadlineOngoing
}
