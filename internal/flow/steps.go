package flow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/yojana/internal/model"
)

// Step is one group of the onboarding form
type Step int

const (
	StepPersonal Step = iota
	StepLocation
	StepBackground
	StepFinancial
)

// Steps lists the form steps in order
var Steps = []Step{StepPersonal, StepLocation, StepBackground, StepFinancial}

// Title returns the display title of the step
func (s Step) Title() string {
	switch s {
	case StepPersonal:
		return "Personal Details"
	case StepLocation:
		return "Location & Category"
	case StepBackground:
		return "Background Info"
	case StepFinancial:
		return "Financial Details"
	default:
		return fmt.Sprintf("Step %d", int(s))
	}
}

func (s Step) String() string {
	switch s {
	case StepPersonal:
		return "personal"
	case StepLocation:
		return "location"
	case StepBackground:
		return "background"
	case StepFinancial:
		return "financial"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// ErrIncompleteStep is wrapped by every StepError
var ErrIncompleteStep = errors.New("step incomplete")

// StepError reports which step failed its completeness check and which fields are missing
type StepError struct {
	Step    Step
	Missing []string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: missing %s", e.Step.Title(), strings.Join(e.Missing, ", "))
}

func (e *StepError) Unwrap() error {
	return ErrIncompleteStep
}

// CheckStep applies the completeness predicate of step s to a draft profile
func CheckStep(s Step, p model.Profile) error {
	var missing []string

	switch s {
	case StepPersonal:
		if strings.TrimSpace(p.Name) == "" {
			missing = append(missing, "name")
		}
		if p.Age <= 0 {
			missing = append(missing, "age")
		}
	case StepLocation:
		if strings.TrimSpace(p.State) == "" {
			missing = append(missing, "state")
		}
		if strings.TrimSpace(p.District) == "" {
			missing = append(missing, "district")
		}
		if !p.Category.Known() {
			missing = append(missing, "category")
		}
	case StepBackground:
		if strings.TrimSpace(p.Caste) == "" {
			missing = append(missing, "caste")
		}
		if strings.TrimSpace(p.Education) == "" {
			missing = append(missing, "education")
		}
	case StepFinancial:
		if p.ParentIncome <= 0 {
			missing = append(missing, "parentIncome")
		}
	default:
		return fmt.Errorf("unknown step %d", int(s))
	}

	if len(missing) > 0 {
		return &StepError{Step: s, Missing: missing}
	}
	return nil
}

// CheckProfile checks every step in order and returns the first failure
func CheckProfile(p model.Profile) error {
	for _, s := range Steps {
		if err := CheckStep(s, p); err != nil {
			return err
		}
	}
	return nil
}

// StepStatus is the completeness of one step
type StepStatus struct {
	Step     string   `json:"step"`
	Title    string   `json:"title"`
	Complete bool     `json:"complete"`
	Missing  []string `json:"missing,omitempty"`
}

// Statuses reports every step's completeness for a draft
func Statuses(p model.Profile) []StepStatus {
	out := make([]StepStatus, 0, len(Steps))
	for _, s := range Steps {
		st := StepStatus{Step: s.String(), Title: s.Title(), Complete: true}
		var stepErr *StepError
		if err := CheckStep(s, p); errors.As(err, &stepErr) {
			st.Complete = false
			st.Missing = stepErr.Missing
		}
		out = append(out, st)
	}
	return out
}

// Collector walks a draft profile through the form steps. A step can only
// be left forward once its predicate holds.
type Collector struct {
	draft   model.Profile
	current Step
}

// NewCollector starts collection at the first step with an optional seed draft
func NewCollector(seed model.Profile) *Collector {
	return &Collector{draft: seed, current: StepPersonal}
}

// Current returns the step being filled in
func (c *Collector) Current() Step {
	return c.current
}

// Draft returns a pointer to the draft for in-place edits
func (c *Collector) Draft() *model.Profile {
	return &c.draft
}

// Last reports whether the current step is the final one
func (c *Collector) Last() bool {
	return c.current == StepFinancial
}

// Next validates the current step and advances. On the last step it only validates.
func (c *Collector) Next() error {
	if err := CheckStep(c.current, c.draft); err != nil {
		return err
	}
	if !c.Last() {
		c.current++
	}
	return nil
}

// Back returns to the previous step without validation
func (c *Collector) Back() {
	if c.current > StepPersonal {
		c.current--
	}
}

// Profile validates all steps and returns the finished profile with
// category-specific fields stripped when they do not apply
func (c *Collector) Profile() (model.Profile, error) {
	if err := CheckProfile(c.draft); err != nil {
		return model.Profile{}, err
	}
	return c.draft.Normalized(), nil
}
