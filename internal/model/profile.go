package model

import "strings"

// Category is the discriminant used by the fallback catalog and by the
// category-specific optional profile fields
type Category string

const (
	CategoryStudent Category = "student"
	CategoryFarmer  Category = "farmer"
	CategoryWomen   Category = "women"
)

// Categories lists the categories offered by the onboarding form, in display order
var Categories = []Category{CategoryStudent, CategoryFarmer, CategoryWomen}

// Known reports whether c is one of the three supported categories
func (c Category) Known() bool {
	switch c {
	case CategoryStudent, CategoryFarmer, CategoryWomen:
		return true
	default:
		return false
	}
}

// Label returns the display label for the category
func (c Category) Label() string {
	switch c {
	case CategoryStudent:
		return "Student"
	case CategoryFarmer:
		return "Farmer"
	case CategoryWomen:
		return "Women"
	default:
		return string(c)
	}
}

// ParseCategory normalizes user input ("Farmer", " women ") into a Category.
// Unknown values are returned as-is so that callers can still observe them.
func ParseCategory(s string) Category {
	return Category(strings.ToLower(strings.TrimSpace(s)))
}

// Profile is the self-reported attributes of one user for one session.
// It is fully populated before resolution and not modified afterwards.
type Profile struct {
	Name         string   `json:"name" yaml:"name"`
	Age          int      `json:"age" yaml:"age"`
	State        string   `json:"state" yaml:"state"`
	District     string   `json:"district" yaml:"district"`
	Category     Category `json:"category" yaml:"category"`
	Subcategory  string   `json:"subcategory,omitempty" yaml:"subcategory,omitempty"`
	ParentIncome float64  `json:"parentIncome" yaml:"parentIncome"`
	Caste        string   `json:"caste" yaml:"caste"`
	Education    string   `json:"education" yaml:"education"`

	// LandOwnership is in acres and only meaningful for farmers
	LandOwnership *float64 `json:"landOwnership,omitempty" yaml:"landOwnership,omitempty"`

	// BusinessType is only meaningful for the women category
	BusinessType *string `json:"businessType,omitempty" yaml:"businessType,omitempty"`

	// MaritalStatus is collected by some front ends but unused by resolution
	MaritalStatus *string `json:"maritalStatus,omitempty" yaml:"maritalStatus,omitempty"`
}

// Normalized returns a copy with the optional fields that do not belong to
// the profile's category removed
func (p Profile) Normalized() Profile {
	out := p
	if out.Category != CategoryFarmer {
		out.LandOwnership = nil
	}
	if out.Category != CategoryWomen {
		out.BusinessType = nil
	}
	return out
}

// Fixed option sets offered by the onboarding form.
var (
	Castes = []string{"General", "OBC", "SC", "ST", "EWS"}

	// EducationLevels is ordered from lowest to highest
	EducationLevels = []string{
		"Below 10th",
		"10th Pass",
		"12th Pass",
		"Graduate",
		"Post Graduate",
		"Professional Degree",
	}

	States = []string{
		"Andhra Pradesh", "Telangana", "Karnataka", "Tamil Nadu", "Kerala",
		"Maharashtra", "Gujarat", "Rajasthan", "Uttar Pradesh", "Bihar",
	}
)

// IncomeBracket is one selectable annual income option
type IncomeBracket struct {
	Label string  `json:"label" yaml:"label"`
	Value float64 `json:"value" yaml:"value"`
}

// IncomeBrackets are the annual income choices, values in rupees
var IncomeBrackets = []IncomeBracket{
	{Label: "Below ₹1 Lakh", Value: 100000},
	{Label: "₹1-2 Lakhs", Value: 200000},
	{Label: "₹2-5 Lakhs", Value: 500000},
	{Label: "₹5-8 Lakhs", Value: 800000},
	{Label: "₹8-10 Lakhs", Value: 1000000},
	{Label: "Above ₹10 Lakhs", Value: 1500000},
}

// EducationRank returns the position of level in EducationLevels, or -1
// for free-text values
func EducationRank(level string) int {
	for i, l := range EducationLevels {
		if strings.EqualFold(l, strings.TrimSpace(level)) {
			return i
		}
	}
	return -1
}
