// Package catalog holds the static scheme list used when the completion
// service is unavailable or returns something unusable.
package catalog

import "github.com/ppiankov/yojana/internal/model"

var studentSchemes = []model.SchemeRecord{
	{
		Name:           "EWS Scholarship",
		Benefit:        "₹20,000/year",
		Description:    "Financial assistance for economically weaker sections",
		Eligibility:    "Family income < ₹8 lakhs",
		Ministry:       "Ministry of Education",
		Deadline:       "2024-03-15",
		ApplicationURL: "https://scholarships.gov.in",
	},
	{
		Name:           "Merit-cum-Means Scholarship",
		Benefit:        "₹12,000/year",
		Description:    "For meritorious students from minority communities",
		Eligibility:    "Minimum 50% marks, family income < ₹2.5 lakhs",
		Ministry:       "Ministry of Minority Affairs",
		Deadline:       "2024-02-28",
		ApplicationURL: "https://scholarships.gov.in",
	},
}

var farmerSchemes = []model.SchemeRecord{
	{
		Name:           "PM-KISAN",
		Benefit:        "₹6,000/year",
		Description:    "Direct income support to farmers",
		Eligibility:    "Small and marginal farmers",
		Ministry:       "Ministry of Agriculture",
		Deadline:       model.DeadlineOngoing,
		ApplicationURL: "https://pmkisan.gov.in",
	},
	{
		Name:           "Crop Insurance Scheme",
		Benefit:        "Up to ₹2,00,000",
		Description:    "Insurance coverage for crop losses",
		Eligibility:    "All farmers with cultivable land",
		Ministry:       "Ministry of Agriculture",
		Deadline:       "2024-04-30",
		ApplicationURL: "https://pmfby.gov.in",
	},
}

var womenSchemes = []model.SchemeRecord{
	{
		Name:           "Mahila Udyam Nidhi",
		Benefit:        "₹10,00,000 loan",
		Description:    "Women entrepreneurship development scheme",
		Eligibility:    "Women above 18 years",
		Ministry:       "Ministry of MSME",
		Deadline:       "2024-05-15",
		ApplicationURL: "https://udyamimitra.in",
	},
	{
		Name:           "Sukanya Samriddhi Yojana",
		Benefit:        "Tax benefits + High interest",
		Description:    "Savings scheme for girl child",
		Eligibility:    "Girl child below 10 years",
		Ministry:       "Ministry of Finance",
		Deadline:       model.DeadlineOngoing,
		ApplicationURL: "https://www.nsiindia.gov.in",
	},
}

// Lookup returns the fallback schemes for a category in catalog order.
// The returned slice is a copy. Unknown categories yield an empty, non-nil slice.
func Lookup(category model.Category) []model.SchemeRecord {
	var src []model.SchemeRecord
	switch category {
	case model.CategoryStudent:
		src = studentSchemes
	case model.CategoryFarmer:
		src = farmerSchemes
	case model.CategoryWomen:
		src = womenSchemes
	default:
		return []model.SchemeRecord{}
	}

	out := make([]model.SchemeRecord, len(src))
	copy(out, src)
	return out
}

// All returns the full catalog keyed by category
func All() map[model.Category][]model.SchemeRecord {
	all := make(map[model.Category][]model.SchemeRecord, len(model.Categories))
	for _, c := range model.Categories {
		all[c] = Lookup(c)
	}
	return all
}
