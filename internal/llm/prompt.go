package llm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/yojana/internal/model"
)

// SchemeFields is the field set the completion service is asked to return
var SchemeFields = []string{"name", "benefit", "description", "eligibility", "ministry", "deadline", "applicationUrl"}

// BuildPrompt constructs the recommendation prompt for a profile.
// Land and business lines are included only when those fields are set.
func BuildPrompt(p model.Profile) string {
	var b strings.Builder

	b.WriteString("Based on this user profile, recommend relevant Indian government schemes:\n")
	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	fmt.Fprintf(&b, "Category: %s\n", p.Category)
	fmt.Fprintf(&b, "Age: %d\n", p.Age)
	fmt.Fprintf(&b, "State: %s\n", p.State)
	if p.District != "" {
		fmt.Fprintf(&b, "District: %s\n", p.District)
	}
	if p.Subcategory != "" {
		fmt.Fprintf(&b, "Subcategory: %s\n", p.Subcategory)
	}
	fmt.Fprintf(&b, "Parent Income: ₹%s/year\n", formatAmount(p.ParentIncome))
	fmt.Fprintf(&b, "Caste: %s\n", p.Caste)
	fmt.Fprintf(&b, "Education: %s\n", p.Education)
	if p.LandOwnership != nil {
		fmt.Fprintf(&b, "Land: %s acres\n", formatAmount(*p.LandOwnership))
	}
	if p.BusinessType != nil && *p.BusinessType != "" {
		fmt.Fprintf(&b, "Business: %s\n", *p.BusinessType)
	}

	b.WriteString(`
Please provide 5-7 specific government schemes with:
1. Scheme name
2. Benefit amount
3. Eligibility criteria
4. Application process
5. Deadline (if any)

Format as JSON array with objects containing: `)
	b.WriteString(strings.Join(SchemeFields, ", "))
	b.WriteString("\nRespond with the JSON array only.")

	return b.String()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
