// Package render formats a resolved result set for terminals, Markdown
// documents and machine consumers.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/yojana/internal/model"
)

// Result is a profile together with the schemes resolved for it
type Result struct {
	Profile model.Profile        `json:"profile"`
	Schemes []model.SchemeRecord `json:"schemes"`
	Source  string               `json:"source,omitempty"`
	Reason  string               `json:"reason,omitempty"`
}

// Lakhs formats a rupee amount in lakhs with one decimal, e.g. ₹2.0L
func Lakhs(rupees float64) string {
	return fmt.Sprintf("₹%.1fL", rupees/100000)
}

// Summary is the one-line profile summary shown above the results
func Summary(p model.Profile) string {
	return fmt.Sprintf("%s · %s · %s · %s", p.Name, p.Category.Label(), p.State, Lakhs(p.ParentIncome))
}

// Text writes a plain terminal listing
func Text(w io.Writer, r *Result) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Perfect matches for %s\n", Summary(r.Profile))
	if r.Source != "" {
		source := r.Source
		if r.Reason != "" {
			source += " (" + r.Reason + ")"
		}
		fmt.Fprintf(&b, "Source: %s\n", source)
	}
	b.WriteString("\n")

	if len(r.Schemes) == 0 {
		b.WriteString("No schemes found for this profile.\n")
	}

	for i, s := range r.Schemes {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s.Name)
		fmt.Fprintf(&b, "   Benefit:     %s\n", s.Benefit)
		if s.Description != "" {
			fmt.Fprintf(&b, "   %s\n", s.Description)
		}
		fmt.Fprintf(&b, "   Eligibility: %s\n", s.Eligibility)
		fmt.Fprintf(&b, "   Ministry:    %s\n", s.Ministry)
		fmt.Fprintf(&b, "   Deadline:    %s\n", s.Deadline)
		if s.ApplicationURL != "" {
			fmt.Fprintf(&b, "   Apply:       %s\n", s.ApplicationURL)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Markdown writes the result as a Markdown document
func Markdown(w io.Writer, r *Result) error {
	var b strings.Builder

	b.WriteString("# Recommended Schemes\n\n")
	b.WriteString("| Name | Category | Location | Income |\n")
	b.WriteString("|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %s | %s | %s | %s |\n\n",
		escapeCell(r.Profile.Name), r.Profile.Category.Label(), escapeCell(r.Profile.State), Lakhs(r.Profile.ParentIncome))

	if r.Source != "" {
		fmt.Fprintf(&b, "_Source: %s", r.Source)
		if r.Reason != "" {
			fmt.Fprintf(&b, " (%s)", r.Reason)
		}
		b.WriteString("_\n\n")
	}

	if len(r.Schemes) == 0 {
		b.WriteString("No schemes found for this profile.\n")
	}

	for _, s := range r.Schemes {
		fmt.Fprintf(&b, "## %s\n\n", s.Name)
		fmt.Fprintf(&b, "**Benefit:** %s\n\n", s.Benefit)
		if s.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", s.Description)
		}
		fmt.Fprintf(&b, "- **Eligibility:** %s\n", s.Eligibility)
		fmt.Fprintf(&b, "- **Ministry:** %s\n", s.Ministry)
		fmt.Fprintf(&b, "- **Deadline:** %s\n", s.Deadline)
		if s.ApplicationURL != "" {
			fmt.Fprintf(&b, "- [Apply Now](%s)\n", s.ApplicationURL)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// JSON writes the result as indented JSON
func JSON(w io.Writer, r *Result) error {
	out := *r
	if out.Schemes == nil {
		out.Schemes = []model.SchemeRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}

// ToFile renders r with fn into path, or to stdout when path is "-"
func ToFile(path string, r *Result, fn func(io.Writer, *Result) error) error {
	if path == "-" {
		return fn(os.Stdout, r)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := fn(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
