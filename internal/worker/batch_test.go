package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/yojana/internal/catalog"
	"github.com/ppiankov/yojana/internal/flow"
	"github.com/ppiankov/yojana/internal/llm"
	"github.com/ppiankov/yojana/internal/model"
	"github.com/ppiankov/yojana/internal/resolver"
)

// MockDecider implements Decider
type MockDecider struct {
	calls int32
}

func (m *MockDecider) Decide(ctx context.Context, p model.Profile) resolver.Outcome {
	atomic.AddInt32(&m.calls, 1)
	time.Sleep(10 * time.Millisecond) // Simulate work
	if p.Category == model.CategoryStudent {
		return resolver.Outcome{
			Schemes: []model.SchemeRecord{{Name: "AI Scholarship"}},
			Source:  resolver.SourceAI,
		}
	}
	return resolver.Outcome{
		Schemes: catalog.Lookup(p.Category),
		Source:  resolver.SourceFallback,
		Reason:  resolver.ReasonTransport,
		Err:     errors.New("connection refused"),
	}
}

func profile(name string, c model.Category) model.Profile {
	return model.Profile{
		Name: name, Age: 20, State: "Kerala", District: "Kochi", Category: c,
		ParentIncome: 100000, Caste: "General", Education: "12th Pass",
	}
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_ProcessProfiles(t *testing.T) {
	decider := &MockDecider{}
	processor := NewBatchProcessor(decider, 2)

	profiles := []model.Profile{
		profile("Asha", model.CategoryStudent),
		profile("Ravi", model.CategoryFarmer),
		profile("Meena", model.CategoryWomen),
	}

	results := processor.ProcessProfiles(context.Background(), profiles)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, res := range results {
		if res.Index != i {
			t.Errorf("expected results in input order, got index %d at %d", res.Index, i)
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Profile.Name, res.Error)
		}
		if res.Outcome == nil || len(res.Outcome.Schemes) == 0 {
			t.Errorf("expected schemes for %s", res.Profile.Name)
		}
	}

	if results[0].Outcome.Source != resolver.SourceAI {
		t.Errorf("expected ai source for student, got %s", results[0].Outcome.Source)
	}
	if results[1].Outcome.Schemes[0].Name != "PM-KISAN" {
		t.Errorf("expected fallback catalog for farmer, got %+v", results[1].Outcome.Schemes)
	}
	if atomic.LoadInt32(&decider.calls) != 3 {
		t.Errorf("expected 3 decisions, got %d", decider.calls)
	}
}

func TestBatchProcessor_InvalidProfile(t *testing.T) {
	decider := &MockDecider{}
	processor := NewBatchProcessor(decider, 2)

	bad := profile("", model.CategoryFarmer)
	results := processor.ProcessProfiles(context.Background(), []model.Profile{bad})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !errors.Is(results[0].GetError(), flow.ErrIncompleteStep) {
		t.Errorf("expected incomplete step error, got %v", results[0].Error)
	}
	if results[0].Outcome != nil {
		t.Error("expected no outcome for invalid profile")
	}
	if atomic.LoadInt32(&decider.calls) != 0 {
		t.Error("invalid profile must not be resolved")
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(&MockDecider{}, 2)

	results := processor.ProcessProfiles(context.Background(), []model.Profile{})
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_RealResolverFallback(t *testing.T) {
	r := resolver.FromConfig(llm.DefaultConfig(), nil)
	processor := NewBatchProcessor(r, 4)

	results := processor.ProcessProfiles(context.Background(), []model.Profile{
		profile("Ravi", model.CategoryFarmer),
		profile("Meena", model.CategoryWomen),
	})

	summary := Summarize(results)
	if summary.Fallback != 2 || summary.Reasons[string(resolver.ReasonNotConfigured)] != 2 {
		t.Errorf("expected two not_configured fallbacks, got %+v", summary)
	}
}

func TestParseProfiles(t *testing.T) {
	seq := `
- name: Ravi
  age: 40
  state: Telangana
  district: Warangal
  category: farmer
  parentIncome: 200000
  caste: OBC
  education: 10th Pass
  landOwnership: 2.5
`
	profiles, err := ParseProfiles([]byte(seq))
	if err != nil {
		t.Fatalf("ParseProfiles failed: %v", err)
	}
	if len(profiles) != 1 || profiles[0].Name != "Ravi" || profiles[0].Category != model.CategoryFarmer {
		t.Fatalf("unexpected profiles: %+v", profiles)
	}
	if profiles[0].LandOwnership == nil || *profiles[0].LandOwnership != 2.5 {
		t.Errorf("expected land ownership 2.5, got %v", profiles[0].LandOwnership)
	}

	mapping := `
profiles:
  - name: Asha
    category: student
  - name: Meena
    category: women
`
	profiles, err = ParseProfiles([]byte(mapping))
	if err != nil {
		t.Fatalf("ParseProfiles failed: %v", err)
	}
	if len(profiles) != 2 || profiles[1].Name != "Meena" {
		t.Errorf("unexpected profiles: %+v", profiles)
	}
}

func TestParseProfiles_Invalid(t *testing.T) {
	if _, err := ParseProfiles([]byte("just a string")); err == nil {
		t.Error("expected error for scalar document")
	}
	if _, err := ParseProfiles([]byte("- name: [unclosed")); err == nil {
		t.Error("expected error for malformed yaml")
	}

	profiles, err := ParseProfiles([]byte(""))
	if err != nil || len(profiles) != 0 {
		t.Errorf("expected empty result for empty file, got %v, %v", profiles, err)
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeTemp(t, `
- {name: Ravi, age: 40, state: Telangana, district: Warangal, category: farmer, parentIncome: 200000, caste: OBC, education: 10th Pass}
- {name: Asha, age: 19, state: Kerala, district: Kochi, category: student, parentIncome: 100000, caste: SC, education: 12th Pass}
`)

	processor := NewBatchProcessor(&MockDecider{}, 2)

	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	processor := NewBatchProcessor(&MockDecider{}, 2)

	_, err := processor.ProcessFile(context.Background(), "no_such_file.yaml")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestSummarize(t *testing.T) {
	results := []*ResolveResult{
		{Error: errors.New("bad")},
		{Outcome: &resolver.Outcome{Source: resolver.SourceAI}},
		{Outcome: &resolver.Outcome{Source: resolver.SourceFallback, Reason: resolver.ReasonSchema}},
		{Outcome: &resolver.Outcome{Source: resolver.SourceFallback, Reason: resolver.ReasonSchema}},
	}

	s := Summarize(results)
	if s.Total != 4 || s.Invalid != 1 || s.AI != 1 || s.Fallback != 2 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if s.Reasons["schema"] != 2 {
		t.Errorf("expected 2 schema fallbacks, got %d", s.Reasons["schema"])
	}
}

func TestResolveResult_GetError(t *testing.T) {
	r1 := &ResolveResult{}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("invalid")
	r2 := &ResolveResult{Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}
