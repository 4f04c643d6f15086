package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/ppiankov/yojana/internal/flow"
	"github.com/ppiankov/yojana/internal/model"
	"github.com/ppiankov/yojana/internal/resolver"
	"gopkg.in/yaml.v3"
)

// Decider resolves a profile and reports how the result was obtained
type Decider interface {
	Decide(ctx context.Context, p model.Profile) resolver.Outcome
}

// ResolveJob resolves one profile from a batch
type ResolveJob struct {
	Index   int
	Profile model.Profile
	Decider Decider
}

// Execute validates the profile and resolves it
func (j *ResolveJob) Execute(ctx context.Context) Result {
	if err := flow.CheckProfile(j.Profile); err != nil {
		return &ResolveResult{Index: j.Index, Profile: j.Profile, Error: err}
	}

	p := j.Profile.Normalized()
	out := j.Decider.Decide(ctx, p)
	return &ResolveResult{Index: j.Index, Profile: p, Outcome: &out}
}

// ResolveResult is the outcome for one profile of a batch
type ResolveResult struct {
	Index   int
	Profile model.Profile
	Outcome *resolver.Outcome
	Error   error
}

// GetError returns the validation error, if any
func (r *ResolveResult) GetError() error {
	return r.Error
}

// BatchProcessor resolves many profiles concurrently
type BatchProcessor struct {
	decider     Decider
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(decider Decider, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		decider:     decider,
		concurrency: concurrency,
	}
}

// ProcessProfiles resolves profiles and returns one result per profile in input order
func (b *BatchProcessor) ProcessProfiles(ctx context.Context, profiles []model.Profile) []*ResolveResult {
	if len(profiles) == 0 {
		return []*ResolveResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, p := range profiles {
		if !pool.Submit(&ResolveJob{Index: i, Profile: p, Decider: b.decider}) {
			break
		}
	}

	results := pool.Wait()

	out := make([]*ResolveResult, len(results))
	for i, r := range results {
		out[i] = r.(*ResolveResult)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	return out
}

// ProcessFile reads profiles from a YAML file and resolves them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ResolveResult, error) {
	profiles, err := ReadProfilesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read profiles: %w", err)
	}

	return b.ProcessProfiles(ctx, profiles), nil
}

// profileFile is the document form of a batch file
type profileFile struct {
	Profiles []model.Profile `yaml:"profiles"`
}

// ReadProfilesFromFile reads profiles from a YAML file. The file is either a
// sequence of profiles or a mapping with a "profiles" key.
func ReadProfilesFromFile(filePath string) ([]model.Profile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return ParseProfiles(data)
}

// ParseProfiles decodes a YAML batch document
func ParseProfiles(data []byte) ([]model.Profile, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(node.Content) == 0 {
		return []model.Profile{}, nil
	}

	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var profiles []model.Profile
		if err := root.Decode(&profiles); err != nil {
			return nil, fmt.Errorf("decode profiles: %w", err)
		}
		return nonNil(profiles), nil
	case yaml.MappingNode:
		var doc profileFile
		if err := root.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode profiles: %w", err)
		}
		return nonNil(doc.Profiles), nil
	default:
		return nil, errors.New("expected a list of profiles or a profiles mapping")
	}
}

func nonNil(p []model.Profile) []model.Profile {
	if p == nil {
		return []model.Profile{}
	}
	return p
}

// Summary counts batch results by how they were resolved
type Summary struct {
	Total    int            `json:"total" yaml:"total"`
	Invalid  int            `json:"invalid" yaml:"invalid"`
	AI       int            `json:"ai" yaml:"ai"`
	Fallback int            `json:"fallback" yaml:"fallback"`
	Reasons  map[string]int `json:"reasons,omitempty" yaml:"reasons,omitempty"`
}

// Summarize builds a Summary over results
func Summarize(results []*ResolveResult) Summary {
	s := Summary{Total: len(results), Reasons: map[string]int{}}
	for _, r := range results {
		switch {
		case r.Error != nil || r.Outcome == nil:
			s.Invalid++
		case r.Outcome.Source == resolver.SourceAI:
			s.AI++
		default:
			s.Fallback++
			s.Reasons[string(r.Outcome.Reason)]++
		}
	}
	return s
}
