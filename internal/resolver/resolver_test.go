package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/ppiankov/yojana/internal/catalog"
	"github.com/ppiankov/yojana/internal/llm"
	"github.com/ppiankov/yojana/internal/metrics"
	"github.com/ppiankov/yojana/internal/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap/zaptest"
)

// MockProvider implements the llm.Provider interface for testing
type MockProvider struct {
	content string
	err     error
	calls   int
	last    llm.CompletionRequest
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	m.calls++
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return &llm.CompletionResponse{Content: m.content}, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool { return true }

func raviProfile() model.Profile {
	return model.Profile{
		Name:         "Ravi",
		Age:          40,
		State:        "Telangana",
		District:     "Warangal",
		Category:     model.CategoryFarmer,
		ParentIncome: 200000,
		Caste:        "OBC",
		Education:    "10th Pass",
	}
}

func aiSchemes(n int) []model.SchemeRecord {
	names := []string{"Kisan Credit Card", "Soil Health Card", "PM Krishi Sinchai Yojana", "e-NAM", "PM-KUSUM", "Rythu Bandhu", "Agri Infra Fund"}
	out := make([]model.SchemeRecord, n)
	for i := 0; i < n; i++ {
		out[i] = model.SchemeRecord{
			Name:           names[i],
			Benefit:        "Varies",
			Description:    "Support for farmers",
			Eligibility:    "Farmers",
			Ministry:       "Ministry of Agriculture",
			Deadline:       "Ongoing",
			ApplicationURL: "https://example.gov.in",
		}
	}
	return out
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestResolve_NotConfigured_IsDeterministic(t *testing.T) {
	r := FromConfig(llm.DefaultConfig(), zaptest.NewLogger(t))
	if r.Enabled() {
		t.Fatal("resolver without key should be disabled")
	}

	for _, c := range model.Categories {
		p := raviProfile()
		p.Category = c
		want := catalog.Lookup(c)
		for i := 0; i < 3; i++ {
			out := r.Decide(context.Background(), p)
			if out.Source != SourceFallback || out.Reason != ReasonNotConfigured {
				t.Errorf("%s: expected not_configured fallback, got %s/%s", c, out.Source, out.Reason)
			}
			if !reflect.DeepEqual(out.Schemes, want) {
				t.Errorf("%s: fallback differs from catalog: %+v", c, out.Schemes)
			}
		}
	}
}

func TestResolve_PlaceholderKeySkipsNetwork(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	cfg := llm.DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.APIKey = "your_nvidia_api_key_here"

	got := FromConfig(cfg, nil).Resolve(context.Background(), raviProfile())
	if len(got) != 2 || got[0].Name != "PM-KISAN" || got[1].Name != "Crop Insurance Scheme" {
		t.Errorf("expected farmer fallback, got %+v", got)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Errorf("expected no outbound request, got %d", hits)
	}
}

func TestResolve_UnknownCategory(t *testing.T) {
	p := raviProfile()
	p.Category = "pensioner"

	for _, r := range []*Resolver{
		New(nil, llm.DefaultConfig(), nil),
		New(&MockProvider{err: errors.New("boom")}, llm.DefaultConfig(), nil),
		New(&MockProvider{content: "not json"}, llm.DefaultConfig(), nil),
	} {
		got := r.Resolve(context.Background(), p)
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil result, got %+v", got)
		}
	}
}

func TestResolve_SuccessPassThrough(t *testing.T) {
	for n := 1; n <= 7; n++ {
		want := aiSchemes(n)
		mock := &MockProvider{content: mustJSON(t, want)}
		r := New(mock, llm.DefaultConfig(), zaptest.NewLogger(t))

		out := r.Decide(context.Background(), raviProfile())
		if out.Source != SourceAI {
			t.Fatalf("n=%d: expected ai source, got %s (%v)", n, out.Source, out.Err)
		}
		if !reflect.DeepEqual(out.Schemes, want) {
			t.Errorf("n=%d: schemes modified: %+v", n, out.Schemes)
		}
		if mock.calls != 1 {
			t.Errorf("n=%d: expected exactly one call, got %d", n, mock.calls)
		}
	}
}

func TestResolve_SendsFixedSamplingParams(t *testing.T) {
	mock := &MockProvider{content: "[]"}
	r := New(mock, llm.DefaultConfig(), nil)
	r.Resolve(context.Background(), raviProfile())

	if mock.last.Model != llm.DefaultModel || mock.last.Temperature != 0.6 || mock.last.TopP != 0.7 || mock.last.MaxTokens != 2048 {
		t.Errorf("unexpected request params: %+v", mock.last)
	}
	if mock.last.Prompt == "" {
		t.Error("expected prompt to be set")
	}
}

func TestResolve_MalformedJSONFallsBack(t *testing.T) {
	for _, content := range []string{
		"Here are some schemes: PM-KISAN, ...",
		`[{"name": "PM-KISAN"`,
		`{"schemes": []}`,
		`null`,
		`"a string"`,
	} {
		r := New(&MockProvider{content: content}, llm.DefaultConfig(), nil)
		out := r.Decide(context.Background(), raviProfile())
		if out.Source != SourceFallback || out.Reason != ReasonMalformed {
			t.Errorf("%q: expected malformed fallback, got %s/%s", content, out.Source, out.Reason)
		}
		if !reflect.DeepEqual(out.Schemes, catalog.Lookup(model.CategoryFarmer)) {
			t.Errorf("%q: expected farmer catalog, got %+v", content, out.Schemes)
		}
	}
}

func TestResolve_TransportErrorFallsBack(t *testing.T) {
	r := New(&MockProvider{err: errors.New("connection refused")}, llm.DefaultConfig(), nil)
	out := r.Decide(context.Background(), raviProfile())
	if out.Source != SourceFallback || out.Reason != ReasonTransport || out.Err == nil {
		t.Errorf("expected transport fallback with cause, got %+v", out)
	}
}

func TestResolve_CancelledIsNotTransportFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	transport := metrics.ResolutionsTotal.WithLabelValues(string(SourceFallback), string(ReasonTransport))
	before := testutil.ToFloat64(transport)

	r := New(&MockProvider{err: context.Canceled}, llm.DefaultConfig(), zaptest.NewLogger(t))
	out := r.Decide(ctx, raviProfile())
	if out.Source != SourceFallback || out.Reason != ReasonCancelled {
		t.Fatalf("expected cancelled fallback, got %s/%s", out.Source, out.Reason)
	}
	if len(out.Schemes) != 2 {
		t.Errorf("expected farmer catalog entry, got %d schemes", len(out.Schemes))
	}
	if got := testutil.ToFloat64(transport); got != before {
		t.Errorf("transport failures changed from %v to %v", before, got)
	}
}

func TestResolve_SchemaPolicy(t *testing.T) {
	good := aiSchemes(2)
	content := `[` +
		mustJSON(t, good[0]) + `,` +
		`{"name": "", "benefit": "x", "description": "x", "eligibility": "x", "ministry": "x", "deadline": "x", "applicationUrl": "x"},` +
		`{"name": "Half record"},` +
		`42,` +
		mustJSON(t, good[1]) +
		`]`

	out := New(&MockProvider{content: content}, llm.DefaultConfig(), nil).Decide(context.Background(), raviProfile())
	if out.Source != SourceAI {
		t.Fatalf("expected ai source, got %s", out.Source)
	}
	if !reflect.DeepEqual(out.Schemes, good) {
		t.Errorf("expected only conforming records, got %+v", out.Schemes)
	}
	if out.Dropped != 3 {
		t.Errorf("expected 3 dropped records, got %d", out.Dropped)
	}

	out = New(&MockProvider{content: `[{"title": "wrong shape"}]`}, llm.DefaultConfig(), nil).Decide(context.Background(), raviProfile())
	if out.Source != SourceFallback || out.Reason != ReasonSchema || out.Dropped != 1 {
		t.Errorf("expected schema fallback, got %+v", out)
	}

	out = New(&MockProvider{content: `[]`}, llm.DefaultConfig(), nil).Decide(context.Background(), raviProfile())
	if out.Source != SourceFallback || out.Reason != ReasonSchema {
		t.Errorf("expected schema fallback for empty array, got %s/%s", out.Source, out.Reason)
	}
}

func TestResolve_CodeFencedContent(t *testing.T) {
	want := aiSchemes(1)
	content := "```json\n" + mustJSON(t, want) + "\n```"
	out := New(&MockProvider{content: content}, llm.DefaultConfig(), nil).Decide(context.Background(), raviProfile())
	if out.Source != SourceAI || !reflect.DeepEqual(out.Schemes, want) {
		t.Errorf("expected fenced content to parse, got %+v", out)
	}
}

func newCompletionServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error": {"message": "upstream failure", "type": "server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: content}},
			},
		})
	}))
}

func TestResolve_HTTP(t *testing.T) {
	want := aiSchemes(5)

	tests := []struct {
		name    string
		status  int
		content string
		source  Source
		reason  Reason
	}{
		{"success", http.StatusOK, mustJSON(t, want), SourceAI, ReasonNone},
		{"server error", http.StatusInternalServerError, "", SourceFallback, ReasonTransport},
		{"rate limited", http.StatusTooManyRequests, "", SourceFallback, ReasonTransport},
		{"malformed content", http.StatusOK, "I cannot help with that.", SourceFallback, ReasonMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newCompletionServer(t, tt.status, tt.content)
			defer server.Close()

			cfg := llm.DefaultConfig()
			cfg.BaseURL = server.URL
			cfg.APIKey = "nvapi-test"

			r := FromConfig(cfg, zaptest.NewLogger(t))
			if !r.Enabled() || r.ProviderName() != "nvidia" {
				t.Fatalf("expected nvidia provider, got %q", r.ProviderName())
			}

			out := r.Decide(context.Background(), raviProfile())
			if out.Source != tt.source || out.Reason != tt.reason {
				t.Fatalf("expected %s/%s, got %s/%s (%v)", tt.source, tt.reason, out.Source, out.Reason, out.Err)
			}
			if tt.source == SourceAI && !reflect.DeepEqual(out.Schemes, want) {
				t.Errorf("unexpected schemes: %+v", out.Schemes)
			}
			if tt.source == SourceFallback && !reflect.DeepEqual(out.Schemes, catalog.Lookup(model.CategoryFarmer)) {
				t.Errorf("unexpected fallback: %+v", out.Schemes)
			}
		})
	}
}
