package insights

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goption "google.golang.org/api/option"

	"fintrack/internal/core"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{name: "plain array", raw: `["a", "b"]`, want: []string{"a", "b"}},
		{name: "json fence", raw: "```json\n[\"a\"]\n```", want: []string{"a"}},
		{name: "bare fence", raw: "```\n[\"a\"]\n```", want: []string{"a"}},
		{name: "inline fence", raw: "```json[\"a\"]```", want: []string{"a"}},
		{name: "drops blanks", raw: `["a", "  ", "b"]`, want: []string{"a", "b"}},
		{name: "caps count", raw: `["1","2","3","4","5","6","7"]`, want: []string{"1", "2", "3", "4", "5"}},
		{name: "empty array", raw: `[]`, want: []string{}},
		{name: "empty reply", raw: "  ", wantErr: true},
		{name: "object", raw: `{"insights": ["a"]}`, wantErr: true},
		{name: "prose", raw: "Here are your insights!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrompt(t *testing.T) {
	s := core.PeriodSummary{
		TotalIncome:      core.Cents(500000),
		TotalExpenses:    core.Cents(300000),
		AvailableBalance: core.Cents(200000),
		SavingRate:       40,
		TopCategories:    []core.CategoryShare{{Name: "Rent", Amount: core.Cents(150000), Percent: 50}},
	}
	p := Prompt(s, "April 1 - 30, 2025")
	for _, want := range []string{"April 1 - 30, 2025", "5000.00", "3000.00", "40.00%", "Rent: 1500.00 (50%)"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestDisabled(t *testing.T) {
	if got := (Disabled{}).Generate(context.Background(), core.PeriodSummary{}, "x"); got != nil {
		t.Errorf("got %v", got)
	}
}

func fakeGemini(t *testing.T, status int, text string) *Gemini {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/publishers/google/models/test-model:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
			GenerationConfig struct {
				ResponseMimeType string `json:"responseMimeType"`
			} `json:"generationConfig"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.GenerationConfig.ResponseMimeType != "application/json" {
			t.Errorf("responseMimeType = %q", req.GenerationConfig.ResponseMimeType)
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 1 || req.Contents[0].Parts[0].Text == "" {
			t.Errorf("request carries no prompt: %+v", req.Contents)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			w.Write([]byte(`{"error": {"code": 500, "message": "boom"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{"text": text}}},
			}},
		})
	}))
	t.Cleanup(srv.Close)

	g, err := NewGemini(context.Background(), "test-key", "test-model",
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestGemini_Generate(t *testing.T) {
	g := fakeGemini(t, http.StatusOK, "```json\n[\"Spending fell.\", \"Rent dominates.\"]\n```")
	got := g.Generate(context.Background(), core.PeriodSummary{}, "April 1 - 30, 2025")
	if len(got) != 2 || got[0] != "Spending fell." {
		t.Errorf("got %q", got)
	}
}

func TestGemini_FailureDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name   string
		status int
		text   string
	}{
		{"server error", http.StatusInternalServerError, ""},
		{"malformed reply", http.StatusOK, "not json at all"},
		{"empty reply", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := fakeGemini(t, tt.status, tt.text)
			if got := g.Generate(context.Background(), core.PeriodSummary{}, "p"); len(got) != 0 {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestNewGemini_RequiresKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), " ", ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestModelName(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"gemini-2.0-flash", "publishers/google/models/gemini-2.0-flash"},
		{"projects/p/locations/us-central1/publishers/google/models/gemini-2.0-flash", "projects/p/locations/us-central1/publishers/google/models/gemini-2.0-flash"},
	}
	for _, tt := range tests {
		if got := modelName(tt.model); got != tt.want {
			t.Errorf("modelName(%q) = %q, want %q", tt.model, got, tt.want)
		}
	}
}
