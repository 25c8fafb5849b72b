package provider

import (
	"context"
	"testing"

	"github.com/coreassist/coreassist/pkg/types"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry(nil)
	p, err := NewAnthropicProvider(context.Background(), &AnthropicConfig{APIKey: "k"})
	if err != nil {
		t.Fatalf("NewAnthropicProvider failed: %v", err)
	}
	r.Register(p)

	got, err := r.Get("anthropic")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID() != "anthropic" {
		t.Errorf("expected anthropic, got %s", got.ID())
	}

	if _, err := r.Get("nonexistent"); err == nil {
		t.Error("expected an error for an unregistered provider")
	}
}

func TestRegistry_GetModel(t *testing.T) {
	r := NewRegistry(nil)
	p, _ := NewAnthropicProvider(context.Background(), &AnthropicConfig{APIKey: "k"})
	r.Register(p)

	model, err := r.GetModel("anthropic", "claude-sonnet-4-20250514")
	if err != nil {
		t.Fatalf("GetModel failed: %v", err)
	}
	if model.ProviderID != "anthropic" {
		t.Errorf("unexpected provider ID on model: %s", model.ProviderID)
	}

	if _, err := r.GetModel("anthropic", "no-such-model"); err == nil {
		t.Error("expected an error for an unknown model")
	}
}

func TestRegistry_DefaultModel_FromConfig(t *testing.T) {
	r := NewRegistry(&types.Config{Model: "anthropic/claude-3-5-haiku-20241022"})
	p, _ := NewAnthropicProvider(context.Background(), &AnthropicConfig{APIKey: "k"})
	r.Register(p)

	model, err := r.DefaultModel()
	if err != nil {
		t.Fatalf("DefaultModel failed: %v", err)
	}
	if model.ID != "claude-3-5-haiku-20241022" {
		t.Errorf("expected configured default model, got %s", model.ID)
	}
}

func TestParseModelString(t *testing.T) {
	cases := []struct {
		in               string
		providerID, modelID string
	}{
		{"anthropic/claude-sonnet-4", "anthropic", "claude-sonnet-4"},
		{"gpt-4o", "", "gpt-4o"},
	}
	for _, c := range cases {
		gotProvider, gotModel := ParseModelString(c.in)
		if gotProvider != c.providerID || gotModel != c.modelID {
			t.Errorf("ParseModelString(%q) = (%q, %q), want (%q, %q)", c.in, gotProvider, gotModel, c.providerID, c.modelID)
		}
	}
}
