package otel

import (
	"strings"
	"testing"
)

func TestSamplerDefaultsToAlwaysSample(t *testing.T) {
	for _, raw := range []string{"", "nope", "0", "1", "-2"} {
		if got := sampler(raw).Description(); got != "AlwaysOnSampler" {
			t.Fatalf("sampler(%q) = %q, want AlwaysOnSampler", raw, got)
		}
	}
}

func TestSamplerUsesRatio(t *testing.T) {
	got := sampler("0.25").Description()
	if !strings.Contains(got, "TraceIDRatioBased{0.25}") {
		t.Fatalf("sampler description = %q", got)
	}
}
