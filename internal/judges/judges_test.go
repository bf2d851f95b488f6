package judges_test

import (
	"context"
	"strings"
	"testing"

	"github.com/copperline/arbiter/internal/judges"
	"github.com/copperline/arbiter/internal/panel"
)

func TestCompleteness(t *testing.T) {
	judge := judges.Completeness{}

	if judge.Name() != "completeness" || !judge.Critical() {
		t.Fatal("completeness must be a critical judge")
	}

	tests := []struct {
		name       string
		input      panel.Input
		wantPass   bool
		wantReason string
	}{
		{
			name: "all present",
			input: panel.Input{
				Reason: "goods_not_received",
				Evidence: map[string]string{
					"transaction_record": "txn 123",
					"shipping_proof":     "tracking 456",
				},
			},
			wantPass:   true,
			wantReason: "required evidence kinds present",
		},
		{
			name: "one missing",
			input: panel.Input{
				Reason: "goods_not_received",
				Evidence: map[string]string{
					"transaction_record": "txn 123",
				},
			},
			wantPass:   false,
			wantReason: "missing required evidence: shipping_proof",
		},
		{
			name: "blank value counts as missing",
			input: panel.Input{
				Reason: "goods_not_received",
				Evidence: map[string]string{
					"transaction_record": "txn 123",
					"shipping_proof":     "   ",
				},
			},
			wantPass:   false,
			wantReason: "missing required evidence: shipping_proof",
		},
		{
			name: "unknown reason needs only the transaction record",
			input: panel.Input{
				Reason: "novel_dispute_type",
				Evidence: map[string]string{
					"transaction_record": "txn 123",
				},
			},
			wantPass: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := judge.Score(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("score failed: %v", err)
			}
			if verdict.Pass != tt.wantPass {
				t.Errorf("Pass = %v, want %v (%s)", verdict.Pass, tt.wantPass, verdict.Reason)
			}
			if tt.wantReason != "" && !strings.Contains(verdict.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want it to contain %q", verdict.Reason, tt.wantReason)
			}
		})
	}
}

func TestConsistency(t *testing.T) {
	judge := judges.Consistency{}

	if judge.Name() != "consistency" || !judge.Critical() {
		t.Fatal("consistency must be a critical judge")
	}

	tests := []struct {
		name       string
		input      panel.Input
		wantPass   bool
		wantReason string
	}{
		{
			name:     "clean case",
			input:    panel.Input{Amount: 50_00, Currency: "USD"},
			wantPass: true,
		},
		{
			name:       "zero amount",
			input:      panel.Input{Amount: 0, Currency: "USD"},
			wantPass:   false,
			wantReason: "amount must be positive",
		},
		{
			name:       "over ceiling",
			input:      panel.Input{Amount: 200_000_00, Currency: "USD"},
			wantPass:   false,
			wantReason: "exceeds network ceiling",
		},
		{
			name:       "unsupported currency",
			input:      panel.Input{Amount: 50_00, Currency: "XPF"},
			wantPass:   false,
			wantReason: "unsupported currency",
		},
		{
			name:     "lowercase currency accepted",
			input:    panel.Input{Amount: 50_00, Currency: "eur"},
			wantPass: true,
		},
		{
			name: "transaction record agrees",
			input: panel.Input{
				Amount:   50_00,
				Currency: "USD",
				Evidence: map[string]string{"transaction_record": "merchant=acme amount=5000 captured"},
			},
			wantPass: true,
		},
		{
			name: "transaction record disagrees",
			input: panel.Input{
				Amount:   50_00,
				Currency: "USD",
				Evidence: map[string]string{"transaction_record": "merchant=acme amount=9999 captured"},
			},
			wantPass:   false,
			wantReason: "disagrees with transaction record",
		},
		{
			name: "trailing punctuation on declared amount",
			input: panel.Input{
				Amount:   50_00,
				Currency: "USD",
				Evidence: map[string]string{"transaction_record": "amount=5000, settled"},
			},
			wantPass: true,
		},
		{
			name: "unparseable declared amount ignored",
			input: panel.Input{
				Amount:   50_00,
				Currency: "USD",
				Evidence: map[string]string{"transaction_record": "amount=unknown"},
			},
			wantPass: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := judge.Score(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("score failed: %v", err)
			}
			if verdict.Pass != tt.wantPass {
				t.Errorf("Pass = %v, want %v (%s)", verdict.Pass, tt.wantPass, verdict.Reason)
			}
			if tt.wantReason != "" && !strings.Contains(verdict.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want it to contain %q", verdict.Reason, tt.wantReason)
			}
		})
	}
}

func TestRegister(t *testing.T) {
	cfg := &judges.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize config: %v", err)
	}

	registry := panel.NewRegistry()
	judges.Register(cfg, registry)

	names := make(map[string]bool)
	for _, j := range registry.Judges() {
		names[j.Name()] = true
	}
	if !names["completeness"] || !names["consistency"] {
		t.Errorf("registered judges = %v, want the two rule-based checks", names)
	}
	if names["narrative"] {
		t.Error("narrative judge registered without being enabled")
	}
}
