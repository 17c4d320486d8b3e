package main

import (
	"testing"
	"time"

	"mercator-hq/quaestor/pkg/config"
	"mercator-hq/quaestor/pkg/enforcement"
	"mercator-hq/quaestor/pkg/pricing"
)

func TestLedgerConfigFrom(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Budget.Monthly = 120
	cfg.Budget.DailySoft = 4
	cfg.Budget.DailyHard = 8
	off := false
	cfg.Budget.Rollover = &off
	cfg.Budget.MaxRolloverFraction = 0.25

	lc := ledgerConfigFrom(cfg)
	if lc.MonthlyBudget != pricing.FromEUR(120) {
		t.Errorf("MonthlyBudget = %v", lc.MonthlyBudget)
	}
	if lc.DailySoftLimit != pricing.FromEUR(4) || lc.DailyHardLimit != pricing.FromEUR(8) {
		t.Errorf("daily limits = %v/%v", lc.DailySoftLimit, lc.DailyHardLimit)
	}
	if lc.RolloverEnabled {
		t.Error("rollover should be disabled")
	}
	if lc.MaxRolloverFraction != 0.25 {
		t.Errorf("MaxRolloverFraction = %v", lc.MaxRolloverFraction)
	}
}

func TestRoutingConfigFrom(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Routing.ShortMessageWords = 5
	cfg.Routing.Keywords = []string{"deep dive"}
	cfg.Routing.ClassifierTimeout = 3 * time.Second
	off := false
	cfg.Routing.AutoClassify = &off

	rc := routingConfigFrom(cfg)
	if rc.ShortMessageWords != 5 {
		t.Errorf("ShortMessageWords = %d", rc.ShortMessageWords)
	}
	if len(rc.Keywords) != 1 || rc.Keywords[0] != "deep dive" {
		t.Errorf("Keywords = %v", rc.Keywords)
	}
	if rc.ClassifierModel != cfg.Models.Cheap {
		t.Errorf("ClassifierModel = %q, want the cheap tier model", rc.ClassifierModel)
	}
	if rc.EscalationTimeout != 3*time.Second {
		t.Errorf("EscalationTimeout = %v", rc.EscalationTimeout)
	}
	if !rc.DisableAutoClassify {
		t.Error("auto classify should be disabled")
	}
}

func TestEnforcementConfigFrom(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Budget.OnMonthlyExhausted = "reject"
	off := false
	cfg.Alerts.Daily80Percent = &off

	ec := enforcementConfigFrom(cfg)
	if ec.OnMonthlyExhausted != enforcement.ActionReject {
		t.Errorf("OnMonthlyExhausted = %v", ec.OnMonthlyExhausted)
	}
	if !ec.DisableDailyAlert {
		t.Error("daily alert should be disabled")
	}
	if ec.DisableMonthlyAlert {
		t.Error("monthly alert should stay enabled")
	}
}

func TestPricingOverridesFrom(t *testing.T) {
	cfg := config.DefaultConfig()
	if got := pricingOverridesFrom(cfg); got != nil {
		t.Errorf("no overrides should yield nil, got %v", got)
	}

	cfg.Pricing.Overrides = map[string]config.ModelPrice{
		"claude-sonnet-4-20250514": {InputPerMTok: 2.5, OutputPerMTok: 12},
	}
	got := pricingOverridesFrom(cfg)
	price, ok := got["claude-sonnet-4-20250514"]
	if !ok {
		t.Fatal("override missing from converted map")
	}
	if price.InputPerMTok != pricing.FromEUR(2.5) || price.OutputPerMTok != pricing.FromEUR(12) {
		t.Errorf("price = %+v", price)
	}
}

func TestModelMapFrom(t *testing.T) {
	cfg := config.DefaultConfig()

	m := modelMapFrom(cfg)
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	model, err := m.Model(pricing.TierPremium)
	if err != nil || model != cfg.Models.Premium {
		t.Errorf("Model(premium) = %q, %v", model, err)
	}
}
