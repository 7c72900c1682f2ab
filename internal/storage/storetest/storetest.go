// Package storetest holds behaviour tests shared by every ports.PipelineStore
// implementation.
package storetest

import (
	"context"
	"testing"

	"github.com/tjfontaine/pipeline-library/internal/core/domain"
	"github.com/tjfontaine/pipeline-library/internal/core/ports"
)

// Factory returns a fresh, empty store. The store is closed by the suite.
type Factory func(t *testing.T) ports.PipelineStore

// Run exercises the PipelineStore contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s ports.PipelineStore)
	}{
		{"CreateAndList", testCreateAndList},
		{"CreateDuplicate", testCreateDuplicate},
		{"UnknownPipeline", testUnknownPipeline},
		{"SaveAppendsRevision", testSaveAppendsRevision},
		{"LoadUnknownRevision", testLoadUnknownRevision},
		{"Delete", testDelete},
		{"Rules", testRules},
		{"RulesForUnknownPipeline", testRulesForUnknownPipeline},
		{"RulesForSavedRevision", testRulesForSavedRevision},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			tt.fn(t, s)
		})
	}
}

// RunOptimistic exercises uuid checks on a store built with optimistic
// concurrency enabled.
func RunOptimistic(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t)
	defer s.Close()

	created := mustCreate(t, s, "p1")

	saved, err := s.Save(ctx, "p1", "bob", "v1", "", created)
	if err != nil {
		t.Fatalf("Save() with current uuid error = %v", err)
	}

	// created.UUID is now stale
	_, err = s.Save(ctx, "p1", "bob", "v2", "", created)
	assertErrorType(t, err, domain.ErrorTypeConflict)

	if _, err := s.Save(ctx, "p1", "bob", "v2", "", saved); err != nil {
		t.Errorf("Save() with refreshed uuid error = %v", err)
	}

	rules, err := s.StoreRules(ctx, "p1", "0", &domain.RuleDefinitions{})
	if err != nil {
		t.Fatalf("StoreRules() first write error = %v", err)
	}
	stale := "not-the-uuid"
	_, err = s.StoreRules(ctx, "p1", "0", &domain.RuleDefinitions{UUID: &stale})
	assertErrorType(t, err, domain.ErrorTypeConflict)

	if _, err := s.StoreRules(ctx, "p1", "0", rules); err != nil {
		t.Errorf("StoreRules() with current uuid error = %v", err)
	}
}

func mustCreate(t *testing.T, s ports.PipelineStore, name string) *domain.PipelineConfiguration {
	t.Helper()
	cfg, err := s.Create(context.Background(), name, "desc of "+name, "alice")
	if err != nil {
		t.Fatalf("Create(%q) error = %v", name, err)
	}
	return cfg
}

func assertErrorType(t *testing.T, err error, want domain.ErrorType) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := domain.AsAPIError(err).Type; got != want {
		t.Errorf("error type = %v, want %v (err: %v)", got, want, err)
	}
}

func testCreateAndList(t *testing.T, s ports.PipelineStore) {
	ctx := context.Background()
	cfg := mustCreate(t, s, "beta")
	mustCreate(t, s, "alpha")

	if cfg.UUID == "" {
		t.Error("Create() returned empty uuid")
	}
	if cfg.SchemaVersion != domain.SchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", cfg.SchemaVersion, domain.SchemaVersion)
	}
	if cfg.Info == nil || cfg.Info.Name != "beta" {
		t.Errorf("Info = %+v, want name beta", cfg.Info)
	}

	list, err := s.ListPipelines(ctx)
	if err != nil {
		t.Fatalf("ListPipelines() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListPipelines() len = %d, want 2", len(list))
	}
	if list[0].Name != "alpha" || list[1].Name != "beta" {
		t.Errorf("ListPipelines() order = [%s %s], want [alpha beta]", list[0].Name, list[1].Name)
	}

	info, err := s.GetInfo(ctx, "beta")
	if err != nil {
		t.Fatalf("GetInfo() error = %v", err)
	}
	if info.Description != "desc of beta" {
		t.Errorf("Description = %q, want %q", info.Description, "desc of beta")
	}
	if info.Creator != "alice" || info.LastModifier != "alice" {
		t.Errorf("Creator/LastModifier = %q/%q, want alice", info.Creator, info.LastModifier)
	}
	if info.LastRev != domain.HeadRevision {
		t.Errorf("LastRev = %q, want %q", info.LastRev, domain.HeadRevision)
	}
}

func testCreateDuplicate(t *testing.T, s ports.PipelineStore) {
	mustCreate(t, s, "dup")
	_, err := s.Create(context.Background(), "dup", "", "alice")
	assertErrorType(t, err, domain.ErrorTypeConflict)
}

func testUnknownPipeline(t *testing.T, s ports.PipelineStore) {
	ctx := context.Background()

	_, err := s.GetInfo(ctx, "nope")
	assertErrorType(t, err, domain.ErrorTypeNotFound)

	_, err = s.GetHistory(ctx, "nope")
	assertErrorType(t, err, domain.ErrorTypeNotFound)

	_, err = s.Load(ctx, "nope", "0")
	assertErrorType(t, err, domain.ErrorTypeNotFound)

	_, err = s.Save(ctx, "nope", "bob", "0", "", &domain.PipelineConfiguration{})
	assertErrorType(t, err, domain.ErrorTypeNotFound)
}

func testSaveAppendsRevision(t *testing.T, s ports.PipelineStore) {
	ctx := context.Background()
	created := mustCreate(t, s, "p1")

	cfg := created.Clone()
	cfg.Description = "first save"
	cfg.Stages = []domain.StageConfiguration{{
		InstanceName: "src",
		Library:      "basic-lib",
		StageName:    "dev_source",
		StageVersion: "1",
		Configuration: []domain.ConfigValue{
			{Name: "rate", Value: float64(10)},
		},
		InputLanes:  []string{},
		OutputLanes: []string{"srcOut"},
	}}

	saved, err := s.Save(ctx, "p1", "bob", "v1", "tagged", cfg)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.UUID == created.UUID {
		t.Error("Save() did not refresh uuid")
	}
	if saved.Info == nil || saved.Info.LastModifier != "bob" || saved.Info.LastRev != "1" {
		t.Errorf("saved Info = %+v, want last modifier bob at rev 1", saved.Info)
	}

	head, err := s.Load(ctx, "p1", "0")
	if err != nil {
		t.Fatalf("Load(head) error = %v", err)
	}
	if head.Description != "first save" || len(head.Stages) != 1 {
		t.Errorf("Load(head) = %+v, want saved document", head)
	}
	if head.Stages[0].OutputLanes[0] != "srcOut" {
		t.Errorf("OutputLanes = %v, want [srcOut]", head.Stages[0].OutputLanes)
	}
	if v, _ := head.Stages[0].Config("rate"); v != float64(10) {
		t.Errorf("rate = %v (%T), want 10", v, v)
	}

	byRev, err := s.Load(ctx, "p1", "1")
	if err != nil {
		t.Fatalf("Load(rev 1) error = %v", err)
	}
	if byRev.UUID != saved.UUID {
		t.Errorf("Load(rev 1) uuid = %q, want %q", byRev.UUID, saved.UUID)
	}

	history, err := s.GetHistory(ctx, "p1")
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("GetHistory() len = %d, want 2", len(history))
	}
	if history[0].Rev != "0" || history[1].Rev != "1" {
		t.Errorf("history revs = [%s %s], want [0 1]", history[0].Rev, history[1].Rev)
	}
	if history[1].Tag != "v1" || history[1].TagDescription != "tagged" || history[1].User != "bob" {
		t.Errorf("history[1] = %+v", history[1])
	}

	info, err := s.GetInfo(ctx, "p1")
	if err != nil {
		t.Fatalf("GetInfo() error = %v", err)
	}
	if info.Description != "first save" || info.Creator != "alice" {
		t.Errorf("GetInfo() = %+v", info)
	}
}

func testLoadUnknownRevision(t *testing.T, s ports.PipelineStore) {
	mustCreate(t, s, "p1")
	_, err := s.Load(context.Background(), "p1", "42")
	assertErrorType(t, err, domain.ErrorTypeNotFound)
}

func testDelete(t *testing.T, s ports.PipelineStore) {
	ctx := context.Background()
	mustCreate(t, s, "gone")
	if _, err := s.Save(ctx, "gone", "bob", "v1", "", &domain.PipelineConfiguration{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := s.Delete(ctx, "gone"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_, err := s.GetInfo(ctx, "gone")
	assertErrorType(t, err, domain.ErrorTypeNotFound)

	err = s.Delete(ctx, "gone")
	assertErrorType(t, err, domain.ErrorTypeNotFound)

	// The name is free again.
	mustCreate(t, s, "gone")
	history, err := s.GetHistory(ctx, "gone")
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(history) != 1 {
		t.Errorf("history len after re-create = %d, want 1", len(history))
	}
}

func testRules(t *testing.T, s ports.PipelineStore) {
	ctx := context.Background()
	mustCreate(t, s, "p1")

	got, err := s.RetrieveRules(ctx, "p1", "0")
	if err != nil {
		t.Fatalf("RetrieveRules() error = %v", err)
	}
	if got != nil {
		t.Fatalf("RetrieveRules() before store = %+v, want nil", got)
	}

	rules := &domain.RuleDefinitions{
		MetricsRules: []domain.MetricsRule{{
			ID:            "m1",
			AlertText:     "too many",
			MetricID:      "pipeline.batchErrorRecords.meter",
			MetricType:    domain.MetricTypeMeter,
			MetricElement: domain.MeterCount,
			Condition:     "${value() > 100}",
		}},
		DataRules: []domain.DataRule{{
			ID:                 "d1",
			Label:              "nulls",
			Lane:               "srcOut",
			SamplingPercentage: 5,
			ThresholdType:      domain.ThresholdCount,
			ThresholdValue:     "10",
		}},
		EmailIDs:   []string{"ops@example.com"},
		RuleIssues: []domain.RuleIssue{{RuleID: "m1", Message: "transient"}},
	}

	stored, err := s.StoreRules(ctx, "p1", "", rules)
	if err != nil {
		t.Fatalf("StoreRules() error = %v", err)
	}
	if stored.UUID == nil || *stored.UUID == "" {
		t.Fatal("StoreRules() did not assign uuid")
	}
	if rules.UUID != nil {
		t.Error("StoreRules() mutated its input")
	}

	got, err = s.RetrieveRules(ctx, "p1", "")
	if err != nil {
		t.Fatalf("RetrieveRules() error = %v", err)
	}
	if got == nil {
		t.Fatal("RetrieveRules() = nil after store")
	}
	if *got.UUID != *stored.UUID {
		t.Errorf("uuid = %q, want %q", *got.UUID, *stored.UUID)
	}
	if len(got.MetricsRules) != 1 || got.MetricsRules[0].Condition != "${value() > 100}" {
		t.Errorf("MetricsRules = %+v", got.MetricsRules)
	}
	if len(got.DataRules) != 1 || got.DataRules[0].Lane != "srcOut" {
		t.Errorf("DataRules = %+v", got.DataRules)
	}
	if len(got.EmailIDs) != 1 {
		t.Errorf("EmailIDs = %v", got.EmailIDs)
	}
	if len(got.RuleIssues) != 0 {
		t.Errorf("RuleIssues persisted: %+v", got.RuleIssues)
	}

	other, err := s.RetrieveRules(ctx, "p1", "7")
	if err != nil || other != nil {
		t.Errorf("RetrieveRules(rev 7) = %+v, %v; want nil, nil", other, err)
	}

	if err := s.DeleteRules(ctx, "p1"); err != nil {
		t.Fatalf("DeleteRules() error = %v", err)
	}
	got, err = s.RetrieveRules(ctx, "p1", "0")
	if err != nil || got != nil {
		t.Errorf("RetrieveRules() after delete = %+v, %v; want nil, nil", got, err)
	}
}

func testRulesForSavedRevision(t *testing.T, s ports.PipelineStore) {
	ctx := context.Background()
	created := mustCreate(t, s, "p1")

	if _, err := s.Save(ctx, "p1", "bob", "v1", "", created); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.RetrieveRules(ctx, "p1", "1")
	if err != nil || got != nil {
		t.Fatalf("RetrieveRules(rev 1) without rules = %+v, %v; want nil, nil", got, err)
	}

	stored, err := s.StoreRules(ctx, "p1", "0", &domain.RuleDefinitions{
		EmailIDs: []string{"ops@example.com"},
	})
	if err != nil {
		t.Fatalf("StoreRules() error = %v", err)
	}

	got, err = s.RetrieveRules(ctx, "p1", "1")
	if err != nil {
		t.Fatalf("RetrieveRules(rev 1) error = %v", err)
	}
	if got == nil || *got.UUID != *stored.UUID {
		t.Fatalf("RetrieveRules(rev 1) = %+v, want head rules", got)
	}

	own, err := s.StoreRules(ctx, "p1", "1", &domain.RuleDefinitions{
		EmailIDs: []string{"rev1@example.com"},
	})
	if err != nil {
		t.Fatalf("StoreRules(rev 1) error = %v", err)
	}
	got, err = s.RetrieveRules(ctx, "p1", "1")
	if err != nil || got == nil || *got.UUID != *own.UUID {
		t.Errorf("RetrieveRules(rev 1) = %+v, %v; want its own document", got, err)
	}

	got, err = s.RetrieveRules(ctx, "p1", "9")
	if err != nil || got != nil {
		t.Errorf("RetrieveRules(rev 9) = %+v, %v; want nil, nil", got, err)
	}
}

func testRulesForUnknownPipeline(t *testing.T, s ports.PipelineStore) {
	ctx := context.Background()

	got, err := s.RetrieveRules(ctx, "nope", "0")
	if err != nil || got != nil {
		t.Errorf("RetrieveRules(unknown) = %+v, %v; want nil, nil", got, err)
	}

	_, err = s.StoreRules(ctx, "nope", "0", &domain.RuleDefinitions{})
	assertErrorType(t, err, domain.ErrorTypeNotFound)

	if err := s.DeleteRules(ctx, "nope"); err != nil {
		t.Errorf("DeleteRules(unknown) error = %v", err)
	}
}
