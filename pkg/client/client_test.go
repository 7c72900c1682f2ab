package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"

	"gopkg.in/dnaeon/go-vcr.v2/recorder"

	"github.com/tjfontaine/pipeline-library/internal/adapters/auth/apikey"
	"github.com/tjfontaine/pipeline-library/internal/api/library"
	"github.com/tjfontaine/pipeline-library/internal/core/domain"
	"github.com/tjfontaine/pipeline-library/internal/pkg/config"
	"github.com/tjfontaine/pipeline-library/internal/server"
	"github.com/tjfontaine/pipeline-library/internal/stagelib"
	"github.com/tjfontaine/pipeline-library/internal/storage/memory"
	"github.com/tjfontaine/pipeline-library/internal/testutil"
)

type standalone struct{}

func (standalone) ExecutionMode() domain.ExecutionMode { return domain.ModeStandalone }
func (standalone) BaseURI() string                     { return "" }

// newServer runs the library resource behind API key auth: "admin-key" is
// an ADMIN, "guest-key" a GUEST.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	auth, err := apikey.NewProvider(config.AuthConfig{Users: []config.UserConfig{
		{Name: "admin", KeyHash: apikey.HashAPIKey("admin-key"), Roles: []string{"ADMIN"}},
		{Name: "gus", KeyHash: apikey.HashAPIKey("guest-key"), Roles: []string{"GUEST"}},
	}})
	if err != nil {
		t.Fatalf("apikey.NewProvider() error = %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stages, err := stagelib.New("", logger)
	if err != nil {
		t.Fatalf("stagelib.New() error = %v", err)
	}

	srv := server.New(server.Options{Auth: auth}, logger)
	srv.Protected(library.BasePath, library.NewHandler(library.Config{
		Store:   memory.New(),
		Stages:  stages,
		Runtime: standalone{},
		Logger:  logger,
	}))

	ts := httptest.NewServer(srv.Router)
	t.Cleanup(ts.Close)
	return ts
}

func samplePipeline() *Pipeline {
	return &Pipeline{
		SchemaVersion: 1,
		Description:   "ingest orders",
		Stages: []Stage{
			{
				InstanceName:  "source_01",
				Library:       stagelib.BasicLibrary,
				StageName:     stagelib.StageRawDataSource,
				StageVersion:  "1",
				Configuration: []ConfigValue{{Name: "rawData", Value: `{"order":1}`}},
				OutputLanes:   []string{"source_01_out"},
			},
			{
				InstanceName: "trash_01",
				Library:      stagelib.BasicLibrary,
				StageName:    stagelib.StageTrash,
				StageVersion: "1",
				InputLanes:   []string{"source_01_out"},
			},
		},
		ErrorStage: &Stage{
			InstanceName: "discard_01",
			Library:      stagelib.BasicLibrary,
			StageName:    stagelib.StageErrorTrash,
			StageVersion: "1",
		},
	}
}

// transcript captures what a client session observed, so a replayed
// session can be compared against the recorded one.
type transcript struct {
	CreatedValid   bool
	SavedValid     bool
	SavedRev       string
	Revisions      []string
	InfoCreator    string
	SeedRuleIDs    []string
	StoredRulesID  *string
	Listed         []string
	ExportedRules  int
	ExportedStages int
	MissingStatus  int
}

func runSession(t *testing.T, c *Client) transcript {
	t.Helper()
	ctx := context.Background()
	var tr transcript

	created, err := c.Create(ctx, "ingest", "orders")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	tr.CreatedValid = created.Valid

	saved, err := c.Save(ctx, "ingest", samplePipeline(), SaveOptions{Tag: "v1", TagDescription: "first cut"})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	tr.SavedValid = saved.Valid
	if saved.Info != nil {
		tr.SavedRev = saved.Info.LastRev
	}

	history, err := c.GetHistory(ctx, "ingest")
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	for _, h := range history {
		tr.Revisions = append(tr.Revisions, h.Rev)
	}

	info, err := c.GetInfo(ctx, "ingest")
	if err != nil {
		t.Fatalf("GetInfo() error = %v", err)
	}
	tr.InfoCreator = info.Creator

	rules, err := c.GetRules(ctx, "ingest", "")
	if err != nil {
		t.Fatalf("GetRules() error = %v", err)
	}
	if rules == nil {
		t.Fatal("GetRules() returned no seed rules")
	}
	for _, r := range rules.MetricsRules {
		tr.SeedRuleIDs = append(tr.SeedRuleIDs, r.ID)
	}

	rules.EmailIDs = []string{"ops@example.com"}
	stored, err := c.SaveRules(ctx, "ingest", "", rules)
	if err != nil {
		t.Fatalf("SaveRules() error = %v", err)
	}
	tr.StoredRulesID = stored.UUID

	infos, err := c.ListPipelines(ctx)
	if err != nil {
		t.Fatalf("ListPipelines() error = %v", err)
	}
	for _, i := range infos {
		tr.Listed = append(tr.Listed, i.Name)
	}

	export, err := c.Export(ctx, "ingest", "")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if export.PipelineConfig != nil {
		tr.ExportedStages = len(export.PipelineConfig.Stages)
	}
	if export.PipelineRules != nil {
		tr.ExportedRules = len(export.PipelineRules.MetricsRules)
	}

	if err := c.Delete(ctx, "ingest"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err = c.GetPipeline(ctx, "missing", "")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("GetPipeline(missing) error = %v, want *Error", err)
	}
	tr.MissingStatus = apiErr.StatusCode

	return tr
}

func TestClient_Session(t *testing.T) {
	ts := newServer(t)
	c := New(ts.URL, WithAPIKey("admin-key"))

	tr := runSession(t, c)

	if tr.CreatedValid {
		t.Error("an empty pipeline should not be valid")
	}
	if !tr.SavedValid {
		t.Error("saved pipeline should be valid")
	}
	if tr.SavedRev != "1" {
		t.Errorf("saved rev = %q, want 1", tr.SavedRev)
	}
	if !reflect.DeepEqual(tr.Revisions, []string{"0", "1"}) {
		t.Errorf("revisions = %v, want [0 1]", tr.Revisions)
	}
	if tr.InfoCreator != "admin" {
		t.Errorf("creator = %q, want admin", tr.InfoCreator)
	}
	wantIDs := []string{
		library.BadRecordsAlertID,
		library.StageErrorAlertID,
		library.IdleGaugeID,
		library.BatchTimeAlertID,
		library.MemoryLimitAlertID,
	}
	if !reflect.DeepEqual(tr.SeedRuleIDs, wantIDs) {
		t.Errorf("seed rule ids = %v, want %v", tr.SeedRuleIDs, wantIDs)
	}
	if tr.StoredRulesID == nil || *tr.StoredRulesID == "" {
		t.Error("stored rules should carry a uuid")
	}
	if !reflect.DeepEqual(tr.Listed, []string{"ingest"}) {
		t.Errorf("listed = %v", tr.Listed)
	}
	if tr.ExportedStages != 2 || tr.ExportedRules != 5 {
		t.Errorf("export = %d stages, %d rules", tr.ExportedStages, tr.ExportedRules)
	}
	if tr.MissingStatus != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", tr.MissingStatus)
	}
}

func TestClient_RecordAndReplay(t *testing.T) {
	ts := newServer(t)
	cassette := filepath.Join(t.TempDir(), "session")

	rec, stop := testutil.NewVCRRecorder(t, cassette, recorder.ModeRecording, http.DefaultTransport)
	recorded := runSession(t, New(ts.URL, WithAPIKey("admin-key"), WithHTTPClient(testutil.VCRHTTPClient(rec))))
	stop()

	// The cassette alone must be enough to answer the same session.
	ts.Close()

	rep, stop := testutil.NewVCRRecorder(t, cassette, recorder.ModeReplaying, nil)
	defer stop()
	replayed := runSession(t, New(ts.URL, WithHTTPClient(testutil.VCRHTTPClient(rep))))

	if !reflect.DeepEqual(recorded, replayed) {
		t.Errorf("replayed session differs:\nrecorded: %+v\nreplayed: %+v", recorded, replayed)
	}
}

func TestClient_Errors(t *testing.T) {
	ts := newServer(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		client     *Client
		call       func(c *Client) error
		wantStatus int
		wantType   string
	}{
		{
			name:       "no credentials",
			client:     New(ts.URL),
			call:       func(c *Client) error { _, err := c.ListPipelines(ctx); return err },
			wantStatus: http.StatusUnauthorized,
			wantType:   "authentication",
		},
		{
			name:       "guest create",
			client:     New(ts.URL, WithAPIKey("guest-key")),
			call:       func(c *Client) error { _, err := c.Create(ctx, "p", ""); return err },
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "duplicate create",
			client:     New(ts.URL, WithAPIKey("admin-key")),
			call: func(c *Client) error {
				if _, err := c.Create(ctx, "dup", ""); err != nil {
					return err
				}
				_, err := c.Create(ctx, "dup", "")
				return err
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "save without body",
			client:     New(ts.URL, WithAPIKey("admin-key")),
			call:       func(c *Client) error { _, err := c.Save(ctx, "dup", nil, SaveOptions{}); return err },
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(tt.client)
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *Error", err)
			}
			if apiErr.StatusCode != tt.wantStatus || apiErr.Status != tt.wantStatus {
				t.Errorf("status = %d/%d, want %d", apiErr.StatusCode, apiErr.Status, tt.wantStatus)
			}
			if tt.wantType != "" && apiErr.Type != tt.wantType {
				t.Errorf("type = %q, want %q", apiErr.Type, tt.wantType)
			}
			if apiErr.Error() == "" {
				t.Error("Error() should describe the failure")
			}
		})
	}
}

func TestClient_BearerToken(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	defer ts.Close()

	infos, err := New(ts.URL+"/", WithBearerToken("tok")).ListPipelines(context.Background())
	if err != nil {
		t.Fatalf("ListPipelines() error = %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("infos = %v", infos)
	}
	if got != "Bearer tok" {
		t.Errorf("Authorization = %q", got)
	}
}
