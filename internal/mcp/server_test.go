package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/physio-triage-server/internal/config"
	"github.com/physio-triage-server/internal/domain"
	"github.com/physio-triage-server/internal/feedback"
	"github.com/physio-triage-server/internal/logging"
	"github.com/physio-triage-server/internal/service"
	"github.com/physio-triage-server/internal/triage"
)

func newTestStore(t *testing.T) feedback.Store {
	t.Helper()
	store, err := feedback.NewSQLiteStore(filepath.Join(t.TempDir(), feedback.DatabaseFile))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestServer(t *testing.T, store feedback.Store) *Server {
	t.Helper()
	logger := logging.Discard()
	analysis := service.NewAnalysisService(logger, triage.New())

	var opts []ServerOption
	if store != nil {
		opts = append(opts, WithFeedback(store, filepath.Join(t.TempDir(), "exports")))
	}
	return NewServer(ServerInfo{Name: "physio-triage-test", Version: "v0.0.1"}, analysis, logger, opts...)
}

func connectInMemory(t *testing.T, ctx context.Context, srv *sdkmcp.Server) *sdkmcp.ClientSession {
	t.Helper()
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := srv.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callTool(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any, out any) {
	t.Helper()
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.False(t, res.IsError, "tool %s failed: %s", name, resultText(res))
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), out))
}

// callToolFails reports whether the call was rejected, either as a protocol error or a tool error.
func callToolFails(ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any) bool {
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	return err != nil || res.IsError
}

func resultText(res *sdkmcp.CallToolResult) string {
	for _, c := range res.Content {
		if tc, ok := c.(*sdkmcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func toolNames(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession) []string {
	t.Helper()
	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	return names
}

func TestServer_ToolDiscovery(t *testing.T) {
	ctx := context.Background()

	t.Run("with feedback", func(t *testing.T) {
		session := connectInMemory(t, ctx, newTestServer(t, newTestStore(t)).MCPServer())
		assert.ElementsMatch(t, []string{
			"analyze_screening",
			"list_modalities",
			"submit_gating_feedback",
			"query_gating_feedback",
			"export_gating_feedback",
			"import_gating_feedback",
		}, toolNames(t, ctx, session))
	})

	t.Run("analysis only", func(t *testing.T) {
		session := connectInMemory(t, ctx, newTestServer(t, nil).MCPServer())
		assert.ElementsMatch(t, []string{"analyze_screening", "list_modalities"}, toolNames(t, ctx, session))
	})
}

func TestServer_AnalyzeScreening(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, newTestServer(t, nil).MCPServer())

	var analysis domain.ClinicalAnalysis
	callTool(t, ctx, session, "analyze_screening", map[string]any{
		"cancerHistory":          true,
		"cardiovascularSymptoms": true,
		"consentGiven":           true,
	}, &analysis)

	assert.Equal(t, 20, analysis.RiskScore)
	assert.Equal(t, domain.DecisionDoNotUseUntilCleared, analysis.ModalityGating[domain.ModalityMENS].Decision)
	assert.Len(t, analysis.ModalityGating, len(domain.AllModalities()))

	var empty domain.ClinicalAnalysis
	callTool(t, ctx, session, "analyze_screening", map[string]any{}, &empty)
	assert.Equal(t, 0, empty.RiskScore)
	assert.Equal(t, domain.UrgencyLow, empty.UrgencyLevel)

	assert.True(t, callToolFails(ctx, session, "analyze_screening", map[string]any{"nightPain": "yes"}))
}

func TestServer_ListModalities(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, newTestServer(t, nil).MCPServer())

	var out listModalitiesOutput
	callTool(t, ctx, session, "list_modalities", map[string]any{}, &out)
	assert.Equal(t, len(domain.AllModalities()), out.Count)
	assert.Equal(t, domain.ModalityCatalogue(), out.Modalities)
}

func TestServer_FeedbackTools(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	session := connectInMemory(t, ctx, newTestServer(t, store).MCPServer())

	var submitted submitFeedbackOutput
	callTool(t, ctx, session, "submit_gating_feedback", map[string]any{
		"patient_id":         "p-1",
		"modality":           "MENS",
		"suggested_decision": "do_not_use_until_cleared",
		"clinician_decision": "allowed_with_precautions",
		"notes":              "Oncology clearance on file",
	}, &submitted)
	assert.True(t, submitted.Success)
	assert.False(t, submitted.Feedback.ClinicianAgreed)
	assert.Contains(t, submitted.Message, "overrode")

	var agreed submitFeedbackOutput
	callTool(t, ctx, session, "submit_gating_feedback", map[string]any{
		"patient_id":         "p-1",
		"modality":           "Laser_Therapy",
		"suggested_decision": "allowed",
		"clinician_decision": "allowed",
	}, &agreed)
	assert.True(t, agreed.Feedback.ClinicianAgreed)

	assert.True(t, callToolFails(ctx, session, "submit_gating_feedback", map[string]any{
		"patient_id":         "p-1",
		"modality":           "Cryotherapy",
		"suggested_decision": "allowed",
		"clinician_decision": "allowed",
	}))

	var byPatient queryFeedbackOutput
	callTool(t, ctx, session, "query_gating_feedback", map[string]any{"patient_id": "p-1", "include_summary": true}, &byPatient)
	assert.Equal(t, 2, byPatient.Count)
	assert.Len(t, byPatient.Summary, 2)

	var one queryFeedbackOutput
	callTool(t, ctx, session, "query_gating_feedback", map[string]any{"patient_id": "p-1", "modality": "MENS"}, &one)
	require.Equal(t, 1, one.Count)
	assert.Equal(t, "Oncology clearance on file", one.Feedback[0].Notes)

	var none queryFeedbackOutput
	callTool(t, ctx, session, "query_gating_feedback", map[string]any{"patient_id": "p-2", "modality": "MENS"}, &none)
	assert.Equal(t, 0, none.Count)

	var page queryFeedbackOutput
	callTool(t, ctx, session, "query_gating_feedback", map[string]any{"limit": 1}, &page)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 1, page.Count)

	assert.True(t, callToolFails(ctx, session, "query_gating_feedback", map[string]any{"modality": "MENS"}))

	var exported exportFeedbackOutput
	callTool(t, ctx, session, "export_gating_feedback", map[string]any{}, &exported)
	assert.Equal(t, int64(2), exported.Count)
	_, err := os.Stat(exported.FilePath)
	require.NoError(t, err)

	// Importing into a fresh store takes every entry; importing again skips them.
	other := newTestStore(t)
	otherServer := NewServer(ServerInfo{Name: "physio-triage-test", Version: "v0.0.1"},
		service.NewAnalysisService(logging.Discard(), triage.New()), logging.Discard(),
		WithFeedback(other, filepath.Dir(exported.FilePath)))
	otherSession := connectInMemory(t, ctx, otherServer.MCPServer())
	var imported importFeedbackOutput
	callTool(t, ctx, otherSession, "import_gating_feedback", map[string]any{"file_path": filepath.Base(exported.FilePath)}, &imported)
	assert.Equal(t, 2, imported.Imported)
	assert.Equal(t, 0, imported.Skipped)

	callTool(t, ctx, otherSession, "import_gating_feedback", map[string]any{"file_path": exported.FilePath}, &imported)
	assert.Equal(t, 0, imported.Imported)
	assert.Equal(t, 2, imported.Skipped)

	assert.True(t, callToolFails(ctx, otherSession, "import_gating_feedback", map[string]any{"file_path": "missing.json"}))
}

func TestServer_FeedbackFilesStayInExportDir(t *testing.T) {
	ctx := context.Background()
	exportDir := filepath.Join(t.TempDir(), "exports")
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "outside.json"), []byte("[]"), 0o600))

	server := NewServer(ServerInfo{Name: "physio-triage-test", Version: "v0.0.1"},
		service.NewAnalysisService(logging.Discard(), triage.New()), logging.Discard(),
		WithFeedback(newTestStore(t), exportDir))
	session := connectInMemory(t, ctx, server.MCPServer())

	rejected := []string{
		"../outside.json",
		"nested/../../outside.json",
		filepath.Join(outside, "outside.json"),
		exportDir,
	}
	for _, path := range rejected {
		t.Run(path, func(t *testing.T) {
			assert.True(t, callToolFails(ctx, session, "export_gating_feedback", map[string]any{"file_path": path}))
			assert.True(t, callToolFails(ctx, session, "import_gating_feedback", map[string]any{"file_path": path}))
		})
	}
	assert.NoFileExists(t, filepath.Join(filepath.Dir(exportDir), "outside.json"))

	var exported exportFeedbackOutput
	callTool(t, ctx, session, "export_gating_feedback", map[string]any{"file_path": "nested/custom.json"}, &exported)
	assert.Equal(t, filepath.Join(exportDir, "nested", "custom.json"), exported.FilePath)
	assert.FileExists(t, exported.FilePath)

	var imported importFeedbackOutput
	callTool(t, ctx, session, "import_gating_feedback", map[string]any{"file_path": exported.FilePath}, &imported)
	assert.Equal(t, 0, imported.Imported)
}

func TestServer_SubmitFeedbackRejectsUnknownDecision(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	session := connectInMemory(t, ctx, newTestServer(t, store).MCPServer())

	tests := []struct {
		name string
		args map[string]any
	}{
		{"unknown suggested decision", map[string]any{
			"patient_id": "p-1", "modality": "MENS",
			"suggested_decision": "maybe", "clinician_decision": "allowed",
		}},
		{"upper-case clinician decision", map[string]any{
			"patient_id": "p-1", "modality": "MENS",
			"suggested_decision": "allowed", "clinician_decision": "ALLOWED",
		}},
		{"unknown modality", map[string]any{
			"patient_id": "p-1", "modality": "Cryotherapy",
			"suggested_decision": "allowed", "clinician_decision": "allowed",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, callToolFails(ctx, session, "submit_gating_feedback", tt.args))
		})
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	var ok submitFeedbackOutput
	callTool(t, ctx, session, "submit_gating_feedback", map[string]any{
		"patient_id": "p-1", "modality": " MENS ",
		"suggested_decision": " allowed ", "clinician_decision": "allowed",
	}, &ok)
	assert.True(t, ok.Feedback.ClinicianAgreed)
}

func TestNewLiteServer(t *testing.T) {
	cfg := config.DefaultLiteConfig()
	cfg.DataDir = t.TempDir()

	server, err := NewLiteServer(cfg, WithLogger(logging.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Close() })

	assert.FileExists(t, cfg.FeedbackDBPath())
	assert.DirExists(t, cfg.ExportDir())
	assert.NotNil(t, server.GetFeedbackStore())
	assert.NotNil(t, server.GetCache())

	ctx := context.Background()
	session := connectInMemory(t, ctx, server.MCPServer())

	var analysis domain.ClinicalAnalysis
	callTool(t, ctx, session, "analyze_screening", map[string]any{"steroidUse": true}, &analysis)
	callTool(t, ctx, session, "analyze_screening", map[string]any{"steroidUse": true}, &analysis)
	assert.Equal(t, 5, analysis.RiskScore)
	assert.Equal(t, int64(1), server.GetCache().Stats().Hits)
}

func TestNewLiteServer_RejectsUnknownPolicy(t *testing.T) {
	cfg := config.DefaultLiteConfig()
	cfg.DataDir = t.TempDir()
	cfg.GatingPolicy = "strictest"

	_, err := NewLiteServer(cfg, WithLogger(logging.Discard()))
	assert.ErrorContains(t, err, "unknown gating policy")
}

func TestServer_RunRejectsUnknownTransport(t *testing.T) {
	srv := newTestServer(t, nil)
	err := srv.Run(context.Background(), "carrier-pigeon", "", 0)
	assert.ErrorContains(t, err, "unsupported transport type")
}
