package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/JaeTrim/Traffic-AI/internal/apperrors"
	"github.com/JaeTrim/Traffic-AI/internal/config"
	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/JaeTrim/Traffic-AI/internal/validation"
)

func csvRequest(body string, logTransform bool) *models.CSVPredictionRequest {
	return &models.CSVPredictionRequest{
		CollectionID:      collectionID,
		ModelID:           modelID,
		UserID:            ownerID,
		FileName:          "upload.csv",
		CSV:               strings.NewReader(body),
		ApplyLogTransform: logTransform,
	}
}

func TestPredictCSV_ReordersColumnsForInference(t *testing.T) {
	f := newFixture(t.TempDir())
	f.seed()
	f.inference.PredictBatchFunc = func(ctx context.Context, artifact string, rows []models.OrderedRow, applyLog bool) ([]float64, error) {
		return []float64{17.5}, nil
	}

	result, err := f.svc.Prediction.PredictCSV(context.Background(), csvRequest("lanes,speed\n3,55\n", true))
	if err != nil {
		t.Fatalf("PredictCSV failed: %v", err)
	}

	if len(f.inference.BatchCalls) != 1 {
		t.Fatalf("Expected exactly one inference call, got %d", len(f.inference.BatchCalls))
	}
	call := f.inference.BatchCalls[0]
	if call.Artifact != "speed_v1.keras" {
		t.Errorf("Expected artifact file name, got %q", call.Artifact)
	}
	if !call.ApplyLog {
		t.Error("Expected log transform flag to be forwarded")
	}
	raw, _ := json.Marshal(call.Rows)
	if string(raw) != `[{"speed":"55","lanes":"3"}]` {
		t.Errorf("Expected rows in model order, got %s", raw)
	}

	if result.Message != "CSV predictions saved successfully" {
		t.Errorf("Unexpected message: %s", result.Message)
	}
	stored := f.storedPredictions()
	if len(stored) != 1 {
		t.Fatalf("Expected 1 stored prediction, got %d", len(stored))
	}
	p := stored[0]
	if p.SourceType != models.SourceCSV || p.Result != 17.5 || p.ModelID != modelID {
		t.Errorf("Unexpected prediction: %+v", p)
	}
	// Stored inputs keep the source column order
	if p.Inputs[0].Key != "lanes" || p.Inputs[0].Value != "3" || p.Inputs[1].Key != "speed" {
		t.Errorf("Expected original column order, got %+v", p.Inputs)
	}
}

func TestPredictCSV_StoresRowsInSourceOrder(t *testing.T) {
	f := newFixture(t.TempDir())
	f.seed()

	body := "speed,lanes\n10,1\n20,2\n30,3\n40,4\n"
	if _, err := f.svc.Prediction.PredictCSV(context.Background(), csvRequest(body, false)); err != nil {
		t.Fatalf("PredictCSV failed: %v", err)
	}

	stored := f.storedPredictions()
	if len(stored) != 4 {
		t.Fatalf("Expected 4 predictions, got %d", len(stored))
	}
	for i, p := range stored {
		want := fmt.Sprintf("%d0", i+1)
		if p.Inputs[0].Value != want {
			t.Errorf("Row %d: expected speed %s, got %v", i, want, p.Inputs[0].Value)
		}
		if p.Result != float64(i+1) {
			t.Errorf("Row %d: expected result %d, got %v", i, i+1, p.Result)
		}
	}
}

func TestPredictCSV_KeepsUntrimmedInputs(t *testing.T) {
	f := newFixture(t.TempDir())
	f.seed()

	if _, err := f.svc.Prediction.PredictCSV(context.Background(), csvRequest("speed, lanes\n55, 3\n", false)); err != nil {
		t.Fatalf("PredictCSV failed: %v", err)
	}

	raw, _ := json.Marshal(f.inference.BatchCalls[0].Rows)
	if string(raw) != `[{"speed":"55","lanes":"3"}]` {
		t.Errorf("Expected trimmed values upstream, got %s", raw)
	}
	p := f.storedPredictions()[0]
	if p.Inputs[1].Key != " lanes" || p.Inputs[1].Value != " 3" {
		t.Errorf("Expected the original pair, got %+v", p.Inputs[1])
	}
}

func TestPredictCSV_SchemaMismatchReportsBothLists(t *testing.T) {
	f := newFixture(t.TempDir())
	f.seed()

	_, err := f.svc.Prediction.PredictCSV(context.Background(), csvRequest("speed,width\n55,12\n", false))
	if err == nil {
		t.Fatal("Expected schema mismatch")
	}

	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperrors.KindSchemaMismatch {
		t.Fatalf("Expected schema mismatch, got %v", err)
	}
	diff, ok := appErr.Details.(validation.SchemaDiff)
	if !ok {
		t.Fatalf("Expected SchemaDiff details, got %T", appErr.Details)
	}
	if strings.Join(diff.Missing, ",") != "lanes" || strings.Join(diff.Extra, ",") != "width" {
		t.Errorf("Expected missing=[lanes] extra=[width], got %+v", diff)
	}
	if !strings.Contains(appErr.Message, "Missing columns: lanes") || !strings.Contains(appErr.Message, "Unexpected columns: width") {
		t.Errorf("Message should list both: %s", appErr.Message)
	}
	if len(f.inference.BatchCalls) != 0 {
		t.Error("Inference service must not be called on schema mismatch")
	}
}

func TestPredictCSV_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(r *models.CSVPredictionRequest)
		body     string
		wantKind apperrors.Kind
	}{
		{"header only", nil, "speed,lanes\n", apperrors.KindEmptyInput},
		{"empty file", nil, "", apperrors.KindEmptyInput},
		{"malformed csv", nil, "speed,lanes\n1\n", apperrors.KindClientInput},
		{"missing collection id", func(r *models.CSVPredictionRequest) { r.CollectionID = "" }, "speed,lanes\n1,2\n", apperrors.KindClientInput},
		{"malformed collection id", func(r *models.CSVPredictionRequest) { r.CollectionID = "abc" }, "speed,lanes\n1,2\n", apperrors.KindClientInput},
		{"malformed model id", func(r *models.CSVPredictionRequest) { r.ModelID = "abc" }, "speed,lanes\n1,2\n", apperrors.KindClientInput},
		{"unknown collection", func(r *models.CSVPredictionRequest) { r.CollectionID = otherUserID }, "speed,lanes\n1,2\n", apperrors.KindNotFound},
		{"unknown model", func(r *models.CSVPredictionRequest) { r.ModelID = otherUserID }, "speed,lanes\n1,2\n", apperrors.KindNotFound},
		{"someone else's collection", func(r *models.CSVPredictionRequest) { r.UserID = otherUserID }, "speed,lanes\n1,2\n", apperrors.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t.TempDir())
			f.seed()

			req := csvRequest(tt.body, false)
			if tt.mutate != nil {
				tt.mutate(req)
			}
			_, err := f.svc.Prediction.PredictCSV(context.Background(), req)
			if err == nil {
				t.Fatal("Expected error")
			}
			if got := apperrors.KindOf(err); got != tt.wantKind {
				t.Errorf("Expected %s, got %s (%v)", tt.wantKind, got, err)
			}
			if len(f.storedPredictions()) != 0 {
				t.Error("Nothing should be stored")
			}
		})
	}
}

func TestPredictCSV_ResultCountMismatchStoresNothing(t *testing.T) {
	f := newFixture(t.TempDir())
	f.seed()
	f.inference.PredictBatchFunc = func(ctx context.Context, artifact string, rows []models.OrderedRow, applyLog bool) ([]float64, error) {
		return []float64{1}, nil
	}

	_, err := f.svc.Prediction.PredictCSV(context.Background(), csvRequest("speed,lanes\n1,2\n3,4\n", false))

	if apperrors.KindOf(err) != apperrors.KindUpstreamContractViolation {
		t.Fatalf("Expected contract violation, got %v", err)
	}
	if f.collections.AppendCalls != 0 {
		t.Errorf("Expected no append, got %d", f.collections.AppendCalls)
	}
	if len(f.storedPredictions()) != 0 {
		t.Error("Nothing should be stored")
	}
}

func TestPredictCSV_UpstreamTimeoutLeavesCollectionUnchanged(t *testing.T) {
	f := newFixture(t.TempDir())
	f.seed()
	f.collections.AppendPredictions(context.Background(), collectionID, []models.Prediction{{Result: 9, SourceType: models.SourceManual}}, "")
	f.inference.PredictBatchFunc = func(ctx context.Context, artifact string, rows []models.OrderedRow, applyLog bool) ([]float64, error) {
		return nil, apperrors.New(apperrors.KindUpstreamUnavailable, "No response from inference service")
	}

	_, err := f.svc.Prediction.PredictCSV(context.Background(), csvRequest("speed,lanes\n1,2\n", false))

	if apperrors.KindOf(err) != apperrors.KindUpstreamUnavailable {
		t.Fatalf("Expected upstream unavailable, got %v", err)
	}
	stored := f.storedPredictions()
	if len(stored) != 1 || stored[0].Result != 9 {
		t.Errorf("Collection changed: %+v", stored)
	}
	if len(f.activity.Entries) != 0 {
		t.Error("Failed runs are not logged as activity")
	}
}

func TestPredictCSV_PersistenceFailure(t *testing.T) {
	f := newFixture(t.TempDir())
	f.seed()
	f.collections.AppendError = errDB

	_, err := f.svc.Prediction.PredictCSV(context.Background(), csvRequest("speed,lanes\n1,2\n", false))

	if apperrors.KindOf(err) != apperrors.KindPersistence {
		t.Fatalf("Expected persistence error, got %v", err)
	}
}

func TestPredictCSV_LogsActivity(t *testing.T) {
	f := newFixture(t.TempDir())
	f.seed()

	if _, err := f.svc.Prediction.PredictCSV(context.Background(), csvRequest("speed,lanes\n1,2\n3,4\n", false)); err != nil {
		t.Fatalf("PredictCSV failed: %v", err)
	}

	if len(f.activity.Entries) != 1 {
		t.Fatalf("Expected one activity entry, got %d", len(f.activity.Entries))
	}
	e := f.activity.Entries[0]
	if e.ModelName != "Speed model" || e.InputSource != "CSV upload" || e.PredictionsCount != 2 || e.UserID != ownerID {
		t.Errorf("Unexpected entry: %+v", e)
	}
}

func TestPredictCSV_ActivityFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t.TempDir())
	f.seed()
	f.activity.InsertError = errDB

	if _, err := f.svc.Prediction.PredictCSV(context.Background(), csvRequest("speed,lanes\n1,2\n", false)); err != nil {
		t.Fatalf("Expected success despite activity failure, got %v", err)
	}
	if len(f.storedPredictions()) != 1 {
		t.Error("Prediction should be stored")
	}
}

func TestPredictCSV_ConcurrentBatchesAllLand(t *testing.T) {
	f := newFixture(t.TempDir())
	f.seed()

	const batches = 10
	var wg sync.WaitGroup
	errs := make(chan error, batches)
	for i := 0; i < batches; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf("speed,lanes\n%d,1\n%d,2\n", i, i)
			_, err := f.svc.Prediction.PredictCSV(context.Background(), csvRequest(body, false))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Batch failed: %v", err)
		}
	}
	if got := len(f.storedPredictions()); got != batches*2 {
		t.Errorf("Expected %d predictions, got %d", batches*2, got)
	}
}

func boolPtr(b bool) *bool { return &b }

func TestPredictSingle(t *testing.T) {
	f := newFixture(t.TempDir())
	f.seed()
	f.inference.PredictSingleFunc = func(ctx context.Context, artifact string, row models.OrderedRow, logTransform bool) (float64, error) {
		return 88.5, nil
	}

	p, err := f.svc.Prediction.PredictSingle(context.Background(), &models.SinglePredictionRequest{
		CollectionID: collectionID,
		ModelID:      modelID,
		UserID:       ownerID,
		Inputs:       map[string]interface{}{"lanes": "2", "speed": 61.0},
		LogTransform: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("PredictSingle failed: %v", err)
	}

	if p.Result != 88.5 || p.SourceType != models.SourceManual {
		t.Errorf("Unexpected prediction: %+v", p)
	}
	raw, _ := json.Marshal(f.inference.SingleCalls[0].Row)
	if string(raw) != `{"speed":61,"lanes":2}` {
		t.Errorf("Expected numeric row in model order, got %s", raw)
	}
	if len(f.storedPredictions()) != 1 {
		t.Error("Prediction should be stored")
	}
	if len(f.activity.Entries) != 1 || f.activity.Entries[0].InputSource != models.DefaultInputSource {
		t.Errorf("Expected manual activity entry, got %+v", f.activity.Entries)
	}
}

func TestPredictSingle_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		req       models.SinglePredictionRequest
		wantKind  apperrors.Kind
		wantField string
	}{
		{
			name:     "missing log transform",
			req:      models.SinglePredictionRequest{Inputs: map[string]interface{}{"speed": 1.0, "lanes": 1.0}},
			wantKind: apperrors.KindClientInput,
		},
		{
			name:      "non numeric field",
			req:       models.SinglePredictionRequest{Inputs: map[string]interface{}{"speed": "fast", "lanes": 1.0}, LogTransform: boolPtr(true)},
			wantKind:  apperrors.KindClientInput,
			wantField: "speed",
		},
		{
			name:      "missing field",
			req:       models.SinglePredictionRequest{Inputs: map[string]interface{}{"speed": 1.0}, LogTransform: boolPtr(true)},
			wantKind:  apperrors.KindClientInput,
			wantField: "lanes",
		},
		{
			name:     "no inputs",
			req:      models.SinglePredictionRequest{LogTransform: boolPtr(true)},
			wantKind: apperrors.KindClientInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t.TempDir())
			f.seed()

			req := tt.req
			req.CollectionID = collectionID
			req.ModelID = modelID
			req.UserID = ownerID

			_, err := f.svc.Prediction.PredictSingle(context.Background(), &req)
			if apperrors.KindOf(err) != tt.wantKind {
				t.Fatalf("Expected %s, got %v", tt.wantKind, err)
			}
			if tt.wantField != "" && !strings.Contains(err.Error(), `"`+tt.wantField+`"`) {
				t.Errorf("Error should name %s: %v", tt.wantField, err)
			}
			if len(f.inference.SingleCalls) != 0 {
				t.Error("Inference service should not be called")
			}
		})
	}
}

func TestPredictCSV_ArchivesAcceptedUpload(t *testing.T) {
	uploads := t.TempDir()
	f := newFixtureWithStorage(config.StorageConfig{ModelsDir: t.TempDir(), UploadDir: uploads})
	f.seed()

	body := "speed,lanes\n55,3\n"
	if _, err := f.svc.Prediction.PredictCSV(context.Background(), csvRequest(body, false)); err != nil {
		t.Fatalf("PredictCSV failed: %v", err)
	}

	c, _ := f.collections.GetByID(context.Background(), collectionID)
	if c.CSVFilePath == "" || !strings.HasPrefix(c.CSVFilePath, filepath.Join(uploads, collectionID)) {
		t.Fatalf("Expected archived path under the upload dir, got %q", c.CSVFilePath)
	}
	if !strings.HasSuffix(c.CSVFilePath, "_upload.csv") {
		t.Errorf("Expected original file name kept, got %q", c.CSVFilePath)
	}
	data, err := os.ReadFile(c.CSVFilePath)
	if err != nil || string(data) != body {
		t.Errorf("Archived file mismatch: %q (%v)", data, err)
	}
}

func TestPredictCSV_FailedWriteDiscardsUpload(t *testing.T) {
	uploads := t.TempDir()
	f := newFixtureWithStorage(config.StorageConfig{ModelsDir: t.TempDir(), UploadDir: uploads})
	f.seed()
	f.collections.AppendError = errDB

	if _, err := f.svc.Prediction.PredictCSV(context.Background(), csvRequest("speed,lanes\n1,2\n", false)); err == nil {
		t.Fatal("Expected persistence error")
	}

	entries, _ := os.ReadDir(filepath.Join(uploads, collectionID))
	if len(entries) != 0 {
		t.Errorf("Expected no archived files, found %d", len(entries))
	}
}

func TestPredictCSV_ArchiveFailureStillStoresPredictions(t *testing.T) {
	// A regular file where the upload directory should be makes archiving fail
	blocked := filepath.Join(t.TempDir(), "uploads")
	if err := os.WriteFile(blocked, []byte("not a directory"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := newFixtureWithStorage(config.StorageConfig{ModelsDir: t.TempDir(), UploadDir: blocked})
	f.seed()

	out, err := f.svc.Prediction.PredictCSV(context.Background(), csvRequest("speed,lanes\n55,3\n", false))
	if err != nil {
		t.Fatalf("PredictCSV failed: %v", err)
	}
	if len(out.Predictions) != 1 {
		t.Errorf("Expected 1 prediction, got %d", len(out.Predictions))
	}

	c, _ := f.collections.GetByID(context.Background(), collectionID)
	if c.CSVFilePath != "" {
		t.Errorf("Expected no archived path, got %q", c.CSVFilePath)
	}
}
