package mocks

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/JaeTrim/Traffic-AI/internal/models"
	"github.com/JaeTrim/Traffic-AI/internal/service"
)

// MockInferenceClient is a mock implementation of the inference service client.
// Without overrides it echoes one result per row: the row index plus one.
type MockInferenceClient struct {
	mu sync.Mutex

	PredictBatchFunc  func(ctx context.Context, artifact string, rows []models.OrderedRow, applyLog bool) ([]float64, error)
	PredictSingleFunc func(ctx context.Context, artifact string, row models.OrderedRow, logTransform bool) (float64, error)
	TrainFunc         func(ctx context.Context, req *models.TrainRequest) (json.RawMessage, error)

	BatchCalls  []BatchCall
	SingleCalls []SingleCall
	TrainCalls  int
}

// BatchCall records the arguments of one PredictBatch call
type BatchCall struct {
	Artifact string
	Rows     []models.OrderedRow
	ApplyLog bool
}

// SingleCall records the arguments of one PredictSingle call
type SingleCall struct {
	Artifact     string
	Row          models.OrderedRow
	LogTransform bool
}

// Verify interface compliance
var _ service.InferenceClient = (*MockInferenceClient)(nil)

func NewMockInferenceClient() *MockInferenceClient {
	return &MockInferenceClient{}
}

func (m *MockInferenceClient) PredictBatch(ctx context.Context, artifact string, rows []models.OrderedRow, applyLog bool) ([]float64, error) {
	m.mu.Lock()
	m.BatchCalls = append(m.BatchCalls, BatchCall{Artifact: artifact, Rows: rows, ApplyLog: applyLog})
	m.mu.Unlock()

	if m.PredictBatchFunc != nil {
		return m.PredictBatchFunc(ctx, artifact, rows, applyLog)
	}
	results := make([]float64, len(rows))
	for i := range rows {
		results[i] = float64(i + 1)
	}
	return results, nil
}

func (m *MockInferenceClient) PredictSingle(ctx context.Context, artifact string, row models.OrderedRow, logTransform bool) (float64, error) {
	m.mu.Lock()
	m.SingleCalls = append(m.SingleCalls, SingleCall{Artifact: artifact, Row: row, LogTransform: logTransform})
	m.mu.Unlock()

	if m.PredictSingleFunc != nil {
		return m.PredictSingleFunc(ctx, artifact, row, logTransform)
	}
	return 1, nil
}

func (m *MockInferenceClient) Train(ctx context.Context, req *models.TrainRequest) (json.RawMessage, error) {
	m.mu.Lock()
	m.TrainCalls++
	m.mu.Unlock()

	if m.TrainFunc != nil {
		return m.TrainFunc(ctx, req)
	}
	return json.RawMessage(`{"status":"trained"}`), nil
}

// MockStatsService is a mock implementation of StatsService
type MockStatsService struct {
	Values map[string]int
	Err    error
}

var _ service.StatsService = (*MockStatsService)(nil)

func NewMockStatsService() *MockStatsService {
	return &MockStatsService{Values: map[string]int{"users": 0, "models": 0, "collections": 0}}
}

func (m *MockStatsService) Counts(ctx context.Context) (map[string]int, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Values, nil
}
