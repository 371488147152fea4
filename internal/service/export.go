package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/JaeTrim/Traffic-AI/internal/apperrors"
	"github.com/JaeTrim/Traffic-AI/internal/models"
)

// Flush every this many records while streaming
const exportFlushEvery = 100

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Export streams a collection's predictions in the specified format
func (s *collectionService) Export(ctx context.Context, w http.ResponseWriter, id, userID, format string) error {
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "ndjson" && format != "csv" {
		return apperrors.ClientInput(fmt.Sprintf("unsupported format: %s", format))
	}

	collection, err := loadOwnedCollection(ctx, s.collections, id, userID)
	if err != nil {
		return err
	}

	s.log.Info().
		Str("collection_id", id).
		Str("format", format).
		Int("count", len(collection.Predictions)).
		Msg("Starting collection export")

	base := unsafeFileChars.ReplaceAllString(collection.CollectionName, "_")
	if base == "" || base == "_" {
		base = "predictions"
	}

	switch format {
	case "ndjson":
		return streamPredictionsNDJSON(ctx, w, base, collection.Predictions)
	case "csv":
		return streamPredictionsCSV(ctx, w, base, collection.Predictions)
	default:
		return streamPredictionsJSON(ctx, w, base, collection.Predictions)
	}
}

func streamPredictionsNDJSON(ctx context.Context, w http.ResponseWriter, base string, predictions []models.Prediction) error {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", "attachment; filename="+base+".ndjson")

	flusher, _ := w.(http.Flusher)
	for i, p := range predictions {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		w.Write(data)
		w.Write([]byte("\n"))

		if (i+1)%exportFlushEvery == 0 && flusher != nil {
			flusher.Flush()
		}
	}
	return nil
}

func streamPredictionsJSON(ctx context.Context, w http.ResponseWriter, base string, predictions []models.Prediction) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename="+base+".json")

	w.Write([]byte("["))
	defer w.Write([]byte("]"))

	for i, p := range predictions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			w.Write([]byte(","))
		}
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		w.Write(data)
	}
	return nil
}

// streamPredictionsCSV writes one column per input key, in first-seen order,
// followed by the prediction metadata
func streamPredictionsCSV(ctx context.Context, w http.ResponseWriter, base string, predictions []models.Prediction) error {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+base+".csv")

	var keys []string
	seen := make(map[string]bool)
	for _, p := range predictions {
		for _, in := range p.Inputs {
			if !seen[in.Key] {
				seen[in.Key] = true
				keys = append(keys, in.Key)
			}
		}
	}

	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := append(append([]string{}, keys...), "result", "source_type", "model_id", "created_at")
	if err := writer.Write(header); err != nil {
		return err
	}

	for i, p := range predictions {
		if err := ctx.Err(); err != nil {
			return err
		}
		values := make(map[string]string, len(p.Inputs))
		for _, in := range p.Inputs {
			values[in.Key] = formatCell(in.Value)
		}

		row := make([]string, 0, len(header))
		for _, k := range keys {
			row = append(row, values[k])
		}
		row = append(row,
			strconv.FormatFloat(p.Result, 'f', -1, 64),
			string(p.SourceType),
			p.ModelID,
			p.CreatedAt.UTC().Format(time.RFC3339),
		)
		if err := writer.Write(row); err != nil {
			return err
		}

		if (i+1)%exportFlushEvery == 0 {
			writer.Flush()
		}
	}
	return writer.Error()
}

func formatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
