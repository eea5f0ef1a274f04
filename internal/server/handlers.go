package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"canvasetl/pkg/errors"
)

// envelope is the warehouse service-function exchange format. Requests
// arrive as {"data": [[row_index, arg], ...]} and responses mirror the
// shape with one result row per input row.
type envelope struct {
	Data [][]interface{} `json:"data"`
}

type healthResponse struct {
	Status         string `json:"status"`
	Timestamp      string `json:"timestamp"`
	Version        string `json:"version"`
	StoreConnected bool   `json:"store_connected"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	connected := true
	if err := s.exec.Ping(r.Context()); err != nil {
		connected = false
		s.log.WarnWithFields("warehouse connectivity check failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "healthy",
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Version:        Version,
		StoreConnected: connected,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.dispatcher.State().Snapshot()

	status := "idle"
	if snap.Running {
		status = "running"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            status,
		"last_run":          snap.LastRun,
		"records_processed": snap.RecordsProcessed,
		"errors":            snap.Errors,
		"running_jobs":      snap.RunningJobs,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap := s.dispatcher.State().Snapshot()

	out := map[string]interface{}{
		"total_records_processed": snap.RecordsProcessed,
		"total_errors":            snap.Errors,
		"active_jobs":             len(snap.RunningJobs),
	}
	for name, value := range s.metrics.Snapshot() {
		out[name] = value
	}

	writeJSON(w, http.StatusOK, out)
}

// handleRunETL runs one ETL job per envelope row. Row-level failures are
// reported inside the response envelope; only an undecodable request is an
// HTTP error.
func (s *Server) handleRunETL(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEnvelope(w, r)
	if !ok {
		return
	}

	resp := envelope{Data: make([][]interface{}, 0, len(req.Data))}
	for _, row := range req.Data {
		rowIndex, jobType := rowArg(row, "FULL_REFRESH")

		records, err := s.dispatcher.Run(r.Context(), jobType)
		switch {
		case err == nil:
			resp.Data = append(resp.Data, []interface{}{
				rowIndex,
				fmt.Sprintf("ETL %s completed. Records processed: %d", jobType, records),
			})
		case errors.GetErrorCode(err) == errors.ErrCodeUnknownJobType:
			resp.Data = append(resp.Data, []interface{}{
				rowIndex,
				fmt.Sprintf("Unknown job type: %s", jobType),
			})
		default:
			resp.Data = append(resp.Data, []interface{}{
				rowIndex,
				fmt.Sprintf("Error: %v", err),
			})
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatusEnvelope(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEnvelope(w, r)
	if !ok {
		return
	}

	snap := s.dispatcher.State().Snapshot()
	status := "idle"
	if snap.Running {
		status = "running"
	}

	body, err := json.Marshal(map[string]interface{}{
		"status":            status,
		"last_run":          snap.LastRun,
		"records_processed": snap.RecordsProcessed,
		"errors":            snap.Errors,
		"running_jobs":      len(snap.RunningJobs),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := envelope{Data: make([][]interface{}, 0, len(req.Data))}
	for _, row := range req.Data {
		rowIndex, _ := rowArg(row, "")
		resp.Data = append(resp.Data, []interface{}{rowIndex, string(body)})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEnvelope(w, r)
	if !ok {
		return
	}

	resp := envelope{Data: make([][]interface{}, 0, len(req.Data))}
	for _, row := range req.Data {
		rowIndex, name := rowArg(row, "student_dimension")

		records, err := s.dispatcher.RunTransformation(r.Context(), name)
		switch {
		case err == nil:
			resp.Data = append(resp.Data, []interface{}{
				rowIndex,
				fmt.Sprintf("Transformation %s completed. Records: %d", name, records),
			})
		case errors.GetErrorCode(err) == errors.ErrCodeUnknownTransformation:
			resp.Data = append(resp.Data, []interface{}{
				rowIndex,
				fmt.Sprintf("Unknown transformation: %s", name),
			})
		default:
			resp.Data = append(resp.Data, []interface{}{
				rowIndex,
				fmt.Sprintf("Error: %v", err),
			})
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func decodeEnvelope(w http.ResponseWriter, r *http.Request) (envelope, bool) {
	var req envelope
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return envelope{}, false
	}
	return req, true
}

// rowArg extracts the row index and the first argument from an envelope
// row, falling back to the given default when the row carries no argument.
func rowArg(row []interface{}, fallback string) (interface{}, string) {
	var rowIndex interface{}
	if len(row) > 0 {
		rowIndex = row[0]
	}

	arg := fallback
	if len(row) > 1 {
		if s, ok := row[1].(string); ok && s != "" {
			arg = s
		}
	}
	return rowIndex, arg
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
