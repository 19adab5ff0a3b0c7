package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/YuminosukeSato/scigo-select/pkg/errors"
)

// Response codes.
const (
	CodeOK    = 0
	CodeError = -1
)

// Response is the envelope of every JSON answer.
type Response struct {
	Code     int          `json:"code"`
	CodeText string       `json:"code_text"`
	Message  string       `json:"message"`
	Data     interface{}  `json:"data"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// PredictRequest is the body of POST /predict. Exactly one of Features
// (rows in column order) or Records (objects keyed by column name) is set.
// Cells are numbers, strings or null; null, empty and absent cells are
// imputed by the preprocessor.
type PredictRequest struct {
	Features [][]interface{}          `json:"features"`
	Records  []map[string]interface{} `json:"records"`
}

// PredictData is the data of a successful prediction.
type PredictData struct {
	Predictions []float64 `json:"predictions"`
}

func ok(message string, data interface{}) Response {
	return Response{Code: CodeOK, CodeText: "ok", Message: message, Data: data}
}

func fail(message string, fields ...FieldError) Response {
	return Response{Code: CodeError, CodeText: "error", Message: message, Errors: fields}
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, ok("prediction service is running", nil))
}

func (s *Server) handlePredict(c *gin.Context) {
	if s.predictor == nil {
		c.JSON(http.StatusServiceUnavailable, fail("no model is loaded"))
		return
	}

	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn("invalid predict body", err)
		c.JSON(http.StatusBadRequest, fail("Validation error occurred.", FieldError{Field: "features", Error: err.Error()}))
		return
	}
	rows, field, err := s.requestRecords(req)
	if err != nil {
		s.logger.Warn("invalid predict body", err)
		c.JSON(http.StatusBadRequest, fail("Validation error occurred.", FieldError{Field: field, Error: err.Error()}))
		return
	}

	preds, err := s.predictor.PredictRecords(rows)
	if err != nil {
		if errors.KindOf(err) == errors.KindValidation {
			s.logger.Warn("prediction rejected", err)
			c.JSON(http.StatusBadRequest, fail("Validation error occurred.", FieldError{Field: field, Error: err.Error()}))
			return
		}
		s.logger.Error("prediction failed", err)
		c.JSON(http.StatusInternalServerError, fail("An internal server error occurred."))
		return
	}
	c.JSON(http.StatusOK, ok("Processed successfully.", PredictData{Predictions: preds}))
}

// requestRecords converts the request cells to text records and names the
// field they came from.
func (s *Server) requestRecords(req PredictRequest) ([][]string, string, error) {
	switch {
	case len(req.Features) > 0 && len(req.Records) > 0:
		return nil, "features", errors.NewValidationError("features", "send either features or records, not both", nil)
	case len(req.Features) > 0:
		rows := make([][]string, len(req.Features))
		for i, row := range req.Features {
			rows[i] = make([]string, len(row))
			for j, v := range row {
				cell, err := cellText(v)
				if err != nil {
					return nil, "features", errors.NewValidationError("features", fmt.Sprintf("row %d column %d: %v", i, j, err), v)
				}
				rows[i][j] = cell
			}
		}
		return rows, "features", nil
	case len(req.Records) > 0:
		columns := s.predictor.Columns()
		rows := make([][]string, len(req.Records))
		for i, rec := range req.Records {
			rows[i] = make([]string, len(columns))
			for j, name := range columns {
				cell, err := cellText(rec[name])
				if err != nil {
					return nil, "records", errors.NewValidationError(name, fmt.Sprintf("record %d: %v", i, err), rec[name])
				}
				rows[i][j] = cell
			}
		}
		return rows, "records", nil
	}
	return nil, "features", errors.NewValidationError("features", "features or records is required", nil)
}

// cellText renders a JSON cell as the text the preprocessor expects.
func cellText(v interface{}) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	}
	return "", errors.Newf("unsupported cell type %T", v)
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusOK, ok("no history configured", []interface{}{}))
		return
	}
	entries, err := s.history.Load()
	if err != nil {
		s.logger.Error("history load failed", err)
		c.JSON(http.StatusInternalServerError, fail("An internal server error occurred."))
		return
	}
	if entries == nil {
		c.JSON(http.StatusOK, ok("no runs recorded", []interface{}{}))
		return
	}
	c.JSON(http.StatusOK, ok("history loaded", entries))
}
