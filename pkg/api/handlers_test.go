package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/dailyclose/pkg/facts"
	"github.com/opsdesk/dailyclose/pkg/ledger"
	"github.com/opsdesk/dailyclose/pkg/pipeline"
)

type fakeRunner struct {
	result *pipeline.Result
	err    error
	dates  []string
}

func (f *fakeRunner) Run(_ context.Context, asOfDate string) (*pipeline.Result, error) {
	f.dates = append(f.dates, asOfDate)
	if f.err != nil {
		return nil, f.err
	}

	return f.result, nil
}

func newTestApp(runner pipeline.Service, runLedger ledger.Ledger) *fiber.App {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})

	h := newHandler(runner, runLedger, log)
	apiV1 := app.Group("/api/v1")
	apiV1.Post("/run", h.RunDailyClose)
	apiV1.Get("/runs/:date", h.GetRunRecord)

	return app
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body
}

func TestRunDailyClose(t *testing.T) {
	t.Run("successful run", func(t *testing.T) {
		runner := &fakeRunner{result: &pipeline.Result{
			Status:   pipeline.StatusOK,
			AsOfDate: "2026-08-25",
			RunID:    "run-1",
		}}
		app := newTestApp(runner, ledger.NewMemory(0))

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/run?date=2026-08-25", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, []string{"2026-08-25"}, runner.dates)
	})

	t.Run("default date is yesterday JST", func(t *testing.T) {
		runner := &fakeRunner{result: &pipeline.Result{Status: pipeline.StatusOK}}
		app := newTestApp(runner, ledger.NewMemory(0))

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/run", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, runner.dates, 1)
		assert.Equal(t, pipeline.DefaultAsOfDate(time.Now()), runner.dates[0])
	})

	t.Run("malformed date", func(t *testing.T) {
		runner := &fakeRunner{}
		app := newTestApp(runner, ledger.NewMemory(0))

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/run?date=08-25-2026", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Empty(t, runner.dates, "runner never invoked")
	})

	t.Run("not ready maps to 409", func(t *testing.T) {
		runner := &fakeRunner{result: &pipeline.Result{
			Status:       pipeline.StatusNotReady,
			AsOfDate:     "2026-08-25",
			Reason:       "required files missing",
			MissingFiles: []string{"AHT.xlsx"},
		}}
		app := newTestApp(runner, ledger.NewMemory(0))

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/run?date=2026-08-25", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "not_ready", body["status"])
		assert.Equal(t, []any{"AHT.xlsx"}, body["missing_files"])
	})

	t.Run("duplicate key error maps to 422 with payload", func(t *testing.T) {
		runner := &fakeRunner{err: &facts.DuplicateKeyError{
			Metric: "CPH",
			Total:  1,
			Keys:   []facts.Key{{Date: "2026-08-25", AgentID: "A001"}},
		}}
		app := newTestApp(runner, ledger.NewMemory(0))

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/run?date=2026-08-25", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "CPH", body["metric"])
		assert.Equal(t, []any{"2026-08-25/A001"}, body["sample_keys"])
	})

	t.Run("schema error maps to 422 with missing columns", func(t *testing.T) {
		runner := &fakeRunner{err: &facts.SchemaError{
			Metric:         "CPD",
			Reason:         "required base columns are absent",
			MissingColumns: []string{"date"},
		}}
		app := newTestApp(runner, ledger.NewMemory(0))

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/run?date=2026-08-25", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "CPD", body["metric"])
		assert.Equal(t, []any{"date"}, body["missing_columns"])
	})

	t.Run("base metric missing maps to 422", func(t *testing.T) {
		runner := &fakeRunner{err: facts.ErrBaseMetricMissing}
		app := newTestApp(runner, ledger.NewMemory(0))

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/run?date=2026-08-25", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("unexpected error maps to 500", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("smtp connection refused")}
		app := newTestApp(runner, ledger.NewMemory(0))

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/run?date=2026-08-25", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestGetRunRecord(t *testing.T) {
	t.Run("completed date", func(t *testing.T) {
		memLedger := ledger.NewMemory(0)
		require.NoError(t, memLedger.MarkSucceeded(context.Background(), "2026-08-25", &ledger.Record{
			AsOfDate: "2026-08-25",
			RunID:    "run-1",
		}))
		app := newTestApp(&fakeRunner{}, memLedger)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/runs/2026-08-25", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "run-1", body["run_id"])
	})

	t.Run("unknown date", func(t *testing.T) {
		app := newTestApp(&fakeRunner{}, ledger.NewMemory(0))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/runs/2026-08-25", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed date", func(t *testing.T) {
		app := newTestApp(&fakeRunner{}, ledger.NewMemory(0))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/runs/today", nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

var _ pipeline.Service = (*fakeRunner)(nil)
