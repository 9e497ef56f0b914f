package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/opsdesk/dailyclose/pkg/facts"
	"github.com/opsdesk/dailyclose/pkg/ledger"
	"github.com/opsdesk/dailyclose/pkg/pipeline"
)

// ErrInvalidDate is returned for a malformed date parameter.
var ErrInvalidDate = fiber.NewError(fiber.StatusBadRequest, "invalid date, expected YYYY-MM-DD")

// handler implements the API endpoints.
type handler struct {
	runner pipeline.Service
	ledger ledger.Ledger
	log    logrus.FieldLogger
}

func newHandler(runner pipeline.Service, runLedger ledger.Ledger, log logrus.FieldLogger) *handler {
	return &handler{
		runner: runner,
		ledger: runLedger,
		log:    log.WithField("component", "api.handlers"),
	}
}

// RunDailyClose triggers one pipeline run. The optional date parameter
// defaults to yesterday in the report timezone.
func (h *handler) RunDailyClose(c fiber.Ctx) error {
	date := c.Query("date")
	if date == "" {
		date = pipeline.DefaultAsOfDate(time.Now())
	} else if _, err := time.Parse(pipeline.DateLayout, date); err != nil {
		return ErrInvalidDate
	}

	result, err := h.runner.Run(c.Context(), date)
	if err != nil {
		return h.mapRunError(c, date, err)
	}

	status := fiber.StatusOK
	if result.Status == pipeline.StatusNotReady {
		// Expected not-ready state, retryable by the scheduler.
		status = fiber.StatusConflict
	}

	return c.Status(status).JSON(result)
}

// GetRunRecord returns the success record of a completed date.
func (h *handler) GetRunRecord(c fiber.Ctx) error {
	date := c.Params("date")
	if _, err := time.Parse(pipeline.DateLayout, date); err != nil {
		return ErrInvalidDate
	}

	record, err := h.ledger.GetSuccess(c.Context(), date)
	if err != nil {
		h.log.WithError(err).Error("Failed to load run record")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load run record")
	}
	if record == nil {
		return fiber.NewError(fiber.StatusNotFound, "no completed run for date")
	}

	return c.JSON(record)
}

// mapRunError maps pipeline failures onto responses. Data-quality and schema
// violations carry their payloads; everything else is a 500.
func (h *handler) mapRunError(c fiber.Ctx, date string, err error) error {
	h.log.WithError(err).WithField("as_of_date", date).Error("Daily close run failed")

	var schemaErr *facts.SchemaError
	if errors.As(err, &schemaErr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":           schemaErr.Error(),
			"metric":          schemaErr.Metric,
			"missing_columns": schemaErr.MissingColumns,
			"candidates":      schemaErr.Candidates,
		})
	}

	var dupErr *facts.DuplicateKeyError
	if errors.As(err, &dupErr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":       dupErr.Error(),
			"metric":      dupErr.Metric,
			"sample_keys": keyStrings(dupErr.Keys),
		})
	}

	var cardErr *facts.MergeCardinalityError
	if errors.As(err, &cardErr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":       cardErr.Error(),
			"metric":      cardErr.Metric,
			"sample_keys": keyStrings(cardErr.Keys),
		})
	}

	if errors.Is(err, facts.ErrBaseMetricMissing) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}

func keyStrings(keys []facts.Key) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.String())
	}

	return out
}
