package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/sgweather/station-aggregation/internal/collector"
	"github.com/sgweather/station-aggregation/internal/store"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *collector.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/snapshot/latest", func(c *fiber.Ctx) error {
		snap, err := service.Latest()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no snapshots collected yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch latest snapshot")
		}
		return c.JSON(snap)
	})

	v1.Get("/snapshot/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snaps, err := service.Range(req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no snapshots in requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch snapshot history")
		}

		return c.JSON(fiber.Map{
			"from":      req.From,
			"to":        req.To,
			"snapshots": snaps,
		})
	})

	v1.Get("/stations", func(c *fiber.Ctx) error {
		stations := service.Stations(c.Query("dataType"))
		return c.JSON(fiber.Map{
			"count":    len(stations),
			"stations": stations,
		})
	})

	v1.Get("/stations/:id", func(c *fiber.Ctx) error {
		st, ok := service.Station(c.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown station id")
		}
		return c.JSON(st)
	})
}

// historyQuery holds the time window of the history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
