package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/baseline"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/report"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/repository"
	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/service"
)

type periodBody struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (p periodBody) period() domain.Period { return domain.Period{Start: p.Start, End: p.End} }

type trainBody struct {
	EntityID     string   `json:"entity_id"`
	EnergySource string   `json:"energy_source"`
	Drivers      []string `json:"drivers"`
	periodBody
}

type evaluateBody struct {
	EntityID     string `json:"entity_id"`
	EnergySource string `json:"energy_source"`
	periodBody
}

type scanBody struct {
	EntityIDs []string `json:"entity_ids"`
	Archive   bool     `json:"archive"`
	Plans     bool     `json:"plans"`
	periodBody
}

type planBody struct {
	EntityName string `json:"entity_name"`
	IssueType  string `json:"issue_type"`
}

type statusBody struct {
	Status domain.PlanStatus `json:"status"`
}

func Register(app *fiber.App, svcs *service.Services) {
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	g := app.Group("/")
	g.Get("machines", func(c *fiber.Ctx) error {
		items, err := svcs.Store.ListMachines(c.UserContext())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(items)
	})
	g.Post("machines", func(c *fiber.Ctx) error {
		var m domain.Machine
		if err := c.BodyParser(&m); err != nil {
			return badRequest(c, err)
		}
		if err := svcs.Readings.RegisterMachine(c.UserContext(), m); err != nil {
			return badRequest(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	})

	g.Post("models/train", func(c *fiber.Ctx) error {
		var body trainBody
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, err)
		}
		if body.EntityID == "" {
			return badRequest(c, errors.New("entity_id is required"))
		}
		sel := baseline.Auto()
		if len(body.Drivers) > 0 {
			sel = baseline.Manual(body.Drivers...)
		}
		m, err := svcs.Engine.Train(c.UserContext(), body.EntityID, source(body.EnergySource), body.period(), sel)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	})
	g.Get("models/:entity/:source", func(c *fiber.Ctx) error {
		m, err := svcs.Engine.LatestModel(c.UserContext(), c.Params("entity"), c.Params("source"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(m)
	})
	g.Get("models/:entity/:source/versions", func(c *fiber.Ctx) error {
		items, err := svcs.Engine.ModelVersions(c.UserContext(), c.Params("entity"), c.Params("source"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(items)
	})

	g.Post("evaluate", func(c *fiber.Ctx) error {
		var body evaluateBody
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, err)
		}
		if body.EntityID == "" {
			return badRequest(c, errors.New("entity_id is required"))
		}
		eval, err := svcs.Engine.Evaluate(c.UserContext(), body.EntityID, source(body.EnergySource), body.period())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(eval)
	})

	g.Post("scan", func(c *fiber.Ctx) error {
		var body scanBody
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, err)
		}
		ctx := c.UserContext()
		opps, err := svcs.Engine.Scan(ctx, body.EntityIDs, body.period())
		if err != nil {
			return fail(c, err)
		}
		resp := fiber.Map{"opportunities": opps}
		if body.Archive {
			url, err := svcs.Engine.ArchiveScan(ctx, body.period(), opps)
			if err != nil {
				return fail(c, err)
			}
			resp["report_url"] = url
		}
		if body.Plans {
			plans, err := svcs.Engine.GeneratePlans(ctx, opps)
			if err != nil {
				return fail(c, err)
			}
			resp["action_plans"] = plans
		}
		return c.JSON(resp)
	})

	g.Get("reports/:kind", func(c *fiber.Ctx) error {
		var day time.Time
		if d := c.Query("date"); d != "" {
			t, err := time.Parse("2006-01-02", d)
			if err != nil {
				return badRequest(c, err)
			}
			day = t
		}
		keys, err := svcs.Engine.Reports(c.UserContext(), c.Params("kind"), day)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"reports": keys})
	})

	// batch is queued on the scan worker when one is configured, else run inline.
	g.Post("batch", func(c *fiber.Ctx) error {
		var req service.BatchRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return badRequest(c, err)
			}
		}
		ctx := c.UserContext()
		err := svcs.Engine.DispatchBatch(ctx, req)
		switch {
		case err == nil:
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "queued"})
		case !errors.Is(err, service.ErrNoDispatcher):
			return fail(c, err)
		}
		res, err := svcs.Engine.RunBatch(ctx, req)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(res)
	})

	g.Post("action-plans", func(c *fiber.Ctx) error {
		var body planBody
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, err)
		}
		plan, err := svcs.Engine.GeneratePlan(c.UserContext(), body.EntityName, body.IssueType)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(plan)
	})
	g.Post("action-plans/from-opportunities", func(c *fiber.Ctx) error {
		var opps []domain.Opportunity
		if err := c.BodyParser(&opps); err != nil {
			return badRequest(c, err)
		}
		plans, err := svcs.Engine.GeneratePlans(c.UserContext(), opps)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(plans)
	})
	g.Get("action-plans/:id", func(c *fiber.Ctx) error {
		plan, err := svcs.Engine.Plan(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(plan)
	})
	g.Get("action-plans/:id/pdf", func(c *fiber.Ctx) error {
		data, err := svcs.Engine.PlanPDF(c.UserContext(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		c.Set(fiber.HeaderContentType, report.ContentTypePDF)
		c.Attachment("action-plan-" + c.Params("id") + ".pdf")
		return c.Send(data)
	})
	g.Post("action-plans/:id/status", func(c *fiber.Ctx) error {
		var body statusBody
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, err)
		}
		plan, err := svcs.Engine.AdvancePlan(c.UserContext(), c.Params("id"), body.Status)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(plan)
	})
}

func source(s string) string {
	if s == "" {
		return "electricity"
	}
	return s
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrModelNotFound),
		errors.Is(err, repository.ErrPlanNotFound),
		errors.Is(err, repository.ErrMachineNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrNoArchive), errors.Is(err, service.ErrNoDispatcher):
		return fiber.StatusServiceUnavailable
	case domain.IsClientError(err):
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}
