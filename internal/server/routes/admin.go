package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"github.com/any-hub/api-replay/internal/fingerprint"
	"github.com/any-hub/api-replay/internal/jsonvalue"
	"github.com/any-hub/api-replay/internal/state"
)

// Admin 是管理接口依赖的运行时状态，由 proxy.Service 实现。
type Admin interface {
	Settings() state.Settings
	MergeSettings(partial map[string]any) error
	ResetSettings()
	Overwrites() state.ResponseTable
	MergeOverwrites(partial state.ResponseTable)
	ResetOverwrites()
	MetricsHandler() http.Handler
}

// RegisterAdminRoutes 在 /-/ 前缀下暴露设置、覆盖表、指纹计算与指标接口。
func RegisterAdminRoutes(app *fiber.App, admin Admin) {
	if app == nil || admin == nil {
		return
	}

	app.Get("/-/settings", func(c fiber.Ctx) error {
		return c.JSON(admin.Settings())
	})
	app.Patch("/-/settings", func(c fiber.Ctx) error {
		partial := map[string]any{}
		if err := json.Unmarshal(c.Body(), &partial); err != nil {
			return badRequest(c, "invalid_json", err)
		}
		if err := admin.MergeSettings(partial); err != nil {
			if errors.Is(err, state.ErrInvalidSettings) {
				return badRequest(c, "invalid_settings", err)
			}
			return err
		}
		return c.JSON(admin.Settings())
	})
	app.Delete("/-/settings", func(c fiber.Ctx) error {
		admin.ResetSettings()
		return c.JSON(admin.Settings())
	})

	app.Get("/-/overwrites", func(c fiber.Ctx) error {
		return c.JSON(admin.Overwrites())
	})
	app.Patch("/-/overwrites", func(c fiber.Ctx) error {
		doc, err := jsonvalue.Parse(c.Body())
		if err != nil {
			return badRequest(c, "invalid_json", err)
		}
		table, err := state.DecodeResponseTable(doc)
		if err != nil {
			return badRequest(c, "invalid_overwrites", err)
		}
		admin.MergeOverwrites(table)
		return c.JSON(fiber.Map{"merged": len(table), "total": len(admin.Overwrites())})
	})
	app.Delete("/-/overwrites", func(c fiber.Ctx) error {
		admin.ResetOverwrites()
		return c.JSON(fiber.Map{"total": len(admin.Overwrites())})
	})

	app.Get("/-/fingerprint", func(c fiber.Ctx) error {
		var body *string
		args := c.Request().URI().QueryArgs()
		if args.Has("body") {
			value := string(args.Peek("body"))
			body = &value
		}
		id, err := fingerprint.Compute(string(args.Peek("url")), body)
		if err != nil {
			return badRequest(c, "invalid_request", err)
		}
		return c.JSON(fiber.Map{"id": id, "canonical": fingerprint.Canonical(string(args.Peek("url")), body)})
	})

	app.Get("/-/metrics", adaptor.HTTPHandler(admin.MetricsHandler()))
}

func badRequest(c fiber.Ctx, code string, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": code, "detail": err.Error()})
}
