package routes

import (
	"coinwatch/config"
	"coinwatch/controllers/iot"
	"coinwatch/controllers/machine"
	"coinwatch/controllers/push"
	"coinwatch/ingest"
	"coinwatch/middlewares"
	"coinwatch/notify"
	"coinwatch/store"

	"github.com/gofiber/fiber/v2"
)

// Deps carries everything the handlers close over.
type Deps struct {
	Cfg   *config.Config
	Store store.Store
	Svc   *ingest.Service
	Hub   *notify.Hub
	Push  *notify.PushSender
}

func Setup(app *fiber.App, d Deps) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "Machine Monitoring Backend API",
		})
	})

	iotroutes := app.Group("/api/iot")
	iotroutes.Post("/data", middlewares.DeviceAuth(d.Cfg), iot.IngestHandler(d.Svc))
	iotroutes.Get("/status", iot.StatusHandler(d.Store, d.Cfg))
	iotroutes.Get("/events", iot.EventsHandler(d.Store))
	iotroutes.Get("/events/latest", iot.LatestEventHandler(d.Store))
	iotroutes.Get("/live", notify.Upgrade, d.Hub.Handler())

	machineroutes := app.Group("/api/machines")
	machineroutes.Get("/coins/total", machine.TotalCoinsHandler(d.Store))
	machineroutes.Get("/", machine.ListHandler(d.Store))
	machineroutes.Post("/", machine.CreateHandler(d.Store))
	machineroutes.Get("/:id", machine.GetHandler(d.Store))
	machineroutes.Delete("/:id", machine.DeleteHandler(d.Store))
	machineroutes.Get("/:id/history", machine.HistoryHandler(d.Store))
	machineroutes.Get("/:id/power-logs", machine.PowerLogsHandler(d.Store))
	machineroutes.Get("/:id/stats", machine.StatsHandler(d.Store))

	pushroutes := app.Group("/api/push")
	pushroutes.Post("/subscribe", push.SubscribeHandler(d.Store))
	pushroutes.Post("/unsubscribe", push.UnsubscribeHandler(d.Store))
	pushroutes.Get("/vapid-public", push.VapidPublicHandler(d.Cfg))
	pushroutes.Post("/send-test", push.SendTestHandler(d.Push))
}
