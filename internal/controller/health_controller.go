package controller

import (
	"finscope-be/internal/pkg/serverutils"
	"finscope-be/pkg/gateway"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	gateway gateway.Gateway
}

func NewHealthController(gw gateway.Gateway) IHealthController {
	return &healthController{gateway: gw}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

// Health reports this service and the analysis backend's reachability.
// The endpoint answers 200 either way; a dead backend is a degraded
// state, not an outage of this service.
func (c *healthController) Health(ctx *fiber.Ctx) error {
	analysisStatus := "ok"
	if err := c.gateway.Health(ctx.Context()); err != nil {
		analysisStatus = "unreachable"
	}

	return ctx.JSON(serverutils.SuccessResponse("Success health check", fiber.Map{
		"service":          "ok",
		"analysis_backend": analysisStatus,
	}))
}
