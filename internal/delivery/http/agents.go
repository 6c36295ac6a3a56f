package http

import (
	"net/http"

	"agent-scheduler/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupAgents(base *echo.Group) {
	v1 := base.Group("/v1/agents")
	{
		v1.GET("", h.ListAgents)
		v1.GET("/health", h.AgentBackendHealth)
	}
}

func (h *HttpAPIHandler) ListAgents(c echo.Context) error {
	agents := h.service.AgentRegistry.List(c.Request().Context())
	return c.JSON(http.StatusOK, dto.NewSuccessResponse(agents))
}

// AgentBackendHealth reports reachability of each configured invoker backend.
// Best-effort: a failing backend does not fail the request.
func (h *HttpAPIHandler) AgentBackendHealth(c echo.Context) error {
	status := make(map[string]string, len(h.service.Invokers))
	for provider, invoker := range h.service.Invokers {
		if err := invoker.Ping(c.Request().Context()); err != nil {
			status[string(provider)] = err.Error()
		} else {
			status[string(provider)] = "ok"
		}
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse(status))
}
