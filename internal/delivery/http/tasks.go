package http

import (
	"net/http"

	"agent-scheduler/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupTasks(base *echo.Group) {
	v1 := base.Group("/v1/tasks")
	{
		v1.POST("", h.CreateTask)
		v1.GET("", h.ListTasks)
		v1.GET("/results", h.GetTaskResults)
		v1.DELETE("/:id", h.DeleteTask)
		v1.PATCH("/:id/toggle", h.ToggleTask)
		v1.POST("/:id/run", h.RunTask)
	}
}

func (h *HttpAPIHandler) CreateTask(c echo.Context) error {
	var req dto.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid request body: "+err.Error()))
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewErrorResponse(err.Error()))
	}

	task, err := h.service.TaskStore.Create(c.Request().Context(), req.Name, req.AgentID, req.PromptTemplate, req.ScheduleType)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse(task))
}

func (h *HttpAPIHandler) ListTasks(c echo.Context) error {
	tasks := h.service.TaskStore.List(c.Request().Context())
	return c.JSON(http.StatusOK, dto.NewSuccessResponse(tasks))
}

func (h *HttpAPIHandler) DeleteTask(c echo.Context) error {
	if err := h.service.TaskStore.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
}

func (h *HttpAPIHandler) ToggleTask(c echo.Context) error {
	var req dto.ToggleTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid request body: "+err.Error()))
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewErrorResponse(err.Error()))
	}

	task, err := h.service.TaskStore.Toggle(c.Request().Context(), c.Param("id"), *req.Enabled)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse(task))
}

// RunTask triggers one immediate execution outside the schedule. The
// execution itself is asynchronous; a success response means it was
// dispatched.
func (h *HttpAPIHandler) RunTask(c echo.Context) error {
	if err := h.service.Scheduler.RunTask(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
}

func (h *HttpAPIHandler) GetTaskResults(c echo.Context) error {
	var req dto.GetTaskResultsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid limit: "+err.Error()))
	}

	results := h.service.History.Recent(req.Limit)
	return c.JSON(http.StatusOK, dto.NewSuccessResponse(results))
}
