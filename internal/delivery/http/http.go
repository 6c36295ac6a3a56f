package http

import (
	"context"
	"errors"
	"net/http"

	"agent-scheduler/internal/dto"
	"agent-scheduler/internal/service"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type HttpAPIHandler struct {
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
}

func NewHttpAPIHandler(ctx context.Context, echo *echo.Echo, validator *goValidator.Validate, service *service.Service) *HttpAPIHandler {
	return &HttpAPIHandler{
		echo:      echo,
		validator: validator,
		service:   service,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	base := h.echo.Group("/api")
	h.SetupTasks(base)
	h.SetupAgents(base)
}

// respondError maps service errors onto the uniform envelope.
func respondError(c echo.Context, err error) error {
	var validationErr *service.ValidationError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrTaskNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrTaskAlreadyRunning), errors.Is(err, service.ErrAtCapacity):
		status = http.StatusConflict
	}

	return c.JSON(status, dto.NewErrorResponse(err.Error()))
}
