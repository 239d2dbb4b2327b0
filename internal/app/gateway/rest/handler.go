package rest

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/dennishilgert/fnexec/internal/app/executor"
	"github.com/dennishilgert/fnexec/internal/app/recorder"
	"github.com/dennishilgert/fnexec/internal/app/registry"
	"github.com/dennishilgert/fnexec/internal/app/registry/store"
	"github.com/dennishilgert/fnexec/pkg/function"
	"github.com/dennishilgert/fnexec/pkg/logger"
)

var log = logger.NewLogger("fnexec.rest")

const defaultHistoryLimit = 20

type RestHandler interface {
	RegisterHandlers(e *echo.Echo)
}

type restHandler struct {
	registry registry.FunctionRegistry
	executor executor.Executor
	history  recorder.History
	validate *validator.Validate
}

// NewRestHandler creates a new RestHandler. history may be nil.
func NewRestHandler(functionRegistry registry.FunctionRegistry, exec executor.Executor, history recorder.History) RestHandler {
	return &restHandler{
		registry: functionRegistry,
		executor: exec,
		history:  history,
		validate: validator.New(),
	}
}

// RegisterHandlers registers the REST API handlers.
func (r *restHandler) RegisterHandlers(e *echo.Echo) {
	apiV1 := e.Group("/api/v1")
	apiV1.Use(requestLogger, requestInterceptor)

	apiV1.GET("/stats", r.stats)
	apiV1.GET("/functions", r.listFunctions)
	apiV1.POST("/functions", r.registerFunction)
	apiV1.GET("/functions/:name", r.getFunction)
	apiV1.PUT("/functions/:name", r.updateFunction)
	apiV1.DELETE("/functions/:name", r.deleteFunction)
	apiV1.GET("/functions/:name/entrypoints", r.entryPoints)
	apiV1.GET("/functions/:name/invocations", r.invocations)
	apiV1.POST("/functions/:name/invoke", r.invoke)
}

func (r *restHandler) stats(c echo.Context) error {
	return c.JSON(http.StatusOK, r.executor.Stats())
}

func (r *restHandler) listFunctions(c echo.Context) error {
	specs, err := r.registry.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ListFunctionsResponse{Functions: specs})
}

func (r *restHandler) registerFunction(c echo.Context) error {
	spec := new(function.Spec)
	if err := c.Bind(spec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errorResponse(http.StatusBadRequest, fmt.Sprintf("Failed to bind request body: %s", err.Error())))
	}
	registered, err := r.registry.Register(c.Request().Context(), spec)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, registered)
}

func (r *restHandler) getFunction(c echo.Context) error {
	spec, err := r.registry.Get(c.Request().Context(), c.Param("name"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, spec)
}

func (r *restHandler) updateFunction(c echo.Context) error {
	spec := new(function.Spec)
	if err := c.Bind(spec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errorResponse(http.StatusBadRequest, fmt.Sprintf("Failed to bind request body: %s", err.Error())))
	}
	spec.Name = c.Param("name")
	updated, err := r.registry.Update(c.Request().Context(), spec)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (r *restHandler) deleteFunction(c echo.Context) error {
	if err := r.registry.Delete(c.Request().Context(), c.Param("name")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (r *restHandler) entryPoints(c echo.Context) error {
	name := c.Param("name")
	names, err := r.registry.EntryPoints(c.Request().Context(), name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, EntryPointsResponse{Name: name, EntryPoints: names})
}

func (r *restHandler) invocations(c echo.Context) error {
	if r.history == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, errorResponse(http.StatusNotImplemented, "Invocation history is not configured"))
	}
	req := new(InvocationsRequest)
	if err := r.bindAndValidate(c, req); err != nil {
		return err
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultHistoryLimit
	}
	records, err := r.history.Recent(c.Request().Context(), req.Name, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, InvocationsResponse{Name: req.Name, Invocations: records})
}

// invoke always answers 200 with the invocation result once the function exists.
func (r *restHandler) invoke(c echo.Context) error {
	arguments, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errorResponse(http.StatusBadRequest, fmt.Sprintf("Failed to read request body: %s", err.Error())))
	}
	result, err := r.registry.Invoke(c.Request().Context(), c.Param("name"), arguments)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// bindAndValidate binds path and query parameters and validates the request.
func (r *restHandler) bindAndValidate(c echo.Context, req any) error {
	binder := &echo.DefaultBinder{}
	if err := binder.BindPathParams(c, req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errorResponse(http.StatusBadRequest, fmt.Sprintf("Failed to bind request: %s", err.Error())))
	}
	if err := binder.BindQueryParams(c, req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errorResponse(http.StatusBadRequest, fmt.Sprintf("Failed to bind request: %s", err.Error())))
	}
	if err := r.validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return echo.NewHTTPError(http.StatusBadRequest, validationErrorResponse(validationErrors))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, errorResponse(http.StatusInternalServerError, fmt.Sprintf("Error during request validation: %s", err.Error())))
	}
	return nil
}

// requestLogger logs every request once its response is written.
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		log.WithLogType(logger.LogTypeRequest).WithFields(map[string]any{
			"method":   c.Request().Method,
			"path":     c.Request().URL.Path,
			"status":   c.Response().Status,
			"duration": time.Since(start).String(),
		}).Debug("handled request")
		return err
	}
}

// requestInterceptor maps handler errors to JSON error responses.
func requestInterceptor(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err == nil {
			return nil
		}
		var httpError *echo.HTTPError
		if errors.As(err, &httpError) {
			if response, ok := httpError.Message.(ErrorResponse); ok {
				return c.JSON(httpError.Code, response)
			}
			return c.JSON(httpError.Code, errorResponse(httpError.Code, fmt.Sprint(httpError.Message)))
		}

		var entryPointErr *registry.EntryPointError
		switch {
		case errors.Is(err, store.ErrFunctionNotFound):
			return c.JSON(http.StatusNotFound, errorResponse(http.StatusNotFound, err.Error()))
		case errors.Is(err, store.ErrFunctionExists):
			return c.JSON(http.StatusConflict, errorResponse(http.StatusConflict, err.Error()))
		case errors.As(err, &entryPointErr):
			response := errorResponse(http.StatusUnprocessableEntity, err.Error())
			response.Available = entryPointErr.Available
			return c.JSON(http.StatusUnprocessableEntity, response)
		case registry.IsClientError(err):
			return c.JSON(http.StatusBadRequest, errorResponse(http.StatusBadRequest, err.Error()))
		}
		log.Errorf("request %s %s failed: %v", c.Request().Method, c.Request().URL.Path, err)
		return c.JSON(http.StatusInternalServerError, errorResponse(http.StatusInternalServerError, "Internal error"))
	}
}

func errorResponse(code int, message string) ErrorResponse {
	return ErrorResponse{
		Status:  http.StatusText(code),
		Message: message,
	}
}

// validationErrorResponse formats validation errors for the response.
func validationErrorResponse(err validator.ValidationErrors) ErrorResponse {
	errorsMap := make(map[string]string)
	for _, e := range err {
		errorsMap[e.Field()] = fmt.Sprintf("failed on the '%s' rule", e.Tag())
	}
	response := errorResponse(http.StatusBadRequest, "Validation Error")
	response.Errors = errorsMap
	return response
}
