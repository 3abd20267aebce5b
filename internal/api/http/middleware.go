package http

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/observability"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// errorHandlingMiddleware renders every error as
// {type, code, message, param?, details?}. Internal causes are logged, never
// sent.
func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := toDomainError(err)
				metrics.RecordError(c.Route().Path, c.Method(), domainErr.Code)
				if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
					logger.Error("request failed",
						zap.String("request_id", observability.RequestID(c)),
						zap.String("code", domainErr.Code),
						zap.Error(err))
				}
				c.Status(domainErr.HTTPStatus)
				err = c.JSON(errorBody(domainErr))
			}
		}()
		return c.Next()
	}
}

func errorBody(e *apperrors.DomainError) fiber.Map {
	body := fiber.Map{
		"type":    e.Type,
		"code":    e.Code,
		"message": e.Message,
	}
	if e.Param != "" {
		body["param"] = e.Param
	}
	if len(e.Details) > 0 {
		body["details"] = e.Details
	}
	return body
}

// toDomainError also understands the errors fiber itself raises for unknown
// routes and malformed requests.
func toDomainError(err error) *apperrors.DomainError {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch {
		case fe.Code == fiber.StatusNotFound:
			return apperrors.NewNotFound(apperrors.CodeResourceNotFound, "route not found").(*apperrors.DomainError)
		case fe.Code == fiber.StatusMethodNotAllowed:
			return apperrors.NewNotFound(apperrors.CodeResourceNotFound, "method not allowed").(*apperrors.DomainError)
		case fe.Code >= 400 && fe.Code < 500:
			de := apperrors.NewValidationError(apperrors.CodeInvalidParameter, fe.Message, "").(*apperrors.DomainError)
			de.HTTPStatus = fe.Code
			return de
		}
	}
	return apperrors.ToDomainError(err)
}
