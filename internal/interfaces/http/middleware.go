package http

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Farmacia-api/internal/application/dto"
	"github.com/jhoicas/Farmacia-api/pkg/jwt"
)

// Locals keys del operador en Fiber.
const (
	LocalUserID   = "user_id"
	LocalUserName = "user_name"
)

// IdentityMiddleware resuelve el operador que registra la petición. Con Bearer Token lo toma del JWT
// (token inválido = 401); sin cabecera usa defaultUserID, el operador del mostrador.
// El operador nunca es implícito más allá de este punto: los handlers lo pasan explícito a los casos de uso.
func IdentityMiddleware(jwtSecret string, defaultUserID int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			c.Locals(LocalUserID, defaultUserID)
			return c.Next()
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "MISSING_TOKEN", Message: "token vacío"})
		}
		claims, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "INVALID_TOKEN", Message: "token inválido o expirado"})
		}
		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalUserName, claims.Name)
		return c.Next()
	}
}

// GetUserID devuelve el operador resuelto por IdentityMiddleware (0 si no pasó por él).
func GetUserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals(LocalUserID).(int64)
	return id
}

// RequestObserver recibe la duración de cada petición (métricas).
type RequestObserver interface {
	ObserveRequest(method, route, status string, d time.Duration)
}

// RequestLogger escribe un evento zerolog por petición y, si obs no es nil, alimenta las métricas.
// La ruta registrada es el patrón (/api/batches/:id), no la URL, para acotar la cardinalidad.
func RequestLogger(log zerolog.Logger, obs RequestObserver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			// Deja que el ErrorHandler escriba la respuesta antes de leer el estado.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		elapsed := time.Since(start)
		status := c.Response().StatusCode()
		route := c.Route().Path

		ev := log.Info()
		if status >= fiber.StatusInternalServerError {
			ev = log.Error()
		} else if status >= fiber.StatusBadRequest {
			ev = log.Warn()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Str("route", route).
			Int("status", status).
			Dur("latency", elapsed).
			Int64("user_id", GetUserID(c)).
			Str("request_id", requestID(c)).
			Msg("petición HTTP")

		if obs != nil {
			obs.ObserveRequest(c.Method(), route, strconv.Itoa(status), elapsed)
		}
		return nil
	}
}

func requestID(c *fiber.Ctx) string {
	if v, ok := c.Locals("requestid").(string); ok {
		return v
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
