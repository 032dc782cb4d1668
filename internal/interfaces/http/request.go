package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Farmacia-api/internal/application/analytics"
	"github.com/jhoicas/Farmacia-api/internal/application/dto"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldError detalle de un campo rechazado por la validación.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// parseBody decodifica el JSON rechazando campos desconocidos y contenido sobrante,
// y luego aplica las etiquetas `validate` del DTO. Si devuelve ok=false la respuesta ya se escribió.
func parseBody(c *fiber.Ctx, out any) (ok bool, err error) {
	dec := json.NewDecoder(bytes.NewReader(c.Body()))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido: " + err.Error()})
	}
	if dec.More() {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido: contenido adicional"})
	}
	if fields := validateStruct(out); len(fields) > 0 {
		return false, validationError(c, "datos inválidos", fields)
	}
	return true, nil
}

// parseQuery carga los parámetros de consulta y los valida.
func parseQuery(c *fiber.Ctx, out any) (ok bool, err error) {
	if err := c.QueryParser(out); err != nil {
		return false, validationError(c, "parámetros inválidos", nil)
	}
	if fields := validateStruct(out); len(fields) > 0 {
		return false, validationError(c, "parámetros inválidos", fields)
	}
	return true, nil
}

func validateStruct(v any) []FieldError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Rule: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: strings.ToLower(fe.Field()), Rule: fe.Tag()})
	}
	return out
}

// paramID lee un parámetro de ruta entero positivo.
func paramID(c *fiber.Ctx, name string) (int64, bool) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, false
	}
	return int64(id), true
}

// parseDate interpreta YYYY-MM-DD en UTC. Vacío = nil.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dto.DateLayout, s, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// periodRange convierte from/to (to inclusivo) o month/year al intervalo semiabierto [from, to).
func periodRange(q dto.PeriodQuery) (from, to *time.Time, err error) {
	return analytics.ParsePeriod(q.From, q.To, q.Month, q.Year)
}
