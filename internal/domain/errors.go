package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrStorage           = errors.New("fallo de almacenamiento")
	ErrUnauthorized      = errors.New("no autorizado")
)

// InsufficientStockError detalla el rechazo de una salida: cuánto había disponible en la existencia.
// errors.Is(err, ErrInsufficientStock) es verdadero.
type InsufficientStockError struct {
	BatchID   int64
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente en existencia %d: disponible %d, solicitado %d",
		e.BatchID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// StorageError envuelve una falla de persistencia (conexión, begin/commit, consulta).
// La transacción en curso se revierte; es el único error que el llamador puede reintentar tal cual.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Storage construye un StorageError. Si err ya es un error de dominio conocido se devuelve sin envolver.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsDomain indica si err pertenece a la taxonomía de dominio.
func IsDomain(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrStorage) ||
		errors.Is(err, ErrUnauthorized)
}
