package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: resultado válido sin datos (p.ej. no existe pool para el par).
	ErrNotFound = errors.New("not found")
	// ErrUnavailable: el upstream respondió explícitamente sin datos (precio cero o vacío).
	ErrUnavailable = errors.New("price unavailable")
)

// SourceError es un fallo de transporte/HTTP/parseo en un adapter.
// Siempre recuperable a nivel de ciclo: el símbolo simplemente no participa.
type SourceError struct {
	Source Source
	Symbol string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s source error for %s: %v", e.Source, e.Symbol, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// ValidationError indica que un registro no cumple los invariantes del modelo.
type ValidationError struct {
	Source Source
	Symbol string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s record for %s: %s", e.Source, e.Symbol, e.Reason)
}

// SinkError indica que un snapshot no se pudo persistir.
// No invalida los resultados de detección en memoria.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// IsAbsence devuelve true para los resultados que no son error (not found / unavailable).
func IsAbsence(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable)
}
