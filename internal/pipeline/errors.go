package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoEligibleEvent signals that every ranked candidate was already seen.
// It is an expected outcome, not a failure: the cycle ends cleanly.
var ErrNoEligibleEvent = errors.New("no eligible event")

// ErrorKind clasifica un fallo del pipeline por cómo debe reaccionarse,
// no por dónde ocurrió.
type ErrorKind int

const (
	// KindTransient: red, timeouts, rate limits. Reintentable con backoff.
	KindTransient ErrorKind = iota

	// KindValidation: datos malformados de un registro concreto. Se
	// descarta el registro y el ciclo continúa.
	KindValidation

	// KindCapitalSafety: la precondición de capital o conectividad falló.
	// El ciclo aborta ANTES de enviar nada — nunca se reintenta dentro
	// del mismo ciclo.
	KindCapitalSafety

	// KindAmbiguous: una submission pudo o no haber llegado al exchange.
	// Prohibido reenviar sin reconciliar antes por ClientRequestID.
	KindAmbiguous
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindValidation:
		return "validation"
	case KindCapitalSafety:
		return "capital-safety"
	case KindAmbiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// classifiedError lleva el kind junto al error original.
type classifiedError struct {
	kind ErrorKind
	err  error
}

func (e *classifiedError) Error() string {
	return fmt.Sprintf("%s: %v", e.kind, e.err)
}

func (e *classifiedError) Unwrap() error { return e.err }

// classify envuelve err con el kind dado. nil pasa de largo.
func classify(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{kind: kind, err: err}
}

// KindOf extrae el ErrorKind de un error clasificado. Errores sin
// clasificar se tratan como transitorios — el default más conservador
// para todo lo que no mueve capital.
func KindOf(err error) ErrorKind {
	var ce *classifiedError
	if errors.As(err, &ce) {
		return ce.kind
	}
	return KindTransient
}
