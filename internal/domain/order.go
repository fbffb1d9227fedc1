package domain

import "time"

// OrderStatus es el estado terminal (o intermedio) de una orden en el exchange.
type OrderStatus string

const (
	OrderAccepted        OrderStatus = "ACCEPTED"
	OrderRejected        OrderStatus = "REJECTED"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderFilled          OrderStatus = "FILLED"
	OrderFailed          OrderStatus = "FAILED"
)

// Terminal devuelve true si el estado no va a cambiar más.
// PARTIALLY_FILLED cuenta como terminal: la orden llegó al libro y el
// capital está comprometido — el evento queda consumido.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderAccepted, OrderRejected, OrderPartiallyFilled, OrderFilled, OrderFailed:
		return true
	}
	return false
}

// ExecState es el estado de la máquina del controlador de ejecución.
type ExecState string

const (
	ExecIdle              ExecState = "IDLE"
	ExecSelected          ExecState = "SELECTED"
	ExecReadinessVerified ExecState = "READINESS_VERIFIED"
	ExecSubmitted         ExecState = "SUBMITTED"
	ExecConfirmed         ExecState = "CONFIRMED"
	ExecRejected          ExecState = "REJECTED"
	ExecTimedOut          ExecState = "TIMED_OUT"
	ExecTerminal          ExecState = "TERMINAL"
)

// Connectivity es el resultado del probe de conectividad del exchange.
type Connectivity int

const (
	ConnUnreachable Connectivity = iota
	ConnDegraded
	ConnHealthy
)

func (c Connectivity) String() string {
	switch c {
	case ConnHealthy:
		return "healthy"
	case ConnDegraded:
		return "degraded"
	default:
		return "unreachable"
	}
}

// OrderIntent describe una única submission lógica de orden.
// ClientRequestID es la clave de idempotencia: estable a través de los
// reintentos de la MISMA submission.
type OrderIntent struct {
	EventID         string
	MarketID        string
	TokenID         string
	Side            string // BUY | SELL
	Size            float64
	LimitPrice      float64
	ClientRequestID string
}

// RequiredBalance es el capital que la orden puede llegar a comprometer.
func (i OrderIntent) RequiredBalance() float64 {
	return i.Size * i.LimitPrice
}

// OrderResult es el desenlace de un intento de orden tal y como lo reporta
// el exchange. Se persiste en el audit log, un registro por intento terminal.
type OrderResult struct {
	Status          OrderStatus
	ExternalOrderID string
	FilledSize      float64
	AvgPrice        float64
	RawStatus       string // último estado crudo del exchange, para auditoría
}

// AuditRecord es una entrada append-only del audit log.
type AuditRecord struct {
	Timestamp time.Time
	EventID   string
	Decision  string
	Intent    OrderIntent
	Result    OrderResult
	Detail    string
}
