package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/amedina/polypilot/internal/domain"
)

// degradedLatency es el umbral a partir del cual la conectividad se reporta
// como degradada en vez de sana.
const degradedLatency = 2 * time.Second

// BalanceReader abstrae la fuente del balance disponible (lectura on-chain).
type BalanceReader interface {
	Balance(ctx context.Context, asset string) (float64, error)
}

// Exchange implementa ports.ExchangeClient sobre el CLOB de Polymarket.
// El balance se lee on-chain a través del BalanceReader inyectado.
type Exchange struct {
	client  *Client
	balance BalanceReader
}

// NewExchange crea el cliente de exchange.
func NewExchange(client *Client, balance BalanceReader) *Exchange {
	return &Exchange{client: client, balance: balance}
}

// CheckConnectivity hace un único probe a GET /time y clasifica el resultado.
// Los reintentos y el backoff son responsabilidad del gate, no de esta capa.
func (e *Exchange) CheckConnectivity(ctx context.Context) (domain.Connectivity, error) {
	start := time.Now()

	var resp clobTimeResponse
	u := e.client.clobBase + "/time"
	if err := e.client.get(ctx, e.client.clobLimiter, u, &resp); err != nil {
		return domain.ConnUnreachable, fmt.Errorf("polymarket.Exchange: time probe: %w", err)
	}

	latency := time.Since(start)
	if latency > degradedLatency {
		slog.Warn("exchange responding slowly", "latency", latency)
		return domain.ConnDegraded, nil
	}
	return domain.ConnHealthy, nil
}

// GetBalance devuelve el balance disponible del asset, leído on-chain.
func (e *Exchange) GetBalance(ctx context.Context, asset string) (float64, error) {
	bal, err := e.balance.Balance(ctx, asset)
	if err != nil {
		return 0, fmt.Errorf("polymarket.Exchange: balance %s: %w", asset, err)
	}
	return bal, nil
}

// SubmitOrder envía una orden límite GTC. La llamada NO se reintenta a este
// nivel: si falla con resultado ambiguo, el controlador reconcilia por
// ClientRequestID antes de decidir reenviar.
func (e *Exchange) SubmitOrder(ctx context.Context, intent domain.OrderIntent) (domain.OrderResult, error) {
	req := clobOrderRequest{
		Order: clobOrderBody{
			TokenID:  intent.TokenID,
			Price:    intent.LimitPrice,
			Size:     intent.Size,
			Side:     strings.ToUpper(intent.Side),
			ClientID: intent.ClientRequestID,
		},
		OrderType: "GTC",
	}

	var resp clobOrderResponse
	u := e.client.clobBase + "/order"
	if err := e.client.postOnce(ctx, e.client.clobLimiter, u, req, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket.Exchange: submit order: %w", err)
	}

	if !resp.Success {
		return domain.OrderResult{
			Status:    domain.OrderRejected,
			RawStatus: resp.Status,
		}, fmt.Errorf("polymarket.Exchange: order rejected: %s", resp.ErrorMsg)
	}

	return domain.OrderResult{
		Status:          mapSubmitStatus(resp.Status),
		ExternalOrderID: resp.OrderID,
		RawStatus:       resp.Status,
	}, nil
}

// GetOrderStatus consulta el estado actual de una orden por su id externo.
func (e *Exchange) GetOrderStatus(ctx context.Context, externalOrderID string) (domain.OrderResult, error) {
	var o clobOrder
	u := e.client.clobBase + "/data/order/" + url.PathEscape(externalOrderID)
	if err := e.client.get(ctx, e.client.clobLimiter, u, &o); err != nil {
		return domain.OrderResult{}, fmt.Errorf("polymarket.Exchange: order status %s: %w", externalOrderID, err)
	}
	return mapClobOrder(o), nil
}

// FindOrderByClientID busca una orden existente con el clientRequestId dado.
// found=false sin error significa que no hay orden y reenviar es seguro.
func (e *Exchange) FindOrderByClientID(ctx context.Context, clientRequestID string) (domain.OrderResult, bool, error) {
	q := url.Values{}
	q.Set("client_id", clientRequestID)

	var resp clobOrdersResponse
	u := fmtURL(e.client.clobBase, "/data/orders", q.Encode())
	if err := e.client.get(ctx, e.client.clobLimiter, u, &resp); err != nil {
		return domain.OrderResult{}, false, fmt.Errorf("polymarket.Exchange: find order by client id: %w", err)
	}

	for _, o := range resp.Data {
		if o.ClientID == clientRequestID {
			return mapClobOrder(o), true, nil
		}
	}
	return domain.OrderResult{}, false, nil
}

// mapSubmitStatus mapea el status de la respuesta de POST /order.
// "live" y "matched" son aceptación; "delayed" también — la orden existe
// en el exchange aunque aún no esté en el libro.
func mapSubmitStatus(raw string) domain.OrderStatus {
	switch strings.ToLower(raw) {
	case "matched":
		return domain.OrderFilled
	case "live", "delayed":
		return domain.OrderAccepted
	case "unmatched":
		return domain.OrderAccepted
	default:
		return domain.OrderAccepted
	}
}
