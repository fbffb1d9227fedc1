package polymarket

import "encoding/json"

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go. Los campos que no
// aparecen aquí se ignoran al decodificar — el contrato estricto se aplica
// en la validación, no en el parseo.

// --- Gamma API ---

// gammaEventsResponse es la respuesta de GET /events (array plano).
type gammaEventsResponse []gammaEvent

// gammaEvent es un evento crudo de Gamma. Gamma devuelve muchos numéricos
// como strings JSON, usamos json.Number.
type gammaEvent struct {
	ID              json.Number       `json:"id"`
	Slug            string            `json:"slug"`
	Title           string            `json:"title"`
	Active          bool              `json:"active"`
	Closed          bool              `json:"closed"`
	CreatedAt       string            `json:"createdAt"`
	StartDate       string            `json:"startDate"`
	EndDate         string            `json:"endDate"`
	Liquidity       json.Number       `json:"liquidity"`
	Volume          json.Number       `json:"volume"`
	OpenInterest    json.Number       `json:"openInterest"`
	EnableOrderBook bool              `json:"enableOrderBook"`
	Tags            []gammaTag        `json:"tags"`
	Markets         []gammaMarketLite `json:"markets"`
}

// gammaTag es un tag asociado a un evento o del catálogo /tags.
type gammaTag struct {
	ID    json.Number `json:"id"`
	Slug  string      `json:"slug"`
	Label string      `json:"label"`
}

// gammaTagsResponse es la respuesta de GET /tags.
type gammaTagsResponse []gammaTag

// gammaMarketLite es la vista condensada de un mercado dentro del evento.
// clobTokenIds llega a veces como array JSON y a veces como string con el
// array serializado dentro — parseStringList cubre ambos.
type gammaMarketLite struct {
	ID              json.Number     `json:"id"`
	Slug            string          `json:"slug"`
	Question        string          `json:"question"`
	EndDate         string          `json:"endDate"`
	EnableOrderBook bool            `json:"enableOrderBook"`
	AcceptingOrders *bool           `json:"acceptingOrders"`
	OrderMinSize    json.Number     `json:"orderMinSize"`
	TickSize        json.Number     `json:"orderPriceMinTickSize"`
	ClobTokenIDs    json.RawMessage `json:"clobTokenIds"`
	BestBid         json.Number     `json:"bestBid"`
	BestAsk         json.Number     `json:"bestAsk"`
	BestBidSize     json.Number     `json:"bestBidSize"`
	BestAskSize     json.Number     `json:"bestAskSize"`
}

// --- CLOB API ---

// clobTimeResponse es la respuesta de GET /time (timestamp del servidor).
type clobTimeResponse struct {
	ServerTime json.Number `json:"server_time"`
}

// clobOrderRequest es el body de POST /order.
type clobOrderRequest struct {
	Order     clobOrderBody `json:"order"`
	OrderType string        `json:"orderType"`
}

type clobOrderBody struct {
	TokenID  string  `json:"tokenId"`
	Price    float64 `json:"price"`
	Size     float64 `json:"size"`
	Side     string  `json:"side"`
	ClientID string  `json:"clientId"`
}

type clobOrderResponse struct {
	ErrorMsg string `json:"errorMsg"`
	OrderID  string `json:"orderID"`
	Status   string `json:"status"`
	Success  bool   `json:"success"`
}

// clobOrder es una orden tal y como la devuelve GET /data/order/{id}
// y GET /data/orders.
type clobOrder struct {
	ID           string `json:"id"`
	ClientID     string `json:"client_id"`
	AssetID      string `json:"asset_id"`
	Market       string `json:"market"`
	Side         string `json:"side"`
	OriginalSize string `json:"original_size"`
	SizeMatched  string `json:"size_matched"`
	Price        string `json:"price"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
}

type clobOrdersResponse struct {
	Data       []clobOrder `json:"data"`
	NextCursor string      `json:"next_cursor"`
}

// --- Estimador externo ---

// estimateResponse es la respuesta del servicio de viabilidad.
type estimateResponse struct {
	EventID     string      `json:"event_id"`
	Probability json.Number `json:"probability"`
}
