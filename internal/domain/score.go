package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

var inf = math.Inf(1)

// Pesos de la combinación de score. Suman 1.0 — el score final queda en [0,1].
const (
	weightUrgency      = 0.35
	weightLiquidity    = 0.30
	weightVolume       = 0.20
	weightOpenInterest = 0.15

	// NeutralProbability es el valor que toma la señal externa de viabilidad
	// cuando el estimador falla o no está configurado. No empuja en ninguna
	// dirección.
	NeutralProbability = 0.5
)

// ScoreRecord es el resultado del scoring de un evento. Se crea por pasada
// y se descarta tras la selección; rationale queda para el audit log.
type ScoreRecord struct {
	EventID   string
	Title     string
	Score     float64
	Liquidity float64
	Rationale string
}

// UrgencyScore mapea horas-hasta-cierre a [0,1]. La curva favorece eventos
// que resuelven pronto pero penaliza los que cierran en menos de una hora
// (demasiado tarde para colocar una orden con margen).
func UrgencyScore(hoursToEnd float64) float64 {
	switch {
	case hoursToEnd <= 0:
		return 0
	case hoursToEnd < 1:
		return clamp01(0.40 + hoursToEnd*0.20)
	case hoursToEnd <= 6:
		return clamp01(0.60 + (hoursToEnd-1.0)*0.08)
	case hoursToEnd <= 24:
		return clamp01(1.0 - (hoursToEnd-6.0)*(0.20/18.0))
	case hoursToEnd <= 48:
		return clamp01(0.80 - (hoursToEnd-24.0)*(0.40/24.0))
	default:
		return 0.20
	}
}

// DepthScore normaliza valores de liquidez/volumen/open interest a [0,1]
// con escala logarítmica: log10(v+1)/4 satura en v=10_000.
func DepthScore(value float64) float64 {
	if value <= 0 {
		return 0
	}
	return clamp01(math.Log10(value+1.0) / 4.0)
}

// ScoreEvent combina urgencia, liquidez, volumen y open interest en un score
// [0,1]. probability es la señal externa de viabilidad; usar
// NeutralProbability cuando no esté disponible.
func ScoreEvent(e EventSummary, probability float64, now time.Time) ScoreRecord {
	probability = clamp01(probability)
	urgency := UrgencyScore(e.HoursToEnd(now)) * probability
	liq := DepthScore(e.Liquidity)
	vol := DepthScore(e.Volume)
	oi := DepthScore(e.OpenInterest)

	score := weightUrgency*urgency +
		weightLiquidity*liq +
		weightVolume*vol +
		weightOpenInterest*oi

	return ScoreRecord{
		EventID:   e.ID,
		Title:     e.Title,
		Score:     score,
		Liquidity: e.Liquidity,
		Rationale: fmt.Sprintf("urgency=%.3f prob=%.2f liquidity=%.3f volume=%.3f oi=%.3f",
			urgency, probability, liq, vol, oi),
	}
}

// RankRecords ordena los records por score descendente de forma totalmente
// determinista: empates se rompen por mayor liquidez y después por id
// lexicográfico ascendente.
func RankRecords(records []ScoreRecord) []ScoreRecord {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Score != records[j].Score {
			return records[i].Score > records[j].Score
		}
		if records[i].Liquidity != records[j].Liquidity {
			return records[i].Liquidity > records[j].Liquidity
		}
		return records[i].EventID < records[j].EventID
	})
	return records
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
