package indicators

import (
	"marketpulse/internal/models"
)

// VWAP calculates the Volume Weighted Average Price from typical prices.
// When session bounded, the running totals reset at each UTC day boundary.
type VWAP struct {
	sessionReset bool
}

// NewVWAP creates a new VWAP indicator.
func NewVWAP(sessionReset bool) *VWAP {
	return &VWAP{sessionReset: sessionReset}
}

func (v *VWAP) Name() string {
	if v.sessionReset {
		return "VWAP_SESSION"
	}
	return "VWAP"
}

func (v *VWAP) Period() int {
	return 1
}

func (v *VWAP) Calculate(candles []models.Candle) ([]float64, error) {
	if len(candles) == 0 {
		return nil, ErrInsufficientData
	}

	n := len(candles)
	result := make([]float64, n)

	var cumulativeTPV float64 // Cumulative Typical Price * Volume
	var cumulativeVol float64 // Cumulative Volume

	for i := 0; i < n; i++ {
		if v.sessionReset && i > 0 && newSession(candles[i-1], candles[i]) {
			cumulativeTPV, cumulativeVol = 0, 0
		}

		tp := typicalPrice(candles[i])
		cumulativeTPV += tp * candles[i].Volume
		cumulativeVol += candles[i].Volume

		// No traded volume yet in this session: fall back to the close.
		if cumulativeVol > 0 {
			result[i] = cumulativeTPV / cumulativeVol
		} else {
			result[i] = candles[i].Close
		}
	}

	return result, nil
}

func newSession(prev, cur models.Candle) bool {
	py, pm, pd := prev.Timestamp.UTC().Date()
	cy, cm, cd := cur.Timestamp.UTC().Date()
	return py != cy || pm != cm || pd != cd
}

// OBV calculates On-Balance Volume, starting from zero.
type OBV struct{}

// NewOBV creates a new OBV indicator.
func NewOBV() *OBV {
	return &OBV{}
}

func (o *OBV) Name() string {
	return "OBV"
}

func (o *OBV) Period() int {
	return 1
}

func (o *OBV) Calculate(candles []models.Candle) ([]float64, error) {
	if len(candles) == 0 {
		return nil, ErrInsufficientData
	}

	n := len(candles)
	result := make([]float64, n)

	for i := 1; i < n; i++ {
		switch {
		case candles[i].Close > candles[i-1].Close:
			result[i] = result[i-1] + candles[i].Volume
		case candles[i].Close < candles[i-1].Close:
			result[i] = result[i-1] - candles[i].Volume
		default:
			result[i] = result[i-1]
		}
	}

	return result, nil
}
