package indicator

import (
	"fmt"
	"strings"

	"github.com/markcheno/go-talib"
)

// MaType represents moving average type
type MaType = talib.MaType

// Moving average type constants
const (
	TypeSMA   = talib.SMA   // Simple Moving Average
	TypeEMA   = talib.EMA   // Exponential Moving Average
	TypeWMA   = talib.WMA   // Weighted Moving Average
	TypeDEMA  = talib.DEMA  // Double Exponential Moving Average
	TypeTEMA  = talib.TEMA  // Triple Exponential Moving Average
	TypeTRIMA = talib.TRIMA // Triangular Moving Average
	TypeKAMA  = talib.KAMA  // Kaufman Adaptive Moving Average
)

var maTypes = map[string]MaType{
	"sma":   TypeSMA,
	"ema":   TypeEMA,
	"wma":   TypeWMA,
	"dema":  TypeDEMA,
	"tema":  TypeTEMA,
	"trima": TypeTRIMA,
	"kama":  TypeKAMA,
}

// ParseMaType maps a name such as "ema" to its moving average type.
// An empty name selects SMA.
func ParseMaType(name string) (MaType, error) {
	if name == "" {
		return TypeSMA, nil
	}
	maType, ok := maTypes[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown moving average %q", name)
	}
	return maType, nil
}

// MA calculates Moving Average with specified type
func MA(input []float64, period int, maType MaType) []float64 {
	return talib.Ma(input, period, maType)
}

// SMA calculates Simple Moving Average
func SMA(input []float64, period int) []float64 {
	return talib.Sma(input, period)
}

// EMA calculates Exponential Moving Average
func EMA(input []float64, period int) []float64 {
	return talib.Ema(input, period)
}
