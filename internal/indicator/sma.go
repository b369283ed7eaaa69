// Package indicator computes simple moving averages over kline closes.
package indicator

import (
	"errors"
	"fmt"
	"math"
	"time"

	"futureswatch/internal/market"
)

var (
	// ErrInsufficientData means there are fewer candles than the longest period.
	ErrInsufficientData = errors.New("insufficient data for moving averages")
	// ErrNaN means one of the last two rows has an undefined average.
	ErrNaN = errors.New("moving average is NaN")
)

// Row is one candle with its moving averages.
type Row struct {
	Time  time.Time          `json:"time"`
	Close float64            `json:"close"`
	MAs   map[string]float64 `json:"mas"`
}

// SMA returns the rolling mean of values over period.
// Entries before index period-1 are NaN.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if period <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(period)
	}
	return out
}

// Compute calculates every MA in periods and returns the previous and
// current rows (the last two candles).
func Compute(klines []market.Kline, periods map[string]int) ([2]Row, error) {
	var rows [2]Row

	maxPeriod := 0
	for _, p := range periods {
		if p > maxPeriod {
			maxPeriod = p
		}
	}
	if len(klines) < 2 || len(klines) < maxPeriod {
		return rows, fmt.Errorf("%w: have %d candles, need %d", ErrInsufficientData, len(klines), maxPeriod)
	}

	closes := market.Closes(klines)
	series := make(map[string][]float64, len(periods))
	for name, p := range periods {
		series[name] = SMA(closes, p)
	}

	last := len(klines) - 1
	for i, idx := range []int{last - 1, last} {
		row := Row{
			Time:  klines[idx].OpenTime,
			Close: klines[idx].Close,
			MAs:   make(map[string]float64, len(periods)),
		}
		for name, values := range series {
			v := values[idx]
			if math.IsNaN(v) {
				return [2]Row{}, fmt.Errorf("%w: %s at candle %d", ErrNaN, name, idx)
			}
			row.MAs[name] = v
		}
		rows[i] = row
	}
	return rows, nil
}
