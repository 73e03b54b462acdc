// Package format turns raw oracle values into the text shown to the operator.
package format

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/params"
)

// PriceDecimals is the scaling used by the upstream Chainlink feeds.
const PriceDecimals = 8

var priceScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(PriceDecimals), nil)

// Formatter renders (price, timestamp) pairs. The zero value formats in the
// host's local time zone with the en-US layout.
type Formatter struct {
	Location *time.Location
	Layout   string
}

// New returns a Formatter for the host's time zone and locale.
func New() *Formatter {
	return &Formatter{
		Location: time.Local,
		Layout:   LayoutForLocale(HostLocale()),
	}
}

// Format renders a scaled price and a unix-seconds timestamp as
// "<price> | Fecha: <date-time>".
func (f *Formatter) Format(rawPrice, rawTimestamp *big.Int) string {
	return Price(rawPrice) + " | Fecha: " + f.Time(Timestamp(rawTimestamp))
}

// Time renders t in the formatter's location and layout.
func (f *Formatter) Time(t time.Time) string {
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	layout := f.Layout
	if layout == "" {
		layout = defaultLayout
	}
	return t.In(loc).Format(layout)
}

// Price divides raw by 10^8 and renders exactly two fractional digits.
func Price(raw *big.Int) string {
	if raw == nil {
		raw = new(big.Int)
	}
	return new(big.Rat).SetFrac(raw, priceScale).FloatString(2)
}

// Timestamp interprets raw as seconds since the Unix epoch.
func Timestamp(raw *big.Int) time.Time {
	if raw == nil || !raw.IsInt64() {
		return time.Unix(0, 0)
	}
	return time.Unix(raw.Int64(), 0)
}

// Ether converts a wei amount to ether. Trailing zeros are trimmed but at
// least one fractional digit is kept, so zero renders as "0.0".
func Ether(wei *big.Int) string {
	if wei == nil {
		wei = new(big.Int)
	}
	s := new(big.Rat).SetFrac(wei, big.NewInt(params.Ether)).FloatString(18)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}
