package feeds

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"priceconverter/oracle/common"
	"priceconverter/oracle/format"
)

// ErrMalformedResponse is returned when a feed read does not decode into
// exactly two integers.
var ErrMalformedResponse = errors.New("malformed response")

// Caller invokes a zero-argument read-only contract method by name.
type Caller interface {
	Call(ctx context.Context, method string) ([]interface{}, error)
}

// Indicator reports the progress of a single in-flight query.
type Indicator interface {
	Start(text string)
	Succeed(text string)
	Fail(text string)
}

// RoundData is the decoded (answer, updatedAt) pair returned by every feed.
type RoundData struct {
	RawPrice     *big.Int
	RawTimestamp *big.Int
}

// NewRoundData validates a decoded call result.
func NewRoundData(values []interface{}) (RoundData, error) {
	if len(values) != 2 {
		return RoundData{}, fmt.Errorf("%w: expected 2 values, got %d", ErrMalformedResponse, len(values))
	}
	price, ok := values[0].(*big.Int)
	if !ok || price == nil {
		return RoundData{}, fmt.Errorf("%w: price is %T, want integer", ErrMalformedResponse, values[0])
	}
	timestamp, ok := values[1].(*big.Int)
	if !ok || timestamp == nil {
		return RoundData{}, fmt.Errorf("%w: timestamp is %T, want integer", ErrMalformedResponse, values[1])
	}
	return RoundData{RawPrice: price, RawTimestamp: timestamp}, nil
}

// Dispatcher runs oracle queries. It holds no state between calls.
type Dispatcher struct {
	caller    Caller
	indicator Indicator
	formatter *format.Formatter
	logger    *zap.Logger
}

type nopIndicator struct{}

func (nopIndicator) Start(string)   {}
func (nopIndicator) Succeed(string) {}
func (nopIndicator) Fail(string)    {}

// NewDispatcher creates a Dispatcher. A nil formatter formats in local time
// and a nil indicator reports nothing.
func NewDispatcher(caller Caller, indicator Indicator, formatter *format.Formatter, logger *zap.Logger) *Dispatcher {
	if indicator == nil {
		indicator = nopIndicator{}
	}
	if formatter == nil {
		formatter = format.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		caller:    caller,
		indicator: indicator,
		formatter: formatter,
		logger:    logger,
	}
}

// Formatter returns the formatter used for results.
func (d *Dispatcher) Formatter() *format.Formatter {
	return d.formatter
}

// Fetch reads and validates one feed. Panics raised by the caller are
// recovered and returned as errors.
func (d *Dispatcher) Fetch(ctx context.Context, spec common.QuerySpec) (round RoundData, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", spec.Operation, r)
		}
	}()

	values, err := d.caller.Call(ctx, spec.Operation)
	if err != nil {
		return RoundData{}, err
	}
	return NewRoundData(values)
}

// Dispatch runs one query with progress feedback. It never returns an error:
// failures are reported through the indicator and the result.
func (d *Dispatcher) Dispatch(ctx context.Context, spec common.QuerySpec) common.QueryResult {
	d.indicator.Start(fmt.Sprintf("Obteniendo %s...", spec.Label))

	round, err := d.Fetch(ctx, spec)
	if err != nil {
		d.logger.Warn("Query failed",
			zap.String("label", spec.Label),
			zap.String("operation", spec.Operation),
			zap.Error(err))
		d.indicator.Fail(fmt.Sprintf("Error al consultar %s: %s", spec.Label, err.Error()))
		return common.QueryResult{Label: spec.Label, Err: err}
	}

	display := fmt.Sprintf("%s: %s", spec.Label, d.formatter.Format(round.RawPrice, round.RawTimestamp))
	d.logger.Debug("Query succeeded",
		zap.String("label", spec.Label),
		zap.String("raw_price", round.RawPrice.String()),
		zap.String("raw_timestamp", round.RawTimestamp.String()))
	d.indicator.Succeed(display)

	return common.QueryResult{
		Label:     spec.Label,
		Price:     format.Price(round.RawPrice),
		Timestamp: format.Timestamp(round.RawTimestamp),
		Display:   display,
		OK:        true,
	}
}
