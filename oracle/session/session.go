// Package session runs the interactive price console.
package session

import (
	"context"
	"fmt"
	"io"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"priceconverter/oracle/common"
	"priceconverter/oracle/format"
	"priceconverter/oracle/ui"
)

// State is the session state machine position.
type State int

const (
	StatePrompting State = iota
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StatePrompting:
		return "prompting"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	// MenuTitle is the question shown above the menu.
	MenuTitle = "¿Qué quieres consultar?"
	// Welcome is printed once when the session starts.
	Welcome = "📈 Bienvenido al CLI de consulta de precios Chainlink"
	// Farewell is printed when the operator chooses to exit.
	Farewell = "👋 Hasta pronto"
)

// Dispatcher runs a single query and reports its outcome.
type Dispatcher interface {
	Dispatch(ctx context.Context, spec common.QuerySpec) common.QueryResult
}

// Loop is the menu-driven query session.
type Loop struct {
	selector   ui.Selector
	dispatcher Dispatcher
	out        io.Writer
	logger     *zap.Logger
	state      State
}

// NewLoop creates a session loop in the prompting state.
func NewLoop(selector ui.Selector, dispatcher Dispatcher, out io.Writer, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		selector:   selector,
		dispatcher: dispatcher,
		out:        out,
		logger:     logger,
		state:      StatePrompting,
	}
}

// State returns the current state.
func (l *Loop) State() State {
	return l.state
}

// Run prompts, dispatches and prompts again until the exit choice is made.
// It returns nil after the farewell. Selector errors end the session and are
// returned to the caller.
func (l *Loop) Run(ctx context.Context) error {
	choices := common.MenuChoices()

	for l.state == StatePrompting {
		idx, err := l.selector.Select(ctx, MenuTitle, choices)
		if err != nil {
			return fmt.Errorf("menu selection failed: %w", err)
		}
		if idx < 0 || idx >= len(choices) {
			return fmt.Errorf("menu returned out-of-range choice %d", idx)
		}

		choice := choices[idx]
		if choice == common.ExitChoice {
			fmt.Fprintln(l.out, Farewell)
			l.state = StateTerminated
			l.logger.Info("Session terminated")
			break
		}

		spec, _ := common.QueryByChoice(choice)
		result := l.dispatcher.Dispatch(ctx, spec)
		l.logger.Debug("Query finished",
			zap.String("label", result.Label),
			zap.Bool("ok", result.OK))
	}
	return nil
}

// BalanceReader fetches an account balance in wei.
type BalanceReader interface {
	BalanceAt(ctx context.Context, account ethcommon.Address) (*big.Int, error)
}

// BalanceReporter prints the session account's balance once at startup.
type BalanceReporter struct {
	ledger  BalanceReader
	account func() (ethcommon.Address, error)
	out     io.Writer
}

// NewBalanceReporter creates a reporter. account is resolved at report time
// so an invalid key surfaces there.
func NewBalanceReporter(ledger BalanceReader, account func() (ethcommon.Address, error), out io.Writer) *BalanceReporter {
	return &BalanceReporter{ledger: ledger, account: account, out: out}
}

// Report prints "Saldo disponible: <ether> ETH".
func (r *BalanceReporter) Report(ctx context.Context) error {
	addr, err := r.account()
	if err != nil {
		return fmt.Errorf("failed to resolve session account: %w", err)
	}
	balance, err := r.ledger.BalanceAt(ctx, addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "💰 Saldo disponible: %s ETH\n", format.Ether(balance))
	return nil
}

// Console ties the startup balance report to the query loop.
type Console struct {
	Reporter *BalanceReporter
	Loop     *Loop
	Out      io.Writer
	Logger   *zap.Logger
	// FatalBalance ends the session when the startup balance lookup fails.
	FatalBalance bool
}

// Run prints the welcome banner, reports the balance once and then runs the
// loop until the operator exits.
func (c *Console) Run(ctx context.Context) error {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fmt.Fprintln(c.Out, Welcome)
	if err := c.Reporter.Report(ctx); err != nil {
		if c.FatalBalance {
			return fmt.Errorf("balance check failed: %w", err)
		}
		logger.Warn("Balance check failed, continuing", zap.Error(err))
		fmt.Fprintf(c.Out, "⚠️  No se pudo obtener el saldo: %s\n", err.Error())
	}
	return c.Loop.Run(ctx)
}
