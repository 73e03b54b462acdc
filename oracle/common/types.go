package common

import (
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// --- Network Configuration Structures ---

// FeedSet holds the Chainlink aggregator addresses the PriceConverter contract
// is constructed with. Order matters: it is the constructor argument order.
type FeedSet struct {
	BTCUSD ethcommon.Address `yaml:"btcUsd"`
	ETHUSD ethcommon.Address `yaml:"ethUsd"`
	EURUSD ethcommon.Address `yaml:"eurUsd"`
}

// Args returns the feeds in constructor order (BTC/USD, ETH/USD, EUR/USD).
func (f FeedSet) Args() []interface{} {
	return []interface{}{f.BTCUSD, f.ETHUSD, f.EURUSD}
}

// Network defines a ledger network the console can connect to.
type Network struct {
	Name           string  `yaml:"-"`              // Key in the catalogue (e.g., "sepolia")
	ChainID        int64   `yaml:"chainId"`        // EIP-155 chain id
	NativeCurrency string  `yaml:"nativeCurrency"` // Symbol of the gas token
	RPCURLTemplate string  `yaml:"rpcUrl"`         // May contain {apiKey}
	Feeds          FeedSet `yaml:"feeds"`
}

// --- End Network Configuration Structures ---

// --- Runtime Structures ---

// QuerySpec binds a menu choice to a zero-argument read-only contract method.
type QuerySpec struct {
	Choice    string `json:"choice"`    // Menu text
	Label     string `json:"label"`     // Short label used in progress and result lines
	Operation string `json:"operation"` // Contract method name
	Slug      string `json:"feed"`      // URL-safe identifier used by the HTTP API
}

// QueryResult is the normalized outcome of one query. It is never persisted.
type QueryResult struct {
	Label     string
	Price     string    // Decimal price with two fractional digits
	Timestamp time.Time // Round update time
	Display   string    // Full line shown to the operator on success
	OK        bool
	Err       error
}

// Message returns the text shown for the outcome: the display string on
// success, the underlying error message on failure.
func (r QueryResult) Message() string {
	if r.OK {
		return r.Display
	}
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// --- End Runtime Structures ---

// ExitChoice is the menu entry that ends the session.
const ExitChoice = "Salir"

// Queries is the fixed, ordered set of oracle reads offered by the console.
var Queries = []QuerySpec{
	{Choice: "BTC en USD", Label: "BTC/USD", Operation: "getBTCinUSD", Slug: "btc-usd"},
	{Choice: "ETH en USD", Label: "ETH/USD", Operation: "getETHinUSD", Slug: "eth-usd"},
	{Choice: "USD → EUR", Label: "USD → EUR", Operation: "getUSDtoEUR", Slug: "usd-eur"},
	{Choice: "BTC en EUR", Label: "BTC/EUR", Operation: "getBTCinEUR", Slug: "btc-eur"},
	{Choice: "ETH en EUR", Label: "ETH/EUR", Operation: "getETHinEUR", Slug: "eth-eur"},
}

// MenuChoices returns the query choices followed by ExitChoice.
func MenuChoices() []string {
	choices := make([]string, 0, len(Queries)+1)
	for _, q := range Queries {
		choices = append(choices, q.Choice)
	}
	return append(choices, ExitChoice)
}

// QueryByChoice looks up a QuerySpec by its menu text.
func QueryByChoice(choice string) (QuerySpec, bool) {
	for _, q := range Queries {
		if q.Choice == choice {
			return q, true
		}
	}
	return QuerySpec{}, false
}

// QueryBySlug looks up a QuerySpec by its API identifier.
func QueryBySlug(slug string) (QuerySpec, bool) {
	for _, q := range Queries {
		if q.Slug == slug {
			return q, true
		}
	}
	return QuerySpec{}, false
}
