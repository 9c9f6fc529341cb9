package universe

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"quantfolio/internal/clients/yahoo"
)

// searcher is the slice of the Yahoo client the resolver needs
type searcher interface {
	Search(query string) ([]yahoo.SearchQuote, error)
}

// ResolvedSymbol is the outcome of mapping a user symbol to a Yahoo symbol
type ResolvedSymbol struct {
	UserSymbol  string `json:"user_symbol"`
	YahooSymbol string `json:"yahoo_symbol"`
	Exchange    string `json:"exchange,omitempty"`
	Currency    string `json:"currency,omitempty"`
	Name        string `json:"name,omitempty"`
}

// SymbolResolver maps user-supplied tickers to Yahoo Finance symbols using
// the search API, with a SQLite-backed cache so each symbol is resolved once.
type SymbolResolver struct {
	db     *sql.DB
	client searcher
	log    zerolog.Logger
}

// NewSymbolResolver creates a new symbol resolver
func NewSymbolResolver(db *sql.DB, client searcher, log zerolog.Logger) *SymbolResolver {
	return &SymbolResolver{
		db:     db,
		client: client,
		log:    log.With().Str("component", "symbol_resolver").Logger(),
	}
}

// Resolve maps a user symbol to a Yahoo symbol. Cached resolutions win;
// otherwise the search API is queried and the best candidate stored. When the
// search yields nothing usable the uppercased user symbol passes through
// unchanged so obviously-valid tickers keep working offline.
func (r *SymbolResolver) Resolve(userSymbol string) (*ResolvedSymbol, error) {
	symbol := strings.ToUpper(strings.TrimSpace(userSymbol))
	if symbol == "" {
		return nil, fmt.Errorf("empty symbol")
	}

	if cached, err := r.lookupCache(symbol); err != nil {
		return nil, err
	} else if cached != nil {
		return cached, nil
	}

	resolved := r.searchBest(symbol)
	if err := r.storeCache(resolved); err != nil {
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache resolution")
	}
	return resolved, nil
}

// ResolveAll resolves a list of user symbols, failing on the first error
func (r *SymbolResolver) ResolveAll(userSymbols []string) ([]ResolvedSymbol, error) {
	out := make([]ResolvedSymbol, 0, len(userSymbols))
	for _, s := range userSymbols {
		res, err := r.Resolve(s)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %q: %w", s, err)
		}
		out = append(out, *res)
	}
	return out, nil
}

func (r *SymbolResolver) searchBest(symbol string) *ResolvedSymbol {
	quotes, err := r.client.Search(symbol)
	if err != nil {
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("Symbol search failed, using symbol as-is")
		return &ResolvedSymbol{UserSymbol: symbol, YahooSymbol: symbol}
	}

	var best *yahoo.SearchQuote
	bestScore := -1
	for i := range quotes {
		q := &quotes[i]
		if q.Symbol == "" {
			continue
		}
		score := scoreCandidate(q, symbol)
		if score > bestScore {
			best = q
			bestScore = score
		}
	}

	if best == nil {
		r.log.Warn().Str("symbol", symbol).Msg("No search candidates, using symbol as-is")
		return &ResolvedSymbol{UserSymbol: symbol, YahooSymbol: symbol}
	}

	name := best.ShortName
	if name == "" {
		name = best.LongName
	}
	return &ResolvedSymbol{
		UserSymbol:  symbol,
		YahooSymbol: strings.ToUpper(best.Symbol),
		Exchange:    best.Exchange,
		Currency:    best.Currency,
		Name:        name,
	}
}

// scoreCandidate ranks search candidates. An exact ticker match dominates;
// tradable instrument types and a ticker prefix match break ties.
func scoreCandidate(q *yahoo.SearchQuote, symbol string) int {
	score := 0
	candidate := strings.ToUpper(q.Symbol)

	if candidate == symbol {
		score += 10
	} else if strings.HasPrefix(candidate, symbol+".") {
		// Same ticker on a non-US listing
		score += 6
	} else if strings.HasPrefix(candidate, symbol) {
		score += 2
	}

	switch q.QuoteType {
	case "EQUITY", "ETF", "INDEX":
		score += 3
	case "MUTUALFUND":
		score += 1
	}

	return score
}

func (r *SymbolResolver) lookupCache(symbol string) (*ResolvedSymbol, error) {
	var res ResolvedSymbol
	var exchange, currency, name sql.NullString

	err := r.db.QueryRow(
		`SELECT user_symbol, yahoo_symbol, exchange, currency, name FROM symbol_cache WHERE user_symbol = ?`,
		symbol,
	).Scan(&res.UserSymbol, &res.YahooSymbol, &exchange, &currency, &name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query symbol cache: %w", err)
	}

	res.Exchange = exchange.String
	res.Currency = currency.String
	res.Name = name.String
	return &res, nil
}

func (r *SymbolResolver) storeCache(res *ResolvedSymbol) error {
	_, err := r.db.Exec(
		`INSERT OR REPLACE INTO symbol_cache (user_symbol, yahoo_symbol, exchange, currency, name, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		res.UserSymbol, res.YahooSymbol, res.Exchange, res.Currency, res.Name,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to store symbol cache entry: %w", err)
	}
	return nil
}
