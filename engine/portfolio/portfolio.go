// Package portfolio holds the composite input types whose underlying security
// drives function resolution when no function matches the composite itself.
package portfolio

import (
	"errors"
	"fmt"
	"time"

	"github.com/govalues/decimal"
)

var ErrPermissionDenied = errors.New("permission denied")

// Security is the payload wrapped by positions and trades.
type Security interface {
	SecurityID() string
}

// PositionOrTrade wraps a security.
//
// Security returns (nil, nil) when the holding has no security attached and an
// error wrapping ErrPermissionDenied when the caller may not see it.
type PositionOrTrade interface {
	Security() (Security, error)
}

// SecurityLink resolves the security referenced by a position or trade.
type SecurityLink interface {
	Resolve() (Security, error)
}

// ResolvedLink is a link whose security is already known.
type ResolvedLink struct {
	Target Security
}

func (l ResolvedLink) Resolve() (Security, error) {
	return l.Target, nil
}

// RestrictedLink is a link the current user is not entitled to follow.
type RestrictedLink struct {
	SecurityID string
}

func (l RestrictedLink) Resolve() (Security, error) {
	return nil, fmt.Errorf("%w: security %s", ErrPermissionDenied, l.SecurityID)
}

// Position is a holding of a quantity of a security.
type Position struct {
	ID       string
	Quantity decimal.Decimal
	Link     SecurityLink
}

var _ PositionOrTrade = Position{}

func (p Position) Security() (Security, error) {
	if p.Link == nil {
		return nil, nil
	}
	return p.Link.Resolve()
}

func (p Position) String() string {
	return "Position(" + p.ID + ")"
}

// Trade is a single transaction in a security.
type Trade struct {
	ID        string
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	TradeDate time.Time
	Link      SecurityLink
}

var _ PositionOrTrade = Trade{}

func (t Trade) Security() (Security, error) {
	if t.Link == nil {
		return nil, nil
	}
	return t.Link.Resolve()
}

func (t Trade) String() string {
	return "Trade(" + t.ID + ")"
}

// Equity is a simple listed security.
type Equity struct {
	Ticker   string
	Currency string
}

func (e Equity) SecurityID() string { return e.Ticker }

func (e Equity) String() string { return "Equity(" + e.Ticker + ")" }

// Bond is a fixed-coupon security.
type Bond struct {
	ISIN     string
	Coupon   decimal.Decimal
	Maturity time.Time
}

func (b Bond) SecurityID() string { return b.ISIN }

func (b Bond) String() string { return "Bond(" + b.ISIN + ")" }
