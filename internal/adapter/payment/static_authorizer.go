package payment

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// StaticAuthorizer gives the same answer for every amount. It stands in for
// a payment gateway in local runs and tests.
type StaticAuthorizer struct {
	approve bool
}

func NewApprovingAuthorizer() *StaticAuthorizer {
	return &StaticAuthorizer{approve: true}
}

func NewDecliningAuthorizer() *StaticAuthorizer {
	return &StaticAuthorizer{approve: false}
}

func (a *StaticAuthorizer) Authorize(ctx context.Context, amount decimal.Decimal) (bool, error) {
	log.Info().Str("amount", amount.StringFixed(2)).Bool("approved", a.approve).Msg("processing payment")
	return a.approve, nil
}
