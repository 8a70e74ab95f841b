package payment

import (
	"github.com/polarsource/polar-sub007/internal/payment/stripe"
	"go.uber.org/fx"
)

var Module = fx.Module("payment",
	fx.Provide(stripe.NewRegistry),
)
