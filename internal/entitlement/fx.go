package entitlement

import (
	"github.com/smallbiznis/bizplannaija/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("entitlement",
	fx.Provide(newEvaluator),
)

func newEvaluator(cfg config.Config, holder *config.CatalogHolder) *Evaluator {
	return NewEvaluator(holder, Policy{
		MalformedTimestamp: ParseMalformedTimestampPolicy(cfg.Entitlement.MalformedTimestamp),
	})
}
