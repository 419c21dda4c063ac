package business

import (
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/bizplannaija/internal/business/service"
	"go.uber.org/fx"
)

var Module = fx.Module("business.service",
	fx.Provide(newValidator),
	fx.Provide(service.NewService),
)

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}
