package invoice

import (
	"github.com/smallbiznis/folio/internal/invoice/service"
	productdomain "github.com/smallbiznis/folio/internal/product/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(
		service.NewService,
		func(p productdomain.Service) service.ProductCatalog { return p },
	),
)
