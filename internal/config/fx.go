package config

import (
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(
		Load,
		NewDocumentDefaultsHolder,
		func(h *DocumentDefaultsHolder) DocumentDefaultsSource { return h },
	),
)
