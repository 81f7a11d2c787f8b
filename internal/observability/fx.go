package observability

import (
	"github.com/tunedeck/tunedeck/internal/observability/logger"
	"github.com/tunedeck/tunedeck/internal/observability/tracing"
	"go.uber.org/fx"
)

var Module = fx.Options(
	logger.Module,
	tracing.Module,
)
