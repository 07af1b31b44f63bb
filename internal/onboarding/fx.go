package onboarding

import (
	"github.com/abbydulski/Runway-sub000/internal/onboarding/repository"
	"github.com/abbydulski/Runway-sub000/internal/onboarding/service"
	"go.uber.org/fx"
)

var Module = fx.Module("onboarding.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
