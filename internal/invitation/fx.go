package invitation

import (
	"github.com/abbydulski/Runway-sub000/internal/invitation/repository"
	"github.com/abbydulski/Runway-sub000/internal/invitation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invitation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
