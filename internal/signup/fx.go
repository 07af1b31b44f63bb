package signup

import (
	provisioningdomain "github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	"github.com/abbydulski/Runway-sub000/internal/signup/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("signup.service",
	fx.Provide(newProvisioner),
	fx.Provide(NewService),
)

type provisionerParams struct {
	fx.In

	Dispatcher provisioningdomain.Dispatcher `optional:"true"`
}

func newProvisioner(p provisionerParams) domain.Provisioner {
	return NewDispatchProvisioner(p.Dispatcher)
}
