package signup

import (
	"context"

	provisioningdomain "github.com/abbydulski/Runway-sub000/internal/provisioning/domain"
	"github.com/abbydulski/Runway-sub000/internal/signup/domain"
	userdomain "github.com/abbydulski/Runway-sub000/internal/user/domain"
)

type noopProvisioner struct{}

func NewNoopProvisioner() domain.Provisioner {
	return &noopProvisioner{}
}

func (p *noopProvisioner) Provision(context.Context, *userdomain.User) error {
	return nil
}

// DispatchProvisioner hands the new employee to the provisioning dispatcher.
type DispatchProvisioner struct {
	dispatcher provisioningdomain.Dispatcher
}

func NewDispatchProvisioner(dispatcher provisioningdomain.Dispatcher) domain.Provisioner {
	if dispatcher == nil {
		return NewNoopProvisioner()
	}
	return &DispatchProvisioner{dispatcher: dispatcher}
}

func (p *DispatchProvisioner) Provision(ctx context.Context, user *userdomain.User) error {
	req := provisioningdomain.Request{
		UserID:         user.ID.String(),
		OrganizationID: user.OrgID.String(),
	}
	if user.TeamID != nil {
		req.TeamID = user.TeamID.String()
	}
	// The request context ends with the HTTP response; the run must outlive it.
	return p.dispatcher.Dispatch(context.WithoutCancel(ctx), req)
}
