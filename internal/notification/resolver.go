package notification

import (
	"context"
	"fmt"

	apperrors "dataset-notifier/internal/common/errors"
	"dataset-notifier/internal/models"
)

// Resolver computes message recipients for a template.
type Resolver struct {
	groups GroupDirectory
}

func NewResolver(groups GroupDirectory) *Resolver {
	return &Resolver{groups: groups}
}

// Internal returns the members of the template's recipient group. The result
// does not depend on any case.
func (r *Resolver) Internal(ctx context.Context, t *models.Template) ([]models.User, error) {
	if t.RecipientGroupID == "" {
		return nil, apperrors.NewInvalidRecipientError("INTERNAL", fmt.Sprintf("template %s has no recipient group", t.ID))
	}
	users, err := r.groups.GroupMembers(ctx, t.RecipientGroupID)
	if err != nil {
		return nil, apperrors.NewRecipientLookupFailedError(t.RecipientGroupID, err)
	}
	if len(users) == 0 {
		return nil, apperrors.NewInvalidRecipientError("INTERNAL", fmt.Sprintf("recipient group %s is empty", t.RecipientGroupID))
	}
	return users, nil
}

// ExternalForCase resolves endpoints from a single org unit. Every requested
// channel must be satisfiable by the unit.
func (r *Resolver) ExternalForCase(t *models.Template, unit *models.OrgUnit) (models.ExternalRecipients, error) {
	var out models.ExternalRecipients
	if unit == nil {
		return out, apperrors.NewInvalidRecipientError("EXTERNAL", "case has no organisation unit")
	}
	if len(t.DeliveryChannels) == 0 {
		return out, apperrors.NewInvalidRecipientError("EXTERNAL", fmt.Sprintf("template %s has no delivery channel", t.ID))
	}
	for _, ch := range t.DeliveryChannels {
		ok, err := acceptsUnit(ch, unit)
		if err != nil {
			return models.ExternalRecipients{}, err
		}
		if !ok {
			return models.ExternalRecipients{}, apperrors.NewInvalidRecipientError(string(ch), fmt.Sprintf("orgUnit: %s", unit.ID))
		}
		addEndpoint(ch, unit, &out)
	}
	return out, nil
}

// ExternalForDataSets collects endpoints from every source unit of the given
// datasets. Units lacking a channel's field are left out of that channel; an
// error is returned only when nothing at all could be collected.
func (r *Resolver) ExternalForDataSets(t *models.Template, dataSets ...*models.DataSet) (models.ExternalRecipients, error) {
	var out models.ExternalRecipients
	for _, ch := range t.DeliveryChannels {
		for _, ds := range dataSets {
			for _, unit := range ds.Sources {
				ok, err := acceptsUnit(ch, unit)
				if err != nil {
					return models.ExternalRecipients{}, err
				}
				if ok {
					addEndpoint(ch, unit, &out)
				}
			}
		}
	}
	if out.IsEmpty() {
		return out, apperrors.NewInvalidRecipientError("EXTERNAL", fmt.Sprintf("no source unit of template %s has a usable contact", t.ID))
	}
	return out, nil
}
