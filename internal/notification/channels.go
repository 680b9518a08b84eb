package notification

import (
	apperrors "dataset-notifier/internal/common/errors"
	"dataset-notifier/internal/models"
)

// acceptsUnit reports whether unit carries the contact field channel needs.
func acceptsUnit(channel models.DeliveryChannel, unit *models.OrgUnit) (bool, error) {
	switch channel {
	case models.ChannelSMS:
		return unit.PhoneNumber != "", nil
	case models.ChannelEmail:
		return unit.Email != "", nil
	default:
		return false, apperrors.NewUnsupportedChannelError(string(channel))
	}
}

// addEndpoint appends unit's endpoint for channel to r, skipping duplicates.
// Callers validate the unit first.
func addEndpoint(channel models.DeliveryChannel, unit *models.OrgUnit, r *models.ExternalRecipients) {
	switch channel {
	case models.ChannelSMS:
		r.PhoneNumbers = appendUnique(r.PhoneNumbers, unit.PhoneNumber)
	case models.ChannelEmail:
		r.EmailAddresses = appendUnique(r.EmailAddresses, unit.Email)
	}
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
