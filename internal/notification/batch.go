package notification

import "dataset-notifier/internal/models"

// MessageBatch is the unit of dispatch. The two lists are sent independently.
type MessageBatch struct {
	Internal []models.InternalMessage
	External []models.ExternalMessage
}

// Merge appends other's messages to b.
func (b *MessageBatch) Merge(other *MessageBatch) {
	if other == nil {
		return
	}
	b.Internal = append(b.Internal, other.Internal...)
	b.External = append(b.External, other.External...)
}

func (b *MessageBatch) Count() int {
	if b == nil {
		return 0
	}
	return len(b.Internal) + len(b.External)
}

func (b *MessageBatch) IsEmpty() bool {
	return b.Count() == 0
}
