package mirror

import "bitbucket.org/mmdatafocus/crm_backend/models"

// Aggregate status transitions. There is deliberately no per-collection
// health: one failing collection among several healthy ones reports a
// single Error to consumers.
//
//	Connecting -> Connected   (any successful notification)
//	Connecting -> Error       (any error notification)
//	Connected  -> Error
//	NoTenant absorbing while no authenticated identity is present;
//	Error sticky until the tenant identity changes.

func statusAfterSuccess(cur models.ConnectionStatus) models.ConnectionStatus {
	switch cur {
	case models.ConnectionStatusNoTenant, models.ConnectionStatusError:
		return cur
	default:
		return models.ConnectionStatusConnected
	}
}

func statusAfterError(cur models.ConnectionStatus) models.ConnectionStatus {
	if cur == models.ConnectionStatusNoTenant {
		return cur
	}
	return models.ConnectionStatusError
}
