package models

import (
	"fmt"
	"time"
)

// Collection names as stored under tenants/{tenant}/.
const (
	CollectionCustomers   = "customers"
	CollectionProducts    = "products"
	CollectionOrders      = "orders"
	CollectionShipments   = "shipments"
	CollectionQuotes      = "quotes"
	CollectionMeetings    = "meetings"
	CollectionActivityLog = "activity_log"
)

// MirroredCollections are the collections the data layer keeps live
// local copies of. The activity log is write-only from this client.
var MirroredCollections = []string{
	CollectionCustomers,
	CollectionProducts,
	CollectionOrders,
	CollectionShipments,
	CollectionQuotes,
	CollectionMeetings,
}

// Wire field names shared by every entity document.
const (
	FieldIsDeleted = "isDeleted"
	FieldDeletedAt = "deletedAt"
)

// TenantCollectionPath builds the document-db path for a tenant-scoped
// collection: tenants/{tenant}/{collection}.
func TenantCollectionPath(tenantId, collection string) string {
	return fmt.Sprintf("tenants/%s/%s", tenantId, collection)
}

// SoftDeleteMarker carries the two fields every entity gains when it is
// soft deleted. Documents are never physically removed by this client.
type SoftDeleteMarker struct {
	IsDeleted bool       `json:"isDeleted"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

func (m SoftDeleteMarker) Deleted() bool { return m.IsDeleted }

// FilterDeleted drops soft-deleted documents from a decoded snapshot.
// Every read-side derivation goes through this; the raw documents stay
// visible only to lookups by id.
func FilterDeleted[T interface{ Deleted() bool }](in []T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if !v.Deleted() {
			out = append(out, v)
		}
	}
	return out
}
