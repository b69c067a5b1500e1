// Package domain defines the persistence models for circulation requests and
// their reference data. These types are mapped with GORM and form the core
// data layer of the request storage service.
package domain

import (
	"time"
)

// Request represents a single circulation request (a hold, recall, or page)
// placed against an item. Requests with a non-null Position form the item's
// queue, ordered ascending with position 1 next to be filled.
//
// Fields:
//   - ID: stable UUID primary key (char(36)); immutable after creation.
//   - ItemID: the requested item; part of the queue uniqueness constraint.
//   - RequesterID / ProxyUserID: UUIDs of the requesting patron and, when
//     acting on behalf of someone else, the proxy.
//   - Position: nullable queue slot. At most one request per (item, position)
//     pair may exist at any time; the constraint is enforced by a composite
//     unique index checked at statement time, not at commit.
//   - RequestExpirationDate: when an unfilled request stops being worth
//     filling; only consulted while the request is open and not yet filled.
//   - HoldShelfExpirationDate: when a filled request stops waiting on the
//     hold shelf; only consulted while the request awaits pickup.
//   - AwaitingPickupRequestClosedDate: system-owned stamp written when a
//     request leaves the hold shelf into an expired or cancelled state.
type Request struct {
	ID                    string         `json:"id" gorm:"type:char(36);primaryKey"`
	RequestType           RequestType    `json:"requestType" gorm:"type:varchar(16);not null"`
	RequestDate           time.Time      `json:"requestDate"`
	RequesterID           string         `json:"requesterId" gorm:"type:char(36);not null;index"`
	ProxyUserID           string         `json:"proxyUserId,omitempty" gorm:"type:char(36)"`
	ItemID                string         `json:"itemId" gorm:"type:char(36);not null;index:idx_item_requests;uniqueIndex:ux_item_position,priority:1"`
	InstanceID            string         `json:"instanceId,omitempty" gorm:"type:char(36);index"`
	Status                RequestStatus  `json:"status" gorm:"type:varchar(32);not null;index"`
	Position              *int           `json:"position,omitempty" gorm:"uniqueIndex:ux_item_position,priority:2"`
	FulfilmentPreference  FulfilmentType `json:"fulfilmentPreference" gorm:"type:varchar(16)"`
	DeliveryAddressTypeID string         `json:"deliveryAddressTypeId,omitempty" gorm:"type:char(36)"`
	PickupServicePointID  string         `json:"pickupServicePointId,omitempty" gorm:"type:char(36)"`

	RequestExpirationDate           *time.Time `json:"requestExpirationDate,omitempty"`
	HoldShelfExpirationDate         *time.Time `json:"holdShelfExpirationDate,omitempty"`
	AwaitingPickupRequestClosedDate *time.Time `json:"awaitingPickupRequestClosedDate,omitempty"`

	CancellationReasonID              string     `json:"cancellationReasonId,omitempty" gorm:"type:char(36);index"`
	CancelledByUserID                 string     `json:"cancelledByUserId,omitempty" gorm:"type:char(36)"`
	CancellationAdditionalInformation string     `json:"cancellationAdditionalInformation,omitempty" gorm:"type:text"`
	CancelledDate                     *time.Time `json:"cancelledDate,omitempty"`

	// Denormalized display snapshots, refreshed by the external feed that
	// reacts to item/user/instance changes. The engine stores them opaquely.
	Item        map[string]any `json:"item,omitempty" gorm:"serializer:json"`
	Requester   map[string]any `json:"requester,omitempty" gorm:"serializer:json"`
	Proxy       map[string]any `json:"proxy,omitempty" gorm:"serializer:json"`
	Instance    map[string]any `json:"instance,omitempty" gorm:"serializer:json"`
	SearchIndex map[string]any `json:"searchIndex,omitempty" gorm:"serializer:json"`

	Metadata Metadata `json:"metadata" gorm:"embedded;embeddedPrefix:meta_"`
}

// TableName returns the database table name for Request.
func (Request) TableName() string { return "requests" }

// Queued reports whether the request occupies a slot in its item's queue.
func (r *Request) Queued() bool { return r.Position != nil }

// Metadata records who created and last touched a row. CreatedDate and
// CreatedByUserID are written once; the updated pair is refreshed on every
// write from the acting-user context.
type Metadata struct {
	CreatedDate     time.Time `json:"createdDate"`
	CreatedByUserID string    `json:"createdByUserId" gorm:"type:char(36)"`
	UpdatedDate     time.Time `json:"updatedDate"`
	UpdatedByUserID string    `json:"updatedByUserId" gorm:"type:char(36)"`
}

// Snapshots bundles the denormalized display copies carried on a request.
// The external denormalization feed replaces them wholesale when the source
// entities change; nil members are written as nil, clearing stale copies.
type Snapshots struct {
	Item        map[string]any `json:"item,omitempty"`
	Requester   map[string]any `json:"requester,omitempty"`
	Proxy       map[string]any `json:"proxy,omitempty"`
	Instance    map[string]any `json:"instance,omitempty"`
	SearchIndex map[string]any `json:"searchIndex,omitempty"`
}

// CancellationReason is a reference value explaining why a request was
// cancelled. Names are globally unique. A reason cannot be deleted while any
// request, whatever its status, still points at it.
type CancellationReason struct {
	ID                            string   `json:"id" gorm:"type:char(36);primaryKey"`
	Name                          string   `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:ux_reason_name"`
	Description                   string   `json:"description,omitempty" gorm:"type:text"`
	PublicDescription             string   `json:"publicDescription,omitempty" gorm:"type:text"`
	RequiresAdditionalInformation bool     `json:"requiresAdditionalInformation"`
	Metadata                      Metadata `json:"metadata" gorm:"embedded;embeddedPrefix:meta_"`
}

// TableName returns the database table name for CancellationReason.
func (CancellationReason) TableName() string { return "cancellation_reasons" }
