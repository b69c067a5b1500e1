// Status, type, and fulfilment enumerations for requests, plus the
// declarative closure-stamp rule evaluated on every status write.
package domain

// RequestStatus is the lifecycle state of a request. The store validates set
// membership only; it does not enforce workflow reachability between states.
type RequestStatus string

// The closed status set. Any member may be supplied on create or update.
const (
	StatusOpenNotYetFilled    RequestStatus = "Open - Not yet filled"
	StatusOpenAwaitingPickup  RequestStatus = "Open - Awaiting pickup"
	StatusOpenInTransit       RequestStatus = "Open - In transit"
	StatusClosedFilled        RequestStatus = "Closed - Filled"
	StatusClosedUnfilled      RequestStatus = "Closed - Unfilled"
	StatusClosedPickupExpired RequestStatus = "Closed - Pickup expired"
	StatusClosedCancelled     RequestStatus = "Closed - Cancelled"
)

// ValidStatus reports whether s is a member of the closed status set.
func ValidStatus(s RequestStatus) bool {
	switch s {
	case StatusOpenNotYetFilled, StatusOpenAwaitingPickup, StatusOpenInTransit,
		StatusClosedFilled, StatusClosedUnfilled, StatusClosedPickupExpired,
		StatusClosedCancelled:
		return true
	}
	return false
}

// RequestType distinguishes how a request should be satisfied.
type RequestType string

const (
	TypeHold   RequestType = "Hold"
	TypeRecall RequestType = "Recall"
	TypePage   RequestType = "Page"
)

// ValidRequestType reports whether t is a known request type.
func ValidRequestType(t RequestType) bool {
	switch t {
	case TypeHold, TypeRecall, TypePage:
		return true
	}
	return false
}

// FulfilmentType is how a filled request reaches the requester.
type FulfilmentType string

const (
	FulfilmentHoldShelf FulfilmentType = "Hold Shelf"
	FulfilmentDelivery  FulfilmentType = "Delivery"
)

// ValidFulfilment reports whether f is a known fulfilment preference.
func ValidFulfilment(f FulfilmentType) bool {
	switch f {
	case FulfilmentHoldShelf, FulfilmentDelivery:
		return true
	}
	return false
}

// statusTransition is a (from, to) pair of statuses observed on a single write.
type statusTransition struct {
	from, to RequestStatus
}

// closureStampTransitions enumerates the transitions that stamp
// AwaitingPickupRequestClosedDate. The rule is evaluated purely from the
// before/after pair of one write; it never scans history.
var closureStampTransitions = map[statusTransition]bool{
	{StatusOpenAwaitingPickup, StatusClosedPickupExpired}: true,
	{StatusOpenAwaitingPickup, StatusClosedCancelled}:     true,
}

// StampsClosure reports whether a write moving a request from one status to
// another must set AwaitingPickupRequestClosedDate to the write time. Every
// other transition, including into other closed states, leaves the field
// untouched.
func StampsClosure(from, to RequestStatus) bool {
	return closureStampTransitions[statusTransition{from, to}]
}
