package domain

import "testing"

func TestValidStatus(t *testing.T) {
	valid := []RequestStatus{
		StatusOpenNotYetFilled, StatusOpenAwaitingPickup, StatusOpenInTransit,
		StatusClosedFilled, StatusClosedUnfilled, StatusClosedPickupExpired,
		StatusClosedCancelled,
	}
	for _, s := range valid {
		if !ValidStatus(s) {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	for _, s := range []RequestStatus{"", "Open", "open - not yet filled", "Closed - Expired"} {
		if ValidStatus(s) {
			t.Fatalf("expected %q to be invalid", s)
		}
	}
}

func TestValidRequestType(t *testing.T) {
	for _, rt := range []RequestType{TypeHold, TypeRecall, TypePage} {
		if !ValidRequestType(rt) {
			t.Fatalf("expected %q to be valid", rt)
		}
	}
	if ValidRequestType("hold") || ValidRequestType("") {
		t.Fatalf("casing and empty values must be rejected")
	}
}

func TestValidFulfilment(t *testing.T) {
	for _, f := range []FulfilmentType{FulfilmentHoldShelf, FulfilmentDelivery} {
		if !ValidFulfilment(f) {
			t.Fatalf("expected %q to be valid", f)
		}
	}
	if ValidFulfilment("Pickup") || ValidFulfilment("") {
		t.Fatalf("unknown fulfilment preferences must be rejected")
	}
}

func TestStampsClosure_OnlyFromAwaitingPickup(t *testing.T) {
	cases := []struct {
		from, to RequestStatus
		want     bool
	}{
		{StatusOpenAwaitingPickup, StatusClosedPickupExpired, true},
		{StatusOpenAwaitingPickup, StatusClosedCancelled, true},

		// Other closures from the hold shelf do not stamp.
		{StatusOpenAwaitingPickup, StatusClosedFilled, false},
		{StatusOpenAwaitingPickup, StatusClosedUnfilled, false},

		// The same target statuses reached from anywhere else do not stamp.
		{StatusOpenNotYetFilled, StatusClosedCancelled, false},
		{StatusOpenInTransit, StatusClosedPickupExpired, false},
		{StatusOpenNotYetFilled, StatusClosedUnfilled, false},

		// Staying put or reopening never stamps.
		{StatusOpenAwaitingPickup, StatusOpenAwaitingPickup, false},
		{StatusClosedPickupExpired, StatusClosedCancelled, false},
	}
	for _, tc := range cases {
		if got := StampsClosure(tc.from, tc.to); got != tc.want {
			t.Fatalf("StampsClosure(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestQueued(t *testing.T) {
	pos := 3
	if (&Request{}).Queued() {
		t.Fatalf("request without position must not be queued")
	}
	if !(&Request{Position: &pos}).Queued() {
		t.Fatalf("request with position must be queued")
	}
}
