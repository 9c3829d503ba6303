package models

import "time"

// Domain event types published on the event bus.
const (
	EventListingInquiry   = "listing.inquiry"
	EventListingFeatured  = "listing.featured"
	EventSupplierVerified = "supplier.verified"
	EventSupplierPremium  = "supplier.premium"
)

// Event is the payload carried on the event bus. RecipientID is the user that
// should be notified.
type Event struct {
	Type        string    `json:"type"`
	RecipientID string    `json:"recipientId"`
	ActorID     string    `json:"actorId,omitempty"`
	ListingID   string    `json:"listingId,omitempty"`
	SupplierID  string    `json:"supplierId,omitempty"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Link        string    `json:"link,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// AdminStats is the dashboard summary served to admins.
type AdminStats struct {
	Users             int64 `json:"users"`
	Suppliers         int64 `json:"suppliers"`
	VerifiedSuppliers int64 `json:"verifiedSuppliers"`
	PremiumSuppliers  int64 `json:"premiumSuppliers"`
	Listings          int64 `json:"listings"`
	ActiveListings    int64 `json:"activeListings"`
	Messages          int64 `json:"messages"`
}
