package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultCurrency    = "USD"
	ListingsCollection = "listings"
)

// Price is the asking price of a listing.
type Price struct {
	Amount     float64 `json:"amount" bson:"amount"`
	Currency   string  `json:"currency" bson:"currency"`
	Unit       string  `json:"unit,omitempty" bson:"unit,omitempty"`
	Negotiable bool    `json:"negotiable" bson:"negotiable"`
}

type ListingImage struct {
	URL       string `json:"url" bson:"url" validate:"required,url"`
	Alt       string `json:"alt,omitempty" bson:"alt,omitempty"`
	IsPrimary bool   `json:"isPrimary" bson:"isPrimary"`
}

type Specification struct {
	Key   string `json:"key" bson:"key" validate:"required"`
	Value string `json:"value" bson:"value"`
}

// Quantity describes an order or supply amount, e.g. 500 pieces per month.
type Quantity struct {
	Value  float64 `json:"value" bson:"value" validate:"gte=0"`
	Unit   string  `json:"unit,omitempty" bson:"unit,omitempty"`
	Period string  `json:"period,omitempty" bson:"period,omitempty"`
}

// Listing is one product or service offering published by a supplier.
type Listing struct {
	ID               primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	SupplierID       primitive.ObjectID `json:"supplierId" bson:"supplierId" validate:"required"`
	Title            string             `json:"title" bson:"title" validate:"required,max=200"`
	Slug             string             `json:"slug,omitempty" bson:"slug,omitempty"`
	Description      string             `json:"description" bson:"description" validate:"required"`
	Category         string             `json:"category" bson:"category" validate:"required"`
	Subcategory      string             `json:"subcategory,omitempty" bson:"subcategory,omitempty"`
	Price            Price              `json:"price" bson:"price"`
	Images           []ListingImage     `json:"images" bson:"images" validate:"dive"`
	Specifications   []Specification    `json:"specifications" bson:"specifications" validate:"dive"`
	MinOrderQuantity *Quantity          `json:"minOrderQuantity,omitempty" bson:"minOrderQuantity,omitempty" validate:"omitempty"`
	SupplyAbility    *Quantity          `json:"supplyAbility,omitempty" bson:"supplyAbility,omitempty" validate:"omitempty"`
	DeliveryTime     string             `json:"deliveryTime,omitempty" bson:"deliveryTime,omitempty"`
	PackagingDetails string             `json:"packagingDetails,omitempty" bson:"packagingDetails,omitempty"`
	PaymentTerms     []string           `json:"paymentTerms" bson:"paymentTerms"`
	Certifications   []string           `json:"certifications" bson:"certifications"`
	Tags             []string           `json:"tags" bson:"tags"`
	Featured         bool               `json:"featured" bson:"featured"`
	Views            int64              `json:"views" bson:"views"`
	Inquiries        int64              `json:"inquiries" bson:"inquiries"`
	IsActive         bool               `json:"isActive" bson:"isActive"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// PriceInput is the request form of Price. Negotiable is a pointer so an
// omitted flag can default to true.
type PriceInput struct {
	Amount     float64 `json:"amount" validate:"gte=0"`
	Currency   string  `json:"currency" validate:"omitempty,len=3,alpha"`
	Unit       string  `json:"unit"`
	Negotiable *bool   `json:"negotiable"`
}

// PriceUpdate changes only the price fields that are present.
type PriceUpdate struct {
	Amount     *float64 `json:"amount" validate:"omitempty,gte=0"`
	Currency   *string  `json:"currency" validate:"omitempty,len=3,alpha"`
	Unit       *string  `json:"unit"`
	Negotiable *bool    `json:"negotiable"`
}

type CreateListingRequest struct {
	SupplierID       string          `json:"supplierId" validate:"required"`
	Title            string          `json:"title" validate:"required,max=200"`
	Description      string          `json:"description" validate:"required"`
	Category         string          `json:"category" validate:"required"`
	Subcategory      string          `json:"subcategory"`
	Price            *PriceInput     `json:"price" validate:"omitempty"`
	Images           []ListingImage  `json:"images" validate:"dive"`
	Specifications   []Specification `json:"specifications" validate:"dive"`
	MinOrderQuantity *Quantity       `json:"minOrderQuantity" validate:"omitempty"`
	SupplyAbility    *Quantity       `json:"supplyAbility" validate:"omitempty"`
	DeliveryTime     string          `json:"deliveryTime"`
	PackagingDetails string          `json:"packagingDetails"`
	PaymentTerms     []string        `json:"paymentTerms"`
	Certifications   []string        `json:"certifications"`
	Tags             []string        `json:"tags"`
	Featured         bool            `json:"featured"`
}

// UpdateListingRequest is a partial update; nil fields are left untouched.
type UpdateListingRequest struct {
	Title            *string          `json:"title" validate:"omitempty,max=200"`
	Description      *string          `json:"description"`
	Category         *string          `json:"category"`
	Subcategory      *string          `json:"subcategory"`
	Price            *PriceUpdate     `json:"price" validate:"omitempty"`
	Images           *[]ListingImage  `json:"images" validate:"omitempty,dive"`
	Specifications   *[]Specification `json:"specifications" validate:"omitempty,dive"`
	MinOrderQuantity *Quantity        `json:"minOrderQuantity" validate:"omitempty"`
	SupplyAbility    *Quantity        `json:"supplyAbility" validate:"omitempty"`
	DeliveryTime     *string          `json:"deliveryTime"`
	PackagingDetails *string          `json:"packagingDetails"`
	PaymentTerms     *[]string        `json:"paymentTerms"`
	Certifications   *[]string        `json:"certifications"`
	Tags             *[]string        `json:"tags"`
}

type InquiryRequest struct {
	Message  string  `json:"message" validate:"required,max=2000"`
	Quantity float64 `json:"quantity" validate:"gte=0"`
	Unit     string  `json:"unit"`
}

type UploadRequest struct {
	Filename    string `json:"filename" validate:"required"`
	ContentType string `json:"contentType" validate:"required"`
}

// UploadResponse is returned by presigned upload endpoints.
type UploadResponse struct {
	UploadURL string            `json:"uploadUrl"`
	PublicURL string            `json:"publicUrl"`
	Key       string            `json:"key"`
	Headers   map[string]string `json:"headers,omitempty"`
	ExpiresIn int64             `json:"expiresIn"`
}

// Listing sort orders.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortPopular   = "popular"
	SortRelevance = "relevance"
)

// ListingFilter holds the query parameters accepted by listing queries.
type ListingFilter struct {
	Category        string
	Subcategory     string
	SupplierID      *primitive.ObjectID
	Query           string
	MinPrice        *float64
	MaxPrice        *float64
	Featured        *bool
	IncludeInactive bool
	Sort            string
	Page            int
	Limit           int
}
