package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const SuppliersCollection = "suppliers"

// Business types accepted for Supplier.BusinessType.
const (
	BusinessManufacturer    = "Manufacturer"
	BusinessExporter        = "Exporter"
	BusinessSupplier        = "Supplier"
	BusinessWholesaler      = "Wholesaler"
	BusinessRetailer        = "Retailer"
	BusinessServiceProvider = "Service Provider"
)

// ValidBusinessType reports whether t is one of the accepted business types.
func ValidBusinessType(t string) bool {
	switch t {
	case BusinessManufacturer, BusinessExporter, BusinessSupplier,
		BusinessWholesaler, BusinessRetailer, BusinessServiceProvider:
		return true
	}
	return false
}

type ContactInfo struct {
	Email  string `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	Phone  string `json:"phone,omitempty" bson:"phone,omitempty"`
	Mobile string `json:"mobile,omitempty" bson:"mobile,omitempty"`
	Fax    string `json:"fax,omitempty" bson:"fax,omitempty"`
}

type Address struct {
	Street  string `json:"street,omitempty" bson:"street,omitempty"`
	City    string `json:"city,omitempty" bson:"city,omitempty"`
	State   string `json:"state,omitempty" bson:"state,omitempty"`
	Country string `json:"country,omitempty" bson:"country,omitempty"`
	ZipCode string `json:"zipCode,omitempty" bson:"zipCode,omitempty"`
}

type Certification struct {
	Name       string     `json:"name" bson:"name" validate:"required"`
	IssuedBy   string     `json:"issuedBy,omitempty" bson:"issuedBy,omitempty"`
	ValidUntil *time.Time `json:"validUntil,omitempty" bson:"validUntil,omitempty"`
}

// Supplier is the company account behind a set of listings. Exactly one
// supplier exists per user.
type Supplier struct {
	ID              primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	UserID          primitive.ObjectID `json:"userId" bson:"userId" validate:"required"`
	CompanyName     string             `json:"companyName" bson:"companyName" validate:"required,max=200"`
	Description     string             `json:"description" bson:"description" validate:"required"`
	Categories      []string           `json:"categories" bson:"categories" validate:"required,min=1,dive,required"`
	Products        []string           `json:"products" bson:"products"`
	YearEstablished int                `json:"yearEstablished,omitempty" bson:"yearEstablished,omitempty" validate:"omitempty,gte=1800,lte=2100"`
	EmployeeCount   string             `json:"employeeCount,omitempty" bson:"employeeCount,omitempty"`
	Website         string             `json:"website,omitempty" bson:"website,omitempty" validate:"omitempty,url"`
	ContactInfo     ContactInfo        `json:"contactInfo" bson:"contactInfo"`
	Address         Address            `json:"address" bson:"address"`
	BusinessType    string             `json:"businessType,omitempty" bson:"businessType,omitempty" validate:"omitempty,oneof=Manufacturer Exporter Supplier Wholesaler Retailer 'Service Provider'"`
	Certifications  []Certification    `json:"certifications" bson:"certifications" validate:"dive"`
	Logo            string             `json:"logo,omitempty" bson:"logo,omitempty"`
	Images          []string           `json:"images" bson:"images"`
	Verified        bool               `json:"verified" bson:"verified"`
	Rating          float64            `json:"rating" bson:"rating" validate:"gte=0,lte=5"`
	ReviewCount     int64              `json:"reviewCount" bson:"reviewCount" validate:"gte=0"`
	TotalInquiries  int64              `json:"totalInquiries" bson:"totalInquiries"`
	ResponseRate    float64            `json:"responseRate" bson:"responseRate" validate:"gte=0,lte=100"`
	IsActive        bool               `json:"isActive" bson:"isActive"`
	IsPremium       bool               `json:"isPremium" bson:"isPremium"`
	PremiumExpiry   *time.Time         `json:"premiumExpiry,omitempty" bson:"premiumExpiry,omitempty"`
	PremiumActive   bool               `json:"premiumActive" bson:"-"`
	LastActive      time.Time          `json:"lastActive" bson:"lastActive"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// IsPremiumAt reports whether the premium flag is set and has not expired.
// A premium flag without an expiry never lapses.
func (s *Supplier) IsPremiumAt(now time.Time) bool {
	if !s.IsPremium {
		return false
	}
	if s.PremiumExpiry == nil {
		return true
	}
	return now.Before(*s.PremiumExpiry)
}

// Derive fills read-only fields computed at read time.
func (s *Supplier) Derive(now time.Time) {
	s.PremiumActive = s.IsPremiumAt(now)
}

type CreateSupplierRequest struct {
	CompanyName     string          `json:"companyName" validate:"required,max=200"`
	Description     string          `json:"description" validate:"required"`
	Categories      []string        `json:"categories" validate:"required,min=1,dive,required"`
	Products        []string        `json:"products"`
	YearEstablished int             `json:"yearEstablished" validate:"omitempty,gte=1800,lte=2100"`
	EmployeeCount   string          `json:"employeeCount"`
	Website         string          `json:"website" validate:"omitempty,url"`
	ContactInfo     ContactInfo     `json:"contactInfo"`
	Address         Address         `json:"address"`
	BusinessType    string          `json:"businessType" validate:"omitempty,oneof=Manufacturer Exporter Supplier Wholesaler Retailer 'Service Provider'"`
	Certifications  []Certification `json:"certifications" validate:"dive"`
	Logo            string          `json:"logo"`
	Images          []string        `json:"images"`
	ResponseRate    float64         `json:"responseRate" validate:"gte=0,lte=100"`
}

// UpdateSupplierRequest carries the supplier-editable fields. Rating, review
// count, verification and premium state are owned by other workflows.
type UpdateSupplierRequest struct {
	CompanyName     *string      `json:"companyName" validate:"omitempty,max=200"`
	Description     *string      `json:"description"`
	Categories      *[]string    `json:"categories" validate:"omitempty,dive,required"`
	Products        *[]string    `json:"products"`
	YearEstablished *int         `json:"yearEstablished" validate:"omitempty,gte=1800,lte=2100"`
	EmployeeCount   *string      `json:"employeeCount"`
	Website         *string      `json:"website" validate:"omitempty,url"`
	ContactInfo     *ContactInfo `json:"contactInfo"`
	Address         *Address     `json:"address"`
	// An empty BusinessType clears the stored value.
	BusinessType   *string          `json:"businessType"`
	Certifications *[]Certification `json:"certifications" validate:"omitempty,dive"`
	Logo           *string          `json:"logo"`
	Images         *[]string        `json:"images"`
	ResponseRate   *float64         `json:"responseRate" validate:"omitempty,gte=0,lte=100"`
}

type SupplierFilter struct {
	Query           string
	Category        string
	Country         string
	BusinessType    string
	Verified        *bool
	IncludeInactive bool
	Page            int
	Limit           int
}

type ReviewAggregateRequest struct {
	Rating      float64 `json:"rating" validate:"gte=0,lte=5"`
	ReviewCount int64   `json:"reviewCount" validate:"gte=0"`
}

type PremiumRequest struct {
	PremiumExpiry *time.Time `json:"premiumExpiry"`
}

type VerifyRequest struct {
	Verified bool `json:"verified"`
}
