package domain

import (
	"io"
	"time"
)

// Attribute names as they appear in stored metadata and on the wire.
const (
	AttrBrand        = "brand"
	AttrModel        = "model"
	AttrYear         = "year"
	AttrColor        = "color"
	AttrBodyType     = "bodyType"
	AttrSpecs        = "specs"
	AttrMileage      = "mileage"
	AttrSeats        = "seats"
	AttrFuelType     = "fuelType"
	AttrTransmission = "transmission"
	AttrSteering     = "steering"
	AttrTrim         = "trim"
	AttrPrice        = "price"
)

// AttributeNames lists every listing attribute in a fixed order.
var AttributeNames = []string{
	AttrBrand, AttrModel, AttrYear, AttrColor, AttrBodyType, AttrSpecs, AttrMileage,
	AttrSeats, AttrFuelType, AttrTransmission, AttrSteering, AttrTrim, AttrPrice,
}

// Attributes are the client supplied listing fields. They are stored verbatim.
type Attributes struct {
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Year         string `json:"year"`
	Color        string `json:"color"`
	BodyType     string `json:"bodyType"`
	Specs        string `json:"specs"`
	Mileage      string `json:"mileage"`
	Seats        string `json:"seats"`
	FuelType     string `json:"fuelType"`
	Transmission string `json:"transmission"`
	Steering     string `json:"steering"`
	Trim         string `json:"trim"`
	Price        string `json:"price"`
}

// Get returns the value of the named attribute.
func (a Attributes) Get(name string) (string, bool) {
	switch name {
	case AttrBrand:
		return a.Brand, true
	case AttrModel:
		return a.Model, true
	case AttrYear:
		return a.Year, true
	case AttrColor:
		return a.Color, true
	case AttrBodyType:
		return a.BodyType, true
	case AttrSpecs:
		return a.Specs, true
	case AttrMileage:
		return a.Mileage, true
	case AttrSeats:
		return a.Seats, true
	case AttrFuelType:
		return a.FuelType, true
	case AttrTransmission:
		return a.Transmission, true
	case AttrSteering:
		return a.Steering, true
	case AttrTrim:
		return a.Trim, true
	case AttrPrice:
		return a.Price, true
	}
	return "", false
}

// Set assigns the named attribute. Unknown names are reported with false.
func (a *Attributes) Set(name, value string) bool {
	switch name {
	case AttrBrand:
		a.Brand = value
	case AttrModel:
		a.Model = value
	case AttrYear:
		a.Year = value
	case AttrColor:
		a.Color = value
	case AttrBodyType:
		a.BodyType = value
	case AttrSpecs:
		a.Specs = value
	case AttrMileage:
		a.Mileage = value
	case AttrSeats:
		a.Seats = value
	case AttrFuelType:
		a.FuelType = value
	case AttrTransmission:
		a.Transmission = value
	case AttrSteering:
		a.Steering = value
	case AttrTrim:
		a.Trim = value
	case AttrPrice:
		a.Price = value
	default:
		return false
	}
	return true
}

// Metadata is the record attached to a stored object at upload time.
// Absent holds the attribute names that were missing or null in the stored
// document; the store adapters fill it, nothing else writes it.
type Metadata struct {
	GroupID    string
	Attributes Attributes
	Absent     []string
}

// Complete reports whether the record carries a group id and every attribute.
func (m Metadata) Complete() bool {
	return m.GroupID != "" && len(m.Absent) == 0
}

// StoredObject is one persisted image together with its metadata record.
type StoredObject struct {
	ID          string
	Filename    string
	ContentType string
	Length      int64
	UploadedAt  time.Time
	Metadata    Metadata
}

// UploadFile is one payload of an upload batch.
type UploadFile struct {
	OriginalName string
	ContentType  string
	Size         int64
	Content      io.Reader
}

// UploadFailure describes a payload that could not be persisted.
type UploadFailure struct {
	OriginalName string `json:"originalName"`
	Reason       string `json:"reason"`
}

// UploadResult is the outcome of one upload batch.
type UploadResult struct {
	GroupID string          `json:"groupId"`
	Stored  []StoredObject  `json:"-"`
	Failed  []UploadFailure `json:"failed,omitempty"`
}

// ListingView is the read projection of one listing.
type ListingView struct {
	GroupID string `json:"groupId"`
	URL     string `json:"url"`
	Attributes
}

// ObjectView is one underlying image of a listing.
type ObjectView struct {
	ObjectID string `json:"objectId"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Attributes
}

// GroupDetail is the result of a group scoped lookup.
type GroupDetail struct {
	Listing ListingView
	Objects []ObjectView
}

// ListingPage is the result of a reconstruction query.
type ListingPage struct {
	Listings   []ListingView `json:"urls"`
	TotalPages int           `json:"totalPages,omitempty"`
	Total      int           `json:"total"`
	Discarded  int           `json:"-"`
}

// DeleteFailure describes an object that could not be removed.
type DeleteFailure struct {
	ObjectID string `json:"objectId"`
	Reason   string `json:"reason"`
}

// DeleteReport aggregates per-object outcomes of a group deletion.
type DeleteReport struct {
	GroupID string          `json:"groupId"`
	Deleted []string        `json:"deleted"`
	Failed  []DeleteFailure `json:"failed,omitempty"`
}

// Asset is an open read stream for a stored image.
type Asset struct {
	Filename    string
	ContentType string
	Length      int64
	Body        io.ReadCloser
}
