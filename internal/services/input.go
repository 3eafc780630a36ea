package services

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// maxPrice keeps prices inside numeric(12,2).
var maxPrice = decimal.RequireFromString("9999999999.99")

// sessionRE is the accepted shape of a cart session identifier.
var sessionRE = regexp.MustCompile(`^[A-Za-z0-9._~:\-]{1,128}$`)

// ListingInput is the seller submission used to create a listing. Free-text
// fields are trimmed and NFC-normalized before validation; enum fields are
// matched exactly.
type ListingInput struct {
	Title          string           `json:"title" validate:"required,max=200" example:"Calculus: Early Transcendentals"`
	Description    string           `json:"description" validate:"required" example:"8th edition, light highlighting"`
	Price          *decimal.Decimal `json:"price" swaggertype:"number" example:"35.5"`
	Category       string           `json:"category" validate:"required,oneof=textbooks electronics dorm-items supplies clothing furniture other" example:"textbooks"`
	Condition      string           `json:"condition" validate:"omitempty,oneof=new like-new good fair poor" example:"good"`
	Images         []string         `json:"images" validate:"omitempty,dive,required,url"`
	SellerName     string           `json:"sellerName" validate:"required,max=120" example:"Jordan"`
	ContactMethod  string           `json:"contactMethod" validate:"required,oneof=email phone whatsapp telegram" example:"email"`
	ContactDetails string           `json:"contactDetails" validate:"required,max=255" example:"jordan@campus.edu"`
}

func (in *ListingInput) normalize() {
	in.Title = cleanText(in.Title)
	in.Description = cleanText(in.Description)
	in.SellerName = cleanText(in.SellerName)
	in.ContactDetails = cleanText(in.ContactDetails)
	for i := range in.Images {
		in.Images[i] = strings.TrimSpace(in.Images[i])
	}
}

// ListingPatch is a partial update of the mutable listing fields. A nil
// field is left unchanged; a present text field must stay non-empty after
// trimming. Status, sold time and the secret are not part of
// this type and cannot be changed through it.
type ListingPatch struct {
	Title          *string          `json:"title" validate:"omitnil,min=1,max=200"`
	Description    *string          `json:"description" validate:"omitnil,min=1"`
	Price          *decimal.Decimal `json:"price" swaggertype:"number"`
	Category       *string          `json:"category" validate:"omitnil,oneof=textbooks electronics dorm-items supplies clothing furniture other"`
	Condition      *string          `json:"condition" validate:"omitnil,oneof=new like-new good fair poor"`
	Images         *[]string        `json:"images" validate:"omitnil,dive,required,url"`
	SellerName     *string          `json:"sellerName" validate:"omitnil,min=1,max=120"`
	ContactMethod  *string          `json:"contactMethod" validate:"omitnil,oneof=email phone whatsapp telegram"`
	ContactDetails *string          `json:"contactDetails" validate:"omitnil,min=1,max=255"`
}

func (p *ListingPatch) normalize() {
	for _, f := range []*string{p.Title, p.Description, p.SellerName, p.ContactDetails} {
		if f != nil {
			*f = cleanText(*f)
		}
	}
	if p.Images != nil {
		for i := range *p.Images {
			(*p.Images)[i] = strings.TrimSpace((*p.Images)[i])
		}
	}
}

func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so clients can map errors back to their payload.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs tag validation on in and appends every violation to ve.
func validateStruct(in any, ve *ValidationError) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		ve.add(fe.Field(), fe.Tag())
	}
	return nil
}

func checkPrice(p *decimal.Decimal, required bool, ve *ValidationError) {
	switch {
	case p == nil:
		if required {
			ve.add("price", "required")
		}
	case p.IsNegative():
		ve.add("price", "gte")
	case p.GreaterThan(maxPrice):
		ve.add("price", "lte")
	}
}

func (in *ListingInput) validate() error {
	in.normalize()
	ve := &ValidationError{}
	if err := validateStruct(in, ve); err != nil {
		return err
	}
	checkPrice(in.Price, true, ve)
	return ve.orNil()
}

func (p *ListingPatch) validate() error {
	p.normalize()
	ve := &ValidationError{}
	if err := validateStruct(p, ve); err != nil {
		return err
	}
	checkPrice(p.Price, false, ve)
	return ve.orNil()
}

func validateSession(sessionID string) error {
	if !sessionRE.MatchString(sessionID) {
		return &ValidationError{Fields: []FieldError{{Field: "sessionId", Rule: "format"}}}
	}
	return nil
}

func validateListingRef(listingID string) error {
	id := strings.TrimSpace(listingID)
	if id == "" || len(id) > 64 {
		return &ValidationError{Fields: []FieldError{{Field: "productId", Rule: "required"}}}
	}
	return nil
}
