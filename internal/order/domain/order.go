package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/watchstore/pkg/apperr"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var Statuses = []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "credit-card"
	PaymentPayPal     PaymentMethod = "paypal"
	PaymentApplePay   PaymentMethod = "apple-pay"
	PaymentGooglePay  PaymentMethod = "google-pay"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCreditCard, PaymentPayPal, PaymentApplePay, PaymentGooglePay:
		return true
	}
	return false
}

const DefaultCountry = "United States"

type Address struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
}

// Normalize trims every field and fills in the default country.
func (a Address) Normalize() Address {
	a.FirstName = strings.TrimSpace(a.FirstName)
	a.LastName = strings.TrimSpace(a.LastName)
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.ZipCode = strings.TrimSpace(a.ZipCode)
	a.Country = strings.TrimSpace(a.Country)
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	return a
}

// Validate reports the first missing required field. label prefixes the message.
func (a Address) Validate(label string) error {
	required := []struct{ name, value string }{
		{"firstName", a.FirstName},
		{"lastName", a.LastName},
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"zipCode", a.ZipCode},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return apperr.Validation("%s.%s is required", label, f.name)
		}
	}
	return nil
}

// LineItem is a snapshot of the product at order time.
type LineItem struct {
	ProductID uuid.UUID       `json:"product"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
}

func (li LineItem) Total() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type UserSummary struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
}

// Transition is one audited status change.
type Transition struct {
	From           Status    `json:"from"`
	To             Status    `json:"to"`
	Actor          uuid.UUID `json:"actor"`
	TrackingNumber string    `json:"trackingNumber,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	At             time.Time `json:"at"`
}

type Order struct {
	ID              uuid.UUID       `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	UserID          uuid.UUID       `json:"userId"`
	User            *UserSummary    `json:"user,omitempty"`
	Items           []LineItem      `json:"items"`
	ShippingAddress Address         `json:"shippingAddress"`
	BillingAddress  *Address        `json:"billingAddress,omitempty"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	Shipping        decimal.Decimal `json:"shipping"`
	Total           decimal.Decimal `json:"total"`
	Status          Status          `json:"status"`
	TrackingNumber  string          `json:"trackingNumber,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	History         []Transition    `json:"history,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

var ErrNotCancellable = apperr.New(apperr.KindInvalidState, "Only pending orders can be cancelled")

func NewOrder(userID uuid.UUID, items []LineItem, shipping Address, billing *Address, method PaymentMethod, totals Totals, now time.Time) Order {
	return Order{
		ID:              uuid.New(),
		UserID:          userID,
		Items:           items,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		PaymentMethod:   method,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		Shipping:        totals.Shipping,
		Total:           totals.Total,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Cancel moves a pending order to cancelled.
func (o *Order) Cancel(actor uuid.UUID, now time.Time) (Transition, error) {
	if o.Status != StatusPending {
		return Transition{}, ErrNotCancellable
	}
	t := Transition{From: o.Status, To: StatusCancelled, Actor: actor, At: now}
	o.apply(t)
	return t, nil
}

// SetStatus is the privileged override: any status may follow any other.
// Empty tracking or notes leave the current values in place.
func (o *Order) SetStatus(to Status, tracking, notes string, actor uuid.UUID, now time.Time) (Transition, error) {
	if !to.Valid() {
		return Transition{}, apperr.Validation("invalid status %q", to)
	}
	t := Transition{
		From:           o.Status,
		To:             to,
		Actor:          actor,
		TrackingNumber: strings.TrimSpace(tracking),
		Notes:          strings.TrimSpace(notes),
		At:             now,
	}
	o.apply(t)
	return t, nil
}

func (o *Order) apply(t Transition) {
	o.Status = t.To
	if t.TrackingNumber != "" {
		o.TrackingNumber = t.TrackingNumber
	}
	if t.Notes != "" {
		o.Notes = t.Notes
	}
	o.UpdatedAt = t.At
	o.History = append(o.History, t)
}

// Quantities sums line quantities per product.
func (o Order) Quantities() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(o.Items))
	for _, it := range o.Items {
		out[it.ProductID] += it.Quantity
	}
	return out
}

type Stats struct {
	TotalUsers     int64            `json:"totalUsers"`
	TotalProducts  int64            `json:"totalProducts"`
	TotalOrders    int64            `json:"totalOrders"`
	OrdersByStatus map[Status]int64 `json:"ordersByStatus"`
	TotalRevenue   decimal.Decimal  `json:"totalRevenue"`
	RecentOrders   []Order          `json:"recentOrders"`
	TopProducts    []TopProduct     `json:"topProducts"`
}

type TopProduct struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	TotalSold int64           `json:"totalSold"`
	Revenue   decimal.Decimal `json:"revenue"`
}
