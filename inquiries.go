package backoffice

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/spdeepak/backoffice/normalize"
	"github.com/spdeepak/backoffice/pager"
)

// InquiryStatus is the workflow state of an inquiry.
type InquiryStatus string

const (
	InquiryPending    InquiryStatus = "pending"
	InquiryInProgress InquiryStatus = "in_progress"
	InquiryResolved   InquiryStatus = "resolved"
	InquiryClosed     InquiryStatus = "closed"
)

// InquiryStatuses lists every status in workflow order.
var InquiryStatuses = []InquiryStatus{InquiryPending, InquiryInProgress, InquiryResolved, InquiryClosed}

func (s InquiryStatus) Valid() bool {
	switch s {
	case InquiryPending, InquiryInProgress, InquiryResolved, InquiryClosed:
		return true
	}
	return false
}

// InquiryType is where an inquiry came from.
type InquiryType string

const (
	InquiryTypeGeneral InquiryType = "general"
	InquiryTypeContact InquiryType = "contact"
	InquiryTypeProduct InquiryType = "product"
	InquiryTypeGuest   InquiryType = "guest_enquiry"
)

func (t InquiryType) Valid() bool {
	switch t {
	case InquiryTypeGeneral, InquiryTypeContact, InquiryTypeProduct, InquiryTypeGuest:
		return true
	}
	return false
}

// InquiryMetaData is the free-form data submitted with an inquiry.
type InquiryMetaData struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
}

type GuestContact struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
}

type InquiryProduct struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	SalePriceInRupee float64 `json:"sale_price_in_rupee"`
}

type Inquiry struct {
	ID           string           `json:"id"`
	Type         InquiryType      `json:"type"`
	Message      string           `json:"message"`
	ProductID    string           `json:"product_id,omitempty"`
	Status       InquiryStatus    `json:"status"`
	MetaData     *InquiryMetaData `json:"meta_data,omitempty"`
	CreatedAt    string           `json:"created_at"`
	UpdatedAt    *string          `json:"updated_at"`
	Customer     map[string]any   `json:"customer"`
	GuestContact *GuestContact    `json:"guest_contact,omitempty"`
	Product      *InquiryProduct  `json:"product,omitempty"`
}

// ContactDisplay is who to show for an inquiry.
type ContactDisplay struct {
	Name  string
	Email string
	Phone string
}

// NoContact is shown when no source has a value.
const NoContact = "—"

// Contact picks name, email and phone from the guest contact, then the submitted
// meta data, then the linked customer.
func (i Inquiry) Contact() ContactDisplay {
	var guest GuestContact
	if i.GuestContact != nil {
		guest = *i.GuestContact
	}
	var meta InquiryMetaData
	if i.MetaData != nil {
		meta = *i.MetaData
	}
	return ContactDisplay{
		Name:  firstNonBlank(guest.Name, meta.Name, i.customerField("full_name")),
		Email: firstNonBlank(guest.Email, meta.Email, i.customerField("email")),
		Phone: firstNonBlank(guest.PhoneNumber, meta.PhoneNumber, i.customerField("phone_number")),
	}
}

func (i Inquiry) customerField(name string) string {
	if s, ok := i.Customer[name].(string); ok {
		return s
	}
	return ""
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if !blank(v) {
			return v
		}
	}
	return NoContact
}

// InquiryListParams filters the inquiry list. Inquiries page by offset.
type InquiryListParams struct {
	Offset int
	Limit  int
	Type   InquiryType
	Status InquiryStatus
	Search string
}

func (p InquiryListParams) normalized() InquiryListParams {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	return p
}

// Values encodes the params as query parameters.
func (p InquiryListParams) Values() url.Values {
	p = p.normalized()
	values := url.Values{}
	values.Set("offset", strconv.Itoa(p.Offset))
	values.Set("limit", strconv.Itoa(p.Limit))
	setString(values, "type", string(p.Type))
	setString(values, "status", string(p.Status))
	setString(values, "search", p.Search)
	return values
}

// Validate rejects unknown type and status filters.
func (p InquiryListParams) Validate() error {
	v := violations{}
	v.check(p.Type == "" || p.Type.Valid(), "type", "Unknown inquiry type")
	v.check(p.Status == "" || p.Status.Valid(), "status", "Unknown inquiry status")
	return v.err()
}

// ListInquiries returns one page of inquiries.
func (a *Admin) ListInquiries(ctx context.Context, params InquiryListParams) (normalize.Page[Inquiry], error) {
	if err := params.Validate(); err != nil {
		return normalize.Page[Inquiry]{}, err
	}
	params = params.normalized()
	return getPage[Inquiry](ctx, a, InquiryKeys, "/inquiries", params.Values(), params.Offset, params.Limit)
}

// GetInquiry returns one inquiry.
func (a *Admin) GetInquiry(ctx context.Context, id string) (Inquiry, error) {
	return getEntity[Inquiry](ctx, a, InquiryKeys, id, resourcePath("inquiries", id))
}

// UpdateInquiryStatus moves an inquiry to status. The returned entity replaces the
// cached detail and every cached list is updated in place and then invalidated.
func (a *Admin) UpdateInquiryStatus(ctx context.Context, id string, status InquiryStatus) (Inquiry, error) {
	if blank(id) {
		return Inquiry{}, ErrMissingID
	}
	if !status.Valid() {
		return Inquiry{}, &ValidationError{Fields: map[string]string{"status": "Unknown inquiry status"}}
	}

	raw, err := a.api.Put(ctx, resourcePath("inquiries", id), map[string]string{"status": string(status)})
	if err != nil {
		return Inquiry{}, fmt.Errorf("update inquiry %s status: %w", id, err)
	}

	updated, err := normalize.Decode[Inquiry](raw)
	if err != nil || updated.ID == "" {
		// Some deployments answer with an empty body; fall back to a refetch.
		a.queries.Invalidate(InquiryKeys.Detail(id))
	} else {
		a.queries.SetData(InquiryKeys.Detail(id), updated)
	}
	replaceInPages(a, InquiryKeys.Lists(),
		func(i Inquiry) bool { return i.ID == id },
		func(i Inquiry) Inquiry {
			i.Status = status
			return i
		})

	a.logger.Info("Inquiry status updated", slog.String("inquiry", id), slog.String("status", string(status)))
	if updated.ID == "" {
		return a.GetInquiry(ctx, id)
	}
	return updated, nil
}

// DeleteInquiry removes an inquiry. Its detail leaves the cache and it disappears
// from every cached list before those lists are refetched.
func (a *Admin) DeleteInquiry(ctx context.Context, id string) error {
	if blank(id) {
		return ErrMissingID
	}
	if _, err := a.api.Delete(ctx, resourcePath("inquiries", id)); err != nil {
		return fmt.Errorf("delete inquiry %s: %w", id, err)
	}
	a.queries.Remove(InquiryKeys.Detail(id))
	removeFromPages(a, InquiryKeys.Lists(), func(i Inquiry) bool { return i.ID == id })
	a.logger.Info("Inquiry deleted", slog.String("inquiry", id))
	return nil
}

// InquiryFeed returns an infinite-scroll feed over the inquiries matching params.
// params.Offset is ignored; the feed owns the offset.
func (a *Admin) InquiryFeed(params InquiryListParams) *pager.Feed[Inquiry] {
	params = params.normalized()
	return pager.NewFeed(params.Limit, a.inquiryPages(params))
}

// InquiryPages builds a loader for params, for use with (*pager.Feed).Reset when
// filters change.
func (a *Admin) InquiryPages(params InquiryListParams) pager.LoadFunc[Inquiry] {
	return a.inquiryPages(params.normalized())
}

func (a *Admin) inquiryPages(params InquiryListParams) pager.LoadFunc[Inquiry] {
	return func(ctx context.Context, offset, limit int) (normalize.Page[Inquiry], error) {
		p := params
		p.Offset = offset
		p.Limit = limit
		return a.ListInquiries(ctx, p)
	}
}

// ParseInquiryStatus accepts a status name in any case, with spaces or dashes for
// underscores.
func ParseInquiryStatus(s string) (InquiryStatus, error) {
	status := InquiryStatus(strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(s))))
	if !status.Valid() {
		return "", fmt.Errorf("unknown inquiry status %q", s)
	}
	return status, nil
}
