package backoffice

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/spdeepak/backoffice/money"
	"github.com/spdeepak/backoffice/normalize"
	"github.com/spdeepak/backoffice/query"
)

type TechnicalDetail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ProductImageData links a stored image to a product.
type ProductImageData struct {
	ImageID   string `json:"image_id"`
	IsPrimary bool   `json:"is_primary"`
	Image     *Image `json:"image,omitempty"`
}

// CategoryRef is the category summary embedded in a product.
type CategoryRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Product struct {
	ID               string             `json:"id"`
	CategoryID       string             `json:"category_id"`
	Name             string             `json:"name"`
	Description      string             `json:"description,omitempty"`
	Tags             []string           `json:"tags"`
	Points           []string           `json:"points"`
	TechnicalDetails []TechnicalDetail  `json:"technical_details,omitempty"`
	Metadata         map[string]any     `json:"metadata"`
	SalePrice        float64            `json:"sale_price"`
	SalePriceInRupee *float64           `json:"sale_price_in_rupee,omitempty"`
	ProductLabel     *string            `json:"product_label"`
	WarrantyLabel    *string            `json:"warranty_label"`
	IsFeatured       bool               `json:"is_featured"`
	CreatedAt        string             `json:"created_at,omitempty"`
	UpdatedAt        string             `json:"updated_at,omitempty"`
	Category         *CategoryRef       `json:"category,omitempty"`
	Images           []ProductImageData `json:"images,omitempty"`
}

// Price is the rupee price to show. Older responses carry only sale_price.
func (p Product) Price() float64 {
	if p.SalePriceInRupee != nil {
		return *p.SalePriceInRupee
	}
	return p.SalePrice
}

// PrimaryImage returns the image flagged primary, if any.
func (p Product) PrimaryImage() (ProductImageData, bool) {
	for _, img := range p.Images {
		if img.IsPrimary {
			return img, true
		}
	}
	return ProductImageData{}, false
}

// AttributeMapping assigns a filter option to a product.
type AttributeMapping struct {
	FilterID       string `json:"filter_id"`
	FilterOptionID string `json:"filter_option_id"`
}

// ProductInput is the create/update form. SalePriceRupees is what the operator
// types; it is sent in rupees rounded to the paisa.
type ProductInput struct {
	CategoryID        string
	Name              string
	Description       string
	Tags              []string
	Points            []string
	TechnicalDetails  []TechnicalDetail
	Metadata          map[string]any
	SalePriceRupees   float64
	ImageID           string
	ProductLabel      string
	WarrantyLabel     string
	IsFeatured        bool
	AttributeMappings []AttributeMapping
}

const (
	maxProductName        = 255
	minProductName        = 3
	maxProductDescription = 2000
	maxProductTags        = 20
	maxProductPoint       = 70
	maxProductLabel       = 100
	maxWarrantyLabel      = 255
)

// Validate applies the product form rules.
func (in ProductInput) Validate() error {
	v := violations{}
	v.check(isUUIDv7(in.CategoryID), "category_id", "Invalid category ID")

	name := strings.TrimSpace(in.Name)
	v.check(name != "", "name", "Name is required")
	v.check(runeLen(name) >= minProductName, "name", "Name must be at least 3 characters")
	v.check(runeLen(name) <= maxProductName, "name", "Name must be less than 255 characters")

	v.check(runeLen(strings.TrimSpace(in.Description)) <= maxProductDescription, "description", "Description must be less than 2000 characters")
	v.check(len(in.Tags) <= maxProductTags, "tags", "Maximum 20 tags allowed")
	for i, point := range in.Points {
		v.check(runeLen(strings.TrimSpace(point)) <= maxProductPoint, fmt.Sprintf("points[%d]", i), "Points must be less than 70 characters")
	}
	v.check(in.SalePriceRupees >= 0, "sale_price", "Sale price must be greater than or equal to 0")
	v.check(runeLen(in.ProductLabel) <= maxProductLabel, "product_label", "Product label must be less than 100 characters")
	v.check(runeLen(in.WarrantyLabel) <= maxWarrantyLabel, "warranty_label", "Warranty label must be less than 255 characters")
	v.check(!blank(in.ImageID), "image_id", "Product image is required")
	return v.err()
}

type productPayload struct {
	CategoryID        string             `json:"category_id"`
	Name              string             `json:"name"`
	Description       string             `json:"description,omitempty"`
	Tags              []string           `json:"tags"`
	Points            []string           `json:"points"`
	TechnicalDetails  []TechnicalDetail  `json:"technical_details"`
	Metadata          map[string]any     `json:"metadata"`
	SalePrice         float64            `json:"sale_price"`
	ImageID           string             `json:"image_id"`
	ProductLabel      string             `json:"product_label,omitempty"`
	WarrantyLabel     string             `json:"warranty_label,omitempty"`
	IsFeatured        bool               `json:"is_featured"`
	AttributeMappings []AttributeMapping `json:"attribute_mappings,omitempty"`
}

func (in ProductInput) payload() productPayload {
	p := productPayload{
		CategoryID:        in.CategoryID,
		Name:              strings.TrimSpace(in.Name),
		Description:       strings.TrimSpace(in.Description),
		Tags:              nonBlank(in.Tags),
		Points:            nonBlank(in.Points),
		TechnicalDetails:  in.TechnicalDetails,
		Metadata:          in.Metadata,
		SalePrice:         money.RoundRupees(in.SalePriceRupees),
		ImageID:           in.ImageID,
		ProductLabel:      in.ProductLabel,
		WarrantyLabel:     in.WarrantyLabel,
		IsFeatured:        in.IsFeatured,
		AttributeMappings: in.AttributeMappings,
	}
	if p.TechnicalDetails == nil {
		p.TechnicalDetails = []TechnicalDetail{}
	}
	if p.Metadata == nil {
		p.Metadata = map[string]any{}
	}
	return p
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ProductListParams filters the product list.
type ProductListParams struct {
	CategoryID string
	Search     string
	Offset     int
	Limit      int
	SortBy     string
	SortOrder  string
}

var productSortColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"sale_price": true,
}

func (p ProductListParams) normalized() ProductListParams {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	p.SortOrder = strings.ToLower(strings.TrimSpace(p.SortOrder))
	return p
}

// Validate rejects unknown sort columns and directions.
func (p ProductListParams) Validate() error {
	p = p.normalized()
	v := violations{}
	v.check(p.SortBy == "" || productSortColumns[p.SortBy], "sort_by", "Unknown sort column")
	v.check(p.SortOrder == "" || p.SortOrder == "asc" || p.SortOrder == "desc", "sort_order", "Sort order must be asc or desc")
	return v.err()
}

// Values encodes the params as query parameters.
func (p ProductListParams) Values() url.Values {
	p = p.normalized()
	values := url.Values{}
	values.Set("offset", strconv.Itoa(p.Offset))
	values.Set("limit", strconv.Itoa(p.Limit))
	setString(values, "category_id", p.CategoryID)
	setString(values, "search", p.Search)
	setString(values, "sort_by", p.SortBy)
	setString(values, "sort_order", p.SortOrder)
	return values
}

// ListProducts returns one page of products.
func (a *Admin) ListProducts(ctx context.Context, params ProductListParams) (normalize.Page[Product], error) {
	if err := params.Validate(); err != nil {
		return normalize.Page[Product]{}, err
	}
	params = params.normalized()
	return getPage[Product](ctx, a, ProductKeys, "/products", params.Values(), params.Offset, params.Limit)
}

// GetProduct returns one product with its images.
func (a *Admin) GetProduct(ctx context.Context, id string) (Product, error) {
	return getEntity[Product](ctx, a, ProductKeys, id, resourcePath("products", id))
}

// CreateProduct validates and submits in.
func (a *Admin) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	if err := in.Validate(); err != nil {
		return Product{}, err
	}
	raw, err := a.api.Post(ctx, "/products", in.payload())
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	created, err := a.settleProduct(raw, "")
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	a.logger.Info("Product created", slog.String("product", created.ID))
	return created, nil
}

// UpdateProduct validates and submits in for product id.
func (a *Admin) UpdateProduct(ctx context.Context, id string, in ProductInput) (Product, error) {
	if blank(id) {
		return Product{}, ErrMissingID
	}
	if err := in.Validate(); err != nil {
		return Product{}, err
	}
	raw, err := a.api.Put(ctx, resourcePath("products", id), in.payload())
	if err != nil {
		return Product{}, fmt.Errorf("update product %s: %w", id, err)
	}
	updated, err := a.settleProduct(raw, id)
	if err != nil {
		return Product{}, fmt.Errorf("update product %s: %w", id, err)
	}
	a.logger.Info("Product updated", slog.String("product", id))
	return updated, nil
}

// settleProduct caches the entity returned by a product mutation and invalidates
// the lists. When the body holds no entity the detail is invalidated instead.
func (a *Admin) settleProduct(raw []byte, id string) (Product, error) {
	defer a.queries.Invalidate(ProductKeys.Lists())
	product, err := normalize.Decode[Product](raw)
	if err != nil || product.ID == "" {
		if id != "" {
			a.queries.Invalidate(ProductKeys.Detail(id))
			return Product{ID: id}, nil
		}
		return Product{}, normalize.ErrMalformed
	}
	a.queries.SetData(ProductKeys.Detail(product.ID), product)
	return product, nil
}

// DeleteProduct removes a product from the server and the cache.
func (a *Admin) DeleteProduct(ctx context.Context, id string) error {
	if blank(id) {
		return ErrMissingID
	}
	if _, err := a.api.Delete(ctx, resourcePath("products", id)); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	a.queries.Remove(ProductKeys.Detail(id))
	removeFromPages(a, ProductKeys.Lists(), func(p Product) bool { return p.ID == id })
	a.logger.Info("Product deleted", slog.String("product", id))
	return nil
}

// AddProductImage attaches an uploaded image to a product.
func (a *Admin) AddProductImage(ctx context.Context, productID, imageID string, primary bool) error {
	if blank(productID) || blank(imageID) {
		return ErrMissingID
	}
	body := ProductImageData{ImageID: imageID, IsPrimary: primary}
	if _, err := a.api.Post(ctx, resourcePath("products", productID, "images"), body); err != nil {
		return fmt.Errorf("add image to product %s: %w", productID, err)
	}
	a.queries.Invalidate(ProductKeys.Detail(productID))
	if primary {
		a.queries.Invalidate(ProductKeys.Lists())
	}
	return nil
}

// DeleteProductImage detaches an image. The cached detail drops it at once.
func (a *Admin) DeleteProductImage(ctx context.Context, productID, imageID string) error {
	if blank(productID) || blank(imageID) {
		return ErrMissingID
	}
	if _, err := a.api.Delete(ctx, resourcePath("products", productID, "images", imageID)); err != nil {
		return fmt.Errorf("delete image %s of product %s: %w", imageID, productID, err)
	}
	patched := query.Update(a.queries, ProductKeys.Detail(productID), func(p Product) Product {
		images := make([]ProductImageData, 0, len(p.Images))
		for _, img := range p.Images {
			if img.ImageID != imageID {
				images = append(images, img)
			}
		}
		p.Images = images
		return p
	}, ProductKeys.Detail(productID), ProductKeys.Lists())
	if !patched {
		a.queries.Invalidate(ProductKeys.Lists())
	}
	return nil
}
