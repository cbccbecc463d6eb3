package backoffice

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/spdeepak/backoffice/normalize"
)

type ProductCategory struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	ImageID       string `json:"image_id,omitempty"`
	Image         *Image `json:"image,omitempty"`
	BannerImageID string `json:"banner_image_id,omitempty"`
	BannerImage   *Image `json:"banner_image,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

// CategoryInput is the create/update form.
type CategoryInput struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	ImageID       string `json:"image_id"`
	BannerImageID string `json:"banner_image_id,omitempty"`
}

// Validate applies the category form rules.
func (in CategoryInput) Validate() error {
	v := violations{}
	v.check(!blank(in.Name), "name", "Name is required")
	v.check(!blank(in.ImageID), "image_id", "Category image is required")
	return v.err()
}

func (in CategoryInput) trimmed() CategoryInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	return in
}

// CategoryListParams filters the category list. Zero values are left out of the request.
type CategoryListParams struct {
	Search string
	Offset int
	Limit  int
}

// Values encodes the params as query parameters.
func (p CategoryListParams) Values() url.Values {
	values := url.Values{}
	setInt(values, "offset", p.Offset)
	setInt(values, "limit", p.Limit)
	setString(values, "search", p.Search)
	return values
}

// ListCategories returns product categories.
func (a *Admin) ListCategories(ctx context.Context, params CategoryListParams) (normalize.Page[ProductCategory], error) {
	offset := max(params.Offset, 0)
	return getPage[ProductCategory](ctx, a, CategoryKeys, "/product-categories", params.Values(), offset, params.Limit)
}

// GetCategory returns one category.
func (a *Admin) GetCategory(ctx context.Context, id string) (ProductCategory, error) {
	return getEntity[ProductCategory](ctx, a, CategoryKeys, id, resourcePath("product-categories", id))
}

// CreateCategory validates and submits in.
func (a *Admin) CreateCategory(ctx context.Context, in CategoryInput) (ProductCategory, error) {
	if err := in.Validate(); err != nil {
		return ProductCategory{}, err
	}
	raw, err := a.api.Post(ctx, "/product-categories", in.trimmed())
	if err != nil {
		return ProductCategory{}, fmt.Errorf("create category: %w", err)
	}
	created, err := a.settleCategory(raw, "")
	if err != nil {
		return ProductCategory{}, fmt.Errorf("create category: %w", err)
	}
	a.logger.Info("Category created", slog.String("category", created.ID))
	return created, nil
}

// UpdateCategory validates and submits in for category id.
func (a *Admin) UpdateCategory(ctx context.Context, id string, in CategoryInput) (ProductCategory, error) {
	if blank(id) {
		return ProductCategory{}, ErrMissingID
	}
	if err := in.Validate(); err != nil {
		return ProductCategory{}, err
	}
	raw, err := a.api.Put(ctx, resourcePath("product-categories", id), in.trimmed())
	if err != nil {
		return ProductCategory{}, fmt.Errorf("update category %s: %w", id, err)
	}
	updated, err := a.settleCategory(raw, id)
	if err != nil {
		return ProductCategory{}, fmt.Errorf("update category %s: %w", id, err)
	}
	// Products embed their category summary.
	a.queries.Invalidate(ProductKeys.All())
	a.logger.Info("Category updated", slog.String("category", id))
	return updated, nil
}

func (a *Admin) settleCategory(raw []byte, id string) (ProductCategory, error) {
	defer a.queries.Invalidate(CategoryKeys.Lists())
	category, err := normalize.Decode[ProductCategory](raw)
	if err != nil || category.ID == "" {
		if id != "" {
			a.queries.Invalidate(CategoryKeys.Detail(id))
			return ProductCategory{ID: id}, nil
		}
		return ProductCategory{}, normalize.ErrMalformed
	}
	a.queries.SetData(CategoryKeys.Detail(category.ID), category)
	return category, nil
}

// DeleteCategory removes a category along with its cached filters.
func (a *Admin) DeleteCategory(ctx context.Context, id string) error {
	if blank(id) {
		return ErrMissingID
	}
	if _, err := a.api.Delete(ctx, resourcePath("product-categories", id)); err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	a.queries.Remove(CategoryKeys.Detail(id))
	a.queries.Remove(FilterList(id))
	removeFromPages(a, CategoryKeys.Lists(), func(c ProductCategory) bool { return c.ID == id })
	a.logger.Info("Category deleted", slog.String("category", id))
	return nil
}
