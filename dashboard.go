package backoffice

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spdeepak/backoffice/normalize"
	"github.com/spdeepak/backoffice/query"
)

type InquiriesByStatus struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
	Closed     int `json:"closed"`
}

// DashboardStats are the landing page counters.
type DashboardStats struct {
	Customers         int               `json:"customers"`
	Products          int               `json:"products"`
	ProductCategories int               `json:"product_categories"`
	Inquiries         int               `json:"inquiries"`
	InquiriesByStatus InquiriesByStatus `json:"inquiries_by_status"`
}

// DashboardStats returns the landing page counters.
func (a *Admin) DashboardStats(ctx context.Context) (DashboardStats, error) {
	return query.Get(ctx, a.queries, DashboardKeys.Stats(), func(ctx context.Context) (DashboardStats, error) {
		raw, err := a.api.Get(ctx, "/dashboard/stats", nil)
		if err != nil {
			return DashboardStats{}, err
		}
		return normalize.Decode[DashboardStats](raw)
	})
}

// UploadedFile is a stored file; its ID is what image_id fields take.
type UploadedFile struct {
	ID  string `json:"id"`
	Key string `json:"key,omitempty"`
	URL string `json:"url,omitempty"`
}

// UploadFile stores content under filename and returns the new file.
func (a *Admin) UploadFile(ctx context.Context, filename string, content io.Reader) (UploadedFile, error) {
	raw, err := a.api.Upload(ctx, "/files", "file", filename, content)
	if err != nil {
		return UploadedFile{}, fmt.Errorf("upload %s: %w", filename, err)
	}
	file, err := normalize.Decode[UploadedFile](raw)
	if err != nil {
		return UploadedFile{}, fmt.Errorf("upload %s: %w", filename, err)
	}
	if file.ID == "" {
		return UploadedFile{}, fmt.Errorf("upload %s: response has no file id: %w", filename, normalize.ErrMalformed)
	}
	a.logger.Debug("File uploaded", slog.String("file", file.ID), slog.String("name", filename))
	return file, nil
}
