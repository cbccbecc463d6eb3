package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spdeepak/backoffice"
	"github.com/spdeepak/backoffice/money"
	"github.com/spf13/cobra"
)

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show store counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.admin.DashboardStats(cmd.Context())
			if err != nil {
				return a.failed(err, "load dashboard")
			}
			return a.render(stats, func(w io.Writer) {
				fmt.Fprintf(w, "Customers\t%d\n", stats.Customers)
				fmt.Fprintf(w, "Products\t%d\n", stats.Products)
				fmt.Fprintf(w, "Categories\t%d\n", stats.ProductCategories)
				fmt.Fprintf(w, "Inquiries\t%d\n", stats.Inquiries)
				fmt.Fprintf(w, "  pending\t%d\n", stats.InquiriesByStatus.Pending)
				fmt.Fprintf(w, "  in progress\t%d\n", stats.InquiriesByStatus.InProgress)
				fmt.Fprintf(w, "  resolved\t%d\n", stats.InquiriesByStatus.Resolved)
				fmt.Fprintf(w, "  closed\t%d\n", stats.InquiriesByStatus.Closed)
			})
		},
	}
}

func newCustomersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "Browse customers",
	}

	var params backoffice.CustomerListParams
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List customers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if params.Limit == 0 {
				params.Limit = a.cfg.Lists.PageSize
			}
			page, err := a.admin.ListCustomers(cmd.Context(), params)
			if err != nil {
				return a.failed(err, "load customers")
			}
			return a.render(page, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tVERIFIED")
				for _, c := range page.Data {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", c.ID, c.FullName, c.Email, orDash(c.PhoneNumber), c.IsEmailVerified)
				}
				fmt.Fprintf(w, "\n%d of %d, more: %t\n", len(page.Data), page.Meta.Total, page.Meta.HasMore)
			})
		},
	}
	listCmd.Flags().IntVar(&params.Page, "page", 1, "page number")
	listCmd.Flags().IntVar(&params.Limit, "limit", 0, "page size (default from config)")
	listCmd.Flags().StringVar(&params.Search, "search", "", "search text")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a customer and their cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := a.admin.GetCustomer(cmd.Context(), args[0])
			if err != nil {
				return a.failed(err, "load customer")
			}
			return a.render(detail, func(w io.Writer) {
				c := detail.Customer
				fmt.Fprintf(w, "Name\t%s\n", c.FullName)
				fmt.Fprintf(w, "Email\t%s (verified: %t)\n", c.Email, c.IsEmailVerified)
				fmt.Fprintf(w, "Phone\t%s (verified: %t)\n", orDash(c.PhoneNumber), c.IsPhoneNumberVerified)
				fmt.Fprintf(w, "Joined\t%s\n", c.CreatedAt)
				if detail.Cart == nil || len(detail.Cart.Items) == 0 {
					fmt.Fprintln(w, "Cart\tempty")
					return
				}
				fmt.Fprintf(w, "\nPRODUCT\tQTY\tPRICE\n")
				for _, item := range detail.Cart.Items {
					fmt.Fprintf(w, "%s\t%d\t%s\n", item.ProductName, item.Quantity, money.Format(item.SalePrice, a.printer))
				}
				fmt.Fprintf(w, "Total\t%d\t%s\n", detail.Cart.ItemsCount, money.Format(detail.Cart.Total, a.printer))
			})
		},
	}

	cmd.AddCommand(listCmd, getCmd)
	return cmd
}

func newProductsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse and manage products",
	}

	var params backoffice.ProductListParams
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if params.Limit == 0 {
				params.Limit = a.cfg.Lists.PageSize
			}
			page, err := a.admin.ListProducts(cmd.Context(), params)
			if err != nil {
				return a.failed(err, "load products")
			}
			return a.render(page, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tPRICE\tFEATURED")
				for _, p := range page.Data {
					fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", p.ID, p.Name, money.FormatRupees(p.Price(), a.printer), p.IsFeatured)
				}
				fmt.Fprintf(w, "\n%d shown, more: %t\n", len(page.Data), page.Meta.HasMore)
			})
		},
	}
	listCmd.Flags().StringVar(&params.CategoryID, "category", "", "category id")
	listCmd.Flags().StringVar(&params.Search, "search", "", "search text")
	listCmd.Flags().IntVar(&params.Offset, "offset", 0, "offset")
	listCmd.Flags().IntVar(&params.Limit, "limit", 0, "page size (default from config)")
	listCmd.Flags().StringVar(&params.SortBy, "sort-by", "", "created_at, updated_at, name or sale_price")
	listCmd.Flags().StringVar(&params.SortOrder, "sort-order", "", "asc or desc")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.admin.GetProduct(cmd.Context(), args[0])
			if err != nil {
				return a.failed(err, "load product")
			}
			return a.render(p, func(w io.Writer) {
				fmt.Fprintf(w, "Name\t%s\n", p.Name)
				fmt.Fprintf(w, "Price\t%s\n", money.FormatRupees(p.Price(), a.printer))
				if p.Category != nil {
					fmt.Fprintf(w, "Category\t%s\n", p.Category.Name)
				}
				fmt.Fprintf(w, "Tags\t%s\n", strings.Join(p.Tags, ", "))
				for _, point := range p.Points {
					fmt.Fprintf(w, "\t- %s\n", point)
				}
				for _, detail := range p.TechnicalDetails {
					fmt.Fprintf(w, "%s\t%s\n", detail.Label, detail.Value)
				}
				if img, ok := p.PrimaryImage(); ok && img.Image != nil {
					fmt.Fprintf(w, "Image\t%s\n", img.Image.URL)
				}
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.admin.DeleteProduct(cmd.Context(), args[0]); err != nil {
				return a.failed(err, "delete product")
			}
			fmt.Fprintln(a.out, "Product deleted successfully")
			return nil
		},
	}

	cmd.AddCommand(listCmd, getCmd, deleteCmd)
	return cmd
}

func newCategoriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Browse product categories",
	}

	var params backoffice.CategoryListParams
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := a.admin.ListCategories(cmd.Context(), params)
			if err != nil {
				return a.failed(err, "load categories")
			}
			return a.render(page, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
				for _, c := range page.Data {
					fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, orDash(c.Description))
				}
			})
		},
	}
	listCmd.Flags().StringVar(&params.Search, "search", "", "search text")
	listCmd.Flags().IntVar(&params.Limit, "limit", 0, "page size")

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.admin.GetCategory(cmd.Context(), args[0])
			if err != nil {
				return a.failed(err, "load category")
			}
			return a.render(c, func(w io.Writer) {
				fmt.Fprintf(w, "Name\t%s\n", c.Name)
				fmt.Fprintf(w, "Description\t%s\n", orDash(c.Description))
				if c.Image != nil {
					fmt.Fprintf(w, "Image\t%s\n", c.Image.URL)
				}
				if c.BannerImage != nil {
					fmt.Fprintf(w, "Banner\t%s\n", c.BannerImage.URL)
				}
			})
		},
	}

	cmd.AddCommand(listCmd, getCmd)
	return cmd
}

func newFiltersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filters",
		Short: "Manage category filters",
	}

	listCmd := &cobra.Command{
		Use:   "list <category-id>",
		Short: "List the filters of a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := a.admin.ListFilters(cmd.Context(), args[0])
			if err != nil {
				return a.failed(err, "load filters")
			}
			return a.render(filters, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tOPTIONS")
				for _, f := range filters {
					values := make([]string, 0, len(f.Options))
					for _, opt := range f.Options {
						values = append(values, opt.Value)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", f.ID, f.Name, strings.Join(values, ", "))
				}
			})
		},
	}

	addOptionCmd := &cobra.Command{
		Use:   "add-option <category-id> <filter-id> <value>",
		Short: "Add an option to a filter",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			option, err := a.admin.CreateFilterOption(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return a.failed(err, "add filter option")
			}
			return a.render(option, func(w io.Writer) {
				fmt.Fprintf(w, "Filter option added\t%s\n", orDash(option.ID))
			})
		},
	}

	cmd.AddCommand(listCmd, addOptionCmd)
	return cmd
}

func newFilesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Manage stored files",
	}
	uploadCmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a file and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			file, err := a.admin.UploadFile(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return a.failed(err, "upload file")
			}
			return a.render(file, func(w io.Writer) {
				fmt.Fprintf(w, "ID\t%s\nURL\t%s\n", file.ID, orDash(file.URL))
			})
		},
	}
	cmd.AddCommand(uploadCmd)
	return cmd
}
