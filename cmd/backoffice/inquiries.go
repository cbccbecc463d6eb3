package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spdeepak/backoffice"
	"github.com/spdeepak/backoffice/debounce"
	"github.com/spdeepak/backoffice/normalize"
	"github.com/spf13/cobra"
)

func newInquiriesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inquiries",
		Short: "Work the inquiry queue",
	}
	cmd.AddCommand(
		newInquiriesListCmd(a),
		newInquiriesGetCmd(a),
		newInquiriesStatusCmd(a),
		newInquiriesDeleteCmd(a),
		newInquiriesSearchCmd(a),
	)
	return cmd
}

type inquiryFilterFlags struct {
	status string
	kind   string
	search string
	limit  int
}

func (f *inquiryFilterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.status, "status", "", "pending, in_progress, resolved or closed")
	cmd.Flags().StringVar(&f.kind, "type", "", "general, contact, product or guest_enquiry")
	cmd.Flags().StringVar(&f.search, "search", "", "search text")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "page size (default from config)")
}

func (f *inquiryFilterFlags) params(a *app) (backoffice.InquiryListParams, error) {
	params := backoffice.InquiryListParams{
		Type:   backoffice.InquiryType(f.kind),
		Search: f.search,
		Limit:  f.limit,
	}
	if f.status != "" {
		status, err := backoffice.ParseInquiryStatus(f.status)
		if err != nil {
			return params, err
		}
		params.Status = status
	}
	if params.Limit == 0 {
		params.Limit = a.cfg.Lists.PageSize
	}
	return params, params.Validate()
}

func newInquiriesListCmd(a *app) *cobra.Command {
	var (
		filters inquiryFilterFlags
		pages   int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List inquiries, scrolling through --pages pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := filters.params(a)
			if err != nil {
				return err
			}
			feed := a.admin.InquiryFeed(params)
			if _, err := feed.Load(cmd.Context()); err != nil {
				return a.failed(err, "load inquiries")
			}
			for i := 1; i < pages; i++ {
				merged, err := feed.More(cmd.Context())
				if err != nil {
					return a.failed(err, "load more inquiries")
				}
				if !merged {
					break
				}
			}

			items := feed.Items()
			acc := feed.Accumulator()
			return a.render(items, func(w io.Writer) {
				printInquiries(w, items)
				if acc.Done() {
					fmt.Fprintf(w, "\n%d inquiries, end of list\n", len(items))
				} else {
					fmt.Fprintf(w, "\n%d inquiries, more available\n", len(items))
				}
			})
		},
	}
	filters.register(cmd)
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	return cmd
}

func printInquiries(w io.Writer, items []backoffice.Inquiry) {
	fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tFROM\tCREATED")
	for _, inq := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", inq.ID, inq.Type, inq.Status, inq.Contact().Name, inq.CreatedAt)
	}
}

func newInquiriesGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show an inquiry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inq, err := a.admin.GetInquiry(cmd.Context(), args[0])
			if err != nil {
				return a.failed(err, "load inquiry")
			}
			return a.render(inq, func(w io.Writer) {
				contact := inq.Contact()
				fmt.Fprintf(w, "Status\t%s\n", inq.Status)
				fmt.Fprintf(w, "Type\t%s\n", inq.Type)
				fmt.Fprintf(w, "Name\t%s\n", contact.Name)
				fmt.Fprintf(w, "Email\t%s\n", contact.Email)
				fmt.Fprintf(w, "Phone\t%s\n", contact.Phone)
				if inq.Product != nil {
					fmt.Fprintf(w, "Product\t%s\n", inq.Product.Name)
				}
				if inq.MetaData != nil && inq.MetaData.Quantity > 0 {
					fmt.Fprintf(w, "Quantity\t%d\n", inq.MetaData.Quantity)
				}
				fmt.Fprintf(w, "Message\t%s\n", inq.Message)
			})
		},
	}
}

func newInquiriesStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move an inquiry to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := backoffice.ParseInquiryStatus(args[1])
			if err != nil {
				return err
			}
			inq, err := a.admin.UpdateInquiryStatus(cmd.Context(), args[0], status)
			if err != nil {
				return a.failed(err, "update status")
			}
			return a.render(inq, func(w io.Writer) {
				fmt.Fprintln(w, "Inquiry status updated successfully")
			})
		},
	}
}

func newInquiriesDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an inquiry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.admin.DeleteInquiry(cmd.Context(), args[0]); err != nil {
				return a.failed(err, "delete inquiry")
			}
			fmt.Fprintln(a.out, "Inquiry deleted successfully")
			return nil
		},
	}
}

func newInquiriesSearchCmd(a *app) *cobra.Command {
	var (
		filters inquiryFilterFlags
		delay   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search inquiries as you type",
		Long: `Reads the search box from stdin, one line per edit, and queries the
inquiry list once the input has been quiet for --debounce.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := filters.params(a)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("debounce") {
				delay = a.cfg.Lists.SearchDebounce
			}
			return searchInquiries(cmd.Context(), a, a.in, delay, params)
		},
	}
	filters.register(cmd)
	cmd.Flags().DurationVar(&delay, "debounce", 500*time.Millisecond, "quiet period before searching (default from config)")
	return cmd
}

// searchInquiries feeds every line of in through a debouncer and lists the
// inquiries for each settled search term. Input ending commits the last term.
func searchInquiries(ctx context.Context, a *app, in io.Reader, delay time.Duration, params backoffice.InquiryListParams) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	// One slot for a timer commit still unread plus one for the final Flush.
	commits := make(chan string, 2)
	search := debounce.New(delay, func(term string) { commits <- term })
	defer search.Stop()

	run := func(term string) error {
		p := params
		p.Search = term
		a.logger.Debug("search committed", slog.String("search", term))
		page, err := a.admin.ListInquiries(ctx, p)
		if err != nil {
			return a.failed(err, "search inquiries")
		}
		return a.renderSearch(term, page)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case term := <-commits:
			if err := run(term); err != nil {
				return err
			}
		case line, ok := <-lines:
			if ok {
				search.Set(line)
				continue
			}
			search.Flush()
			search.Stop()
			for {
				select {
				case term := <-commits:
					if err := run(term); err != nil {
						return err
					}
				default:
					return nil
				}
			}
		}
	}
}

func (a *app) renderSearch(term string, page normalize.Page[backoffice.Inquiry]) error {
	return a.render(map[string]any{"search": term, "results": page}, func(w io.Writer) {
		fmt.Fprintf(w, "search %q: %d results\n", term, len(page.Data))
		printInquiries(w, page.Data)
	})
}
