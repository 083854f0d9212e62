package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/bakery-quotes/internal/intake"
	"github.com/angelmondragon/bakery-quotes/internal/materials"
	"github.com/angelmondragon/bakery-quotes/internal/quotation"
	"github.com/angelmondragon/bakery-quotes/internal/quotes"
	"github.com/angelmondragon/bakery-quotes/internal/render"
	"github.com/angelmondragon/bakery-quotes/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakery-quotes/pkg/errors"
	"github.com/angelmondragon/bakery-quotes/pkg/pagination"
)

// conversation is the intake state machine driven by chat.
type conversation interface {
	Handle(ctx context.Context, sessionID, text string) (intake.Reply, error)
}

type services struct {
	materials materials.Service
	quotes    quotes.Service
	intake    conversation
	closer    func() error
}

// cliEnv connects lazily so --help never touches the database.
type cliEnv struct {
	connect  func(ctx context.Context, logLevel string) (*services, error)
	svc      *services
	logLevel string
}

func (e *cliEnv) load(ctx context.Context) (*services, error) {
	if e.svc != nil {
		return e.svc, nil
	}
	svc, err := e.connect(ctx, e.logLevel)
	if err != nil {
		return nil, err
	}
	e.svc = svc
	return svc, nil
}

func (e *cliEnv) close() error {
	if e.svc == nil || e.svc.closer == nil {
		return nil
	}
	return e.svc.closer()
}

func newRootCmd(env *cliEnv) *cobra.Command {
	root := &cobra.Command{
		Use:   "quotectl",
		Short: "Bakery quotation tool",
		Long: `quotectl prices bakery jobs and maintains the material price list.

Available commands:
  materials - list, get, search, set and import material costs
  quote     - generate and list quotations
  chat      - collect a job over a conversation on stdin`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&env.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newMaterialsCmd(env), newQuoteCmd(env), newChatCmd(env))
	return root
}

func newMaterialsCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "materials",
		Short: "Maintain the material price list",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every material cost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := env.load(cmd.Context())
			if err != nil {
				return err
			}
			records, err := svc.materials.List(cmd.Context())
			if err != nil {
				return err
			}
			return printMaterials(cmd.OutOrStdout(), records)
		},
	}

	get := &cobra.Command{
		Use:   "get NAME",
		Short: "Show one material cost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := env.load(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := svc.materials.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printMaterials(cmd.OutOrStdout(), []materials.Record{rec})
		},
	}

	search := &cobra.Command{
		Use:   "search PATTERN",
		Short: "Find materials whose name contains PATTERN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := env.load(cmd.Context())
			if err != nil {
				return err
			}
			records, err := svc.materials.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printMaterials(cmd.OutOrStdout(), records)
		},
	}

	var unit, cost, currency string
	set := &cobra.Command{
		Use:   "set NAME",
		Short: "Add a material or update its cost",
		Long: `Adds a material when --unit is given, otherwise updates the cost of an
existing material.

Example:
  quotectl materials set honey --unit kg --cost 7.25
  quotectl materials set flour --cost 0.95`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := decimal.NewFromString(strings.TrimSpace(cost))
			if err != nil {
				return fmt.Errorf("--cost must be a decimal number: %w", err)
			}
			svc, err := env.load(cmd.Context())
			if err != nil {
				return err
			}
			var rec materials.Record
			if unit == "" {
				rec, err = svc.materials.UpdateCost(cmd.Context(), args[0], value)
			} else {
				rec, err = svc.materials.Set(cmd.Context(), materials.SetMaterialInput{
					Name:     args[0],
					Unit:     unit,
					UnitCost: value,
					Currency: currency,
				})
			}
			if err != nil {
				return err
			}
			return printMaterials(cmd.OutOrStdout(), []materials.Record{rec})
		},
	}
	set.Flags().StringVar(&unit, "unit", "", "canonical unit (g, kg, ml, L, each)")
	set.Flags().StringVar(&cost, "cost", "", "cost per unit")
	set.Flags().StringVar(&currency, "currency", "", "ISO currency code")
	_ = set.MarkFlagRequired("cost")

	load := &cobra.Command{
		Use:   "import FILE",
		Short: "Set every material in a YAML price list",
		Long: `Reads a YAML price list and sets each entry. Use - to read stdin.

Example file:
  currency: GBP
  materials:
    - name: flour
      unit: kg
      unit_cost: "0.90"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			inputs, err := materials.ParsePriceList(in)
			if err != nil {
				return err
			}
			svc, err := env.load(cmd.Context())
			if err != nil {
				return err
			}
			records := make([]materials.Record, 0, len(inputs))
			for _, input := range inputs {
				rec, err := svc.materials.Set(cmd.Context(), input)
				if err != nil {
					return fmt.Errorf("material %q: %w", input.Name, err)
				}
				records = append(records, rec)
			}
			return printMaterials(cmd.OutOrStdout(), records)
		},
	}

	cmd.AddCommand(list, get, search, set, load)
	return cmd
}

type generateFlags struct {
	jobType   string
	quantity  string
	customer  string
	due       string
	company   string
	currency  string
	notes     string
	laborRate string
	markup    string
	vat       string
	output    string
	asJSON    bool
	preview   bool
}

func (f generateFlags) request() (quotes.JobRequest, error) {
	qty, err := decimal.NewFromString(strings.TrimSpace(f.quantity))
	if err != nil {
		return quotes.JobRequest{}, pkgerrors.Validation(pkgerrors.Violation("quantity", "must be a whole number"))
	}
	req := quotes.JobRequest{
		JobType:      f.jobType,
		Quantity:     qty,
		CustomerName: f.customer,
		DueDate:      f.due,
		CompanyName:  f.company,
		Currency:     f.currency,
		Notes:        f.notes,
	}
	overrides := []struct {
		field string
		raw   string
		dest  **decimal.Decimal
	}{
		{"labor_rate", f.laborRate, &req.LaborRate},
		{"markup_pct", f.markup, &req.MarkupPct},
		{"vat_pct", f.vat, &req.VATPct},
	}
	for _, o := range overrides {
		if o.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(strings.TrimSpace(o.raw))
		if err != nil {
			return quotes.JobRequest{}, pkgerrors.Validation(pkgerrors.Violation(o.field, "must be a decimal number"))
		}
		*o.dest = &v
	}
	return req, nil
}

func newQuoteCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Generate and list quotations",
	}

	var f generateFlags
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Price a job and store the quotation",
		Long: `Prices a job from its bill of materials, renders the quotation document
and stores both.

Example:
  quotectl quote generate --job-type cupcakes --quantity 24 \
    --customer "Jane Doe" --due 2026-04-10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := f.request()
			if err != nil {
				return err
			}
			svc, err := env.load(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if f.preview {
				rec, err := svc.quotes.Preview(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printJSON(out, rec)
			}

			quote, err := svc.quotes.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			if f.output != "" {
				if err := os.WriteFile(f.output, []byte(quote.Document), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", f.output, err)
				}
			}
			if f.asJSON {
				return printJSON(out, quote.Record)
			}
			_, err = fmt.Fprint(out, quote.Document)
			return err
		},
	}
	flags := generate.Flags()
	flags.StringVar(&f.jobType, "job-type", "", "job type, e.g. cupcakes")
	flags.StringVar(&f.quantity, "quantity", "", "number of units")
	flags.StringVar(&f.customer, "customer", "", "customer name")
	flags.StringVar(&f.due, "due", "", "due date (YYYY-MM-DD)")
	flags.StringVar(&f.company, "company", "", "company name on the quotation")
	flags.StringVar(&f.currency, "currency", "", "ISO currency code")
	flags.StringVar(&f.notes, "notes", "", "notes printed on the quotation")
	flags.StringVar(&f.laborRate, "labor-rate", "", "override labor rate per hour")
	flags.StringVar(&f.markup, "markup", "", "override markup fraction, e.g. 0.30")
	flags.StringVar(&f.vat, "vat", "", "override VAT fraction, e.g. 0.20")
	flags.StringVarP(&f.output, "output", "o", "", "also write the document to this file")
	flags.BoolVar(&f.asJSON, "json", false, "print the quotation record as JSON")
	flags.BoolVar(&f.preview, "preview", false, "price the job without storing it")
	for _, name := range []string{"job-type", "quantity", "customer", "due"} {
		_ = generate.MarkFlagRequired(name)
	}

	var (
		limit  int
		cursor string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent quotations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := env.load(cmd.Context())
			if err != nil {
				return err
			}
			page, err := svc.quotes.List(cmd.Context(), pagination.Params{Limit: limit, Cursor: cursor})
			if err != nil {
				return err
			}
			if err := printQuotes(cmd.OutOrStdout(), page.Quotes); err != nil {
				return err
			}
			if page.NextCursor != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "next cursor: %s\n", page.NextCursor)
			}
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", pagination.DefaultLimit, "maximum number of quotations")
	list.Flags().StringVar(&cursor, "cursor", "", "continue after a previous page")

	cmd.AddCommand(generate, list)
	return cmd
}

func newChatCmd(env *cliEnv) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Collect a job through the intake conversation",
		Long: `Reads one message per line from stdin and prints each reply. Answer the
prompts, or give several fields at once as "job_type: cake; quantity: 2".
Type "reset" to start over.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := env.load(cmd.Context())
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), svc.intake, sessionID, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "cli", "intake session id")
	return cmd
}

func runChat(ctx context.Context, conv conversation, sessionID string, in io.Reader, out io.Writer) error {
	reply, err := conv.Handle(ctx, sessionID, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n> ", reply.Message)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "quit" || line == "exit" {
			return nil
		}
		reply, err = conv.Handle(ctx, sessionID, line)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, reply.Message)
		if reply.State == enums.IntakeDone && reply.Quote != nil {
			fmt.Fprint(out, reply.Quote.Document)
			return nil
		}
		fmt.Fprint(out, "> ")
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func printMaterials(w io.Writer, records []materials.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tUNIT\tCOST\tCURRENCY\tUPDATED")
	for _, r := range records {
		updated := ""
		if !r.LastUpdated.IsZero() {
			updated = r.LastUpdated.Format(quotation.DateLayout)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Name, r.Unit, r.UnitCost.String(), r.Currency, updated)
	}
	return tw.Flush()
}

func printQuotes(w io.Writer, records []quotation.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUOTE\tDATE\tCUSTOMER\tJOB\tQTY\tTOTAL")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s %s\n",
			r.ID, r.QuoteDate(), r.CustomerName, r.JobType, r.Quantity, r.Currency, render.Money(r.Totals.Total))
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
