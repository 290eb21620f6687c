package cards

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/crucial707/cashcard/cmd/cli/client"
	"github.com/crucial707/cashcard/cmd/cli/output"
	"github.com/crucial707/cashcard/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var cardHeaders = []string{"ID", "AMOUNT", "OWNER"}

// ==========================
// Init Cards
// ==========================
func InitCards(rootCmd *cobra.Command) {
	cardsCmd := &cobra.Command{
		Use:   "cards",
		Short: "Manage your cash cards",
	}

	cardsCmd.AddCommand(
		listCardsCmd(),
		getCardCmd(),
		createCardCmd(),
		updateCardCmd(),
		deleteCardCmd(),
	)

	rootCmd.AddCommand(cardsCmd)
}

// ==========================
// LIST
// ==========================
func listCardsCmd() *cobra.Command {
	var page, size int
	var sort []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your cash cards",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.New()
			if err != nil {
				return err
			}

			q := url.Values{}
			if cmd.Flags().Changed("page") {
				q.Set("page", strconv.Itoa(page))
			}
			if cmd.Flags().Changed("size") {
				q.Set("size", strconv.Itoa(size))
			}
			for _, s := range sort {
				q.Add("sort", s)
			}
			path := "/cashcards"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var cards []models.CashCard
			resp, err := c.Do(http.MethodGet, path, nil, &cards)
			if err != nil {
				return err
			}

			if asJSON {
				return output.RenderJSON(cmd.OutOrStdout(), cards)
			}
			rows := make([][]any, 0, len(cards))
			for _, card := range cards {
				rows = append(rows, cardRow(card))
			}
			var footer table.Row
			if total := resp.Header.Get("X-Total-Count"); total != "" {
				footer = table.Row{"", "TOTAL CARDS", total}
			}
			output.RenderTable(cmd.OutOrStdout(), cardHeaders, rows, footer)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "page number, starting at 0")
	cmd.Flags().IntVar(&size, "size", 20, "cards per page")
	cmd.Flags().StringArrayVar(&sort, "sort", nil, "sort key as field[,asc|desc]; repeatable (fields: id, amount, owner)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// ==========================
// GET
// ==========================
func getCardCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show one cash card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := client.New()
			if err != nil {
				return err
			}

			var card models.CashCard
			if _, err := c.Do(http.MethodGet, "/cashcards/"+id, nil, &card); err != nil {
				return notFound(err, id)
			}
			if asJSON {
				return output.RenderJSON(cmd.OutOrStdout(), card)
			}
			output.RenderTable(cmd.OutOrStdout(), cardHeaders, [][]any{cardRow(card)}, nil)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// ==========================
// CREATE
// ==========================
func createCardCmd() *cobra.Command {
	var amount string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a cash card",
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}
			c, err := client.New()
			if err != nil {
				return err
			}

			resp, err := c.Do(http.MethodPost, "/cashcards", amountBody(value), nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cash card created: %s\n", resp.Header.Get("Location"))
			return nil
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "card amount, e.g. 123.45")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

// ==========================
// UPDATE
// ==========================
func updateCardCmd() *cobra.Command {
	var amount string

	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Change the amount of a cash card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}
			c, err := client.New()
			if err != nil {
				return err
			}

			if _, err := c.Do(http.MethodPut, "/cashcards/"+id, amountBody(value), nil); err != nil {
				return notFound(err, id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cash card %s updated\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "new amount")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

// ==========================
// DELETE
// ==========================
func deleteCardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a cash card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := client.New()
			if err != nil {
				return err
			}

			if _, err := c.Do(http.MethodDelete, "/cashcards/"+id, nil, nil); err != nil {
				return notFound(err, id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cash card %s deleted\n", id)
			return nil
		},
	}
}

// ==========================
// Helpers
// ==========================

func cardRow(c models.CashCard) []any {
	return []any{c.ID, c.Amount.StringFixed(2), c.Owner}
}

func amountBody(d decimal.Decimal) map[string]any {
	return map[string]any{"amount": json.Number(d.String())}
}

func parseID(s string) (string, error) {
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return "", fmt.Errorf("invalid card id %q", s)
	}
	return s, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, errors.New("amount must not be negative")
	}
	return d, nil
}

// notFound replaces a 404 with a message that does not suggest the card exists for someone else.
func notFound(err error, id string) error {
	if client.IsNotFound(err) {
		return fmt.Errorf("cash card %s not found", id)
	}
	return err
}
