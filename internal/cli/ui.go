package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dyike/marktbot/internal/models"
	"github.com/dyike/marktbot/internal/pipeline"
	"github.com/dyike/marktbot/internal/price"
	"github.com/dyike/marktbot/internal/storage/sqlite"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Background(lipgloss.Color("#1F2937")).
			Padding(0, 1).
			MarginBottom(1)

	headerCellStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	inProgressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	completedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4B5563"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCellStyle
			}
			return cellStyle
		})
}

// DisplayResults prints one row per evaluated listing.
func DisplayResults(results []pipeline.Result) {
	if len(results) == 0 {
		fmt.Println(pendingStyle.Render("No listings found."))
		return
	}

	t := newTable("ID", "Title", "Price", "Rating", "Outcome")
	for _, r := range results {
		rating := strconv.Itoa(r.Evaluation.Rating)
		if r.Evaluation.Degraded {
			rating += "*"
		}
		t.Row(r.Listing.ID, truncateString(r.Listing.Title, 40), price.Format(r.Listing.Price), rating, outcomeLabel(r))
	}
	fmt.Println(t.Render())
	fmt.Println(pendingStyle.Render("* parsed from a free-form model answer"))
}

func outcomeLabel(r pipeline.Result) string {
	switch r.Outcome {
	case pipeline.OutcomeOpened:
		return completedStyle.Render("messaged")
	case pipeline.OutcomeAlreadyNegotiating:
		return inProgressStyle.Render(r.Outcome)
	case pipeline.OutcomeFailed:
		return errorStyle.Render(truncateString(r.Error, 40))
	default:
		return pendingStyle.Render(r.Outcome)
	}
}

// DisplaySummary prints the outcome of one inbox poll.
func DisplaySummary(sum pipeline.Summary) {
	fmt.Println(titleStyle.Render("Inbox"))
	fmt.Printf("Processed: %d  Ignored: %d  Deals: %d\n", sum.Processed, sum.Ignored, sum.Deals)
	for _, tr := range sum.Transitions {
		line := fmt.Sprintf("%s  %s → %s", tr.ListingID, tr.From, tr.To)
		if tr.IsDeal() {
			fmt.Println(completedStyle.Render(line))
			continue
		}
		fmt.Println(inProgressStyle.Render(line))
	}
	for _, f := range sum.Failures {
		fmt.Println(errorStyle.Render(fmt.Sprintf("%s  %s", f.ListingID, f.Error)))
	}
}

// DisplayNegotiations prints every tracked negotiation.
func DisplayNegotiations(recs []models.NegotiationRecord) {
	if len(recs) == 0 {
		return
	}
	t := newTable("ID", "Title", "Asked", "Seller", "Stage")
	for _, rec := range recs {
		seller := "-"
		if !rec.CounterPrice.IsZero() {
			seller = price.Format(rec.CounterPrice)
		}
		t.Row(rec.ListingID, truncateString(rec.Title, 40), price.Format(rec.AskPrice), seller, rec.Stage.String())
	}
	fmt.Println(t.Render())
}

// DisplayHistory prints the stored stage changes of one listing.
func DisplayHistory(listingID string, events []sqlite.Event) {
	if len(events) == 0 {
		return
	}
	fmt.Println(pendingStyle.Render(fmt.Sprintf("History of %s:", listingID)))
	for _, ev := range events {
		fmt.Printf("  %s  %s → %s\n", ev.At.Local().Format("2006-01-02 15:04"), ev.From, ev.To)
	}
}

// DisplayWarning shows a warning message
func DisplayWarning(message string) {
	fmt.Println(inProgressStyle.Render(fmt.Sprintf("⚠️  %s", message)))
}

// DisplayInfo shows an info message
func DisplayInfo(message string) {
	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Render(fmt.Sprintf("ℹ️  %s", message)))
}

// DisplaySuccess shows a success message
func DisplaySuccess(message string) {
	fmt.Println(completedStyle.Render(fmt.Sprintf("✅ %s", message)))
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
