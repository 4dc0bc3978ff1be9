package receipt

import (
	"fmt"
	"strings"

	"github.com/jvillar/tienda/internal/catalog"
	"github.com/jvillar/tienda/internal/sale"
)

const width = 40

// Render produces a plain-text receipt for a sale, sized for a 40-column
// thermal printer. Product names come from the catalog snapshot passed in;
// unknown ids fall back to the id prefix.
func Render(storeName string, s *sale.Sale, products map[string]*catalog.Product) string {
	var sb strings.Builder

	center(&sb, storeName)
	center(&sb, s.CreatedAt.Format("2006-01-02 15:04"))
	sb.WriteString(strings.Repeat("-", width) + "\n")

	if s.CustomerName != "" {
		fmt.Fprintf(&sb, "Customer: %s\n", s.CustomerName)
	}

	for _, line := range s.Lines {
		name := line.ProductID.String()[:8]
		if p, ok := products[line.ProductID.String()]; ok {
			name = p.Name
		}

		sb.WriteString(name + "\n")
		row(&sb,
			fmt.Sprintf("  %d x %s", line.Quantity, line.UnitPriceSnapshot.StringFixed(2)),
			line.Subtotal.StringFixed(2),
		)
	}

	sb.WriteString(strings.Repeat("-", width) + "\n")
	row(&sb, "TOTAL", s.Total.StringFixed(2))
	row(&sb, fmt.Sprintf("PAID (%s)", s.PaymentMethod), s.AmountTendered.StringFixed(2))
	row(&sb, "CHANGE", s.ChangeDue.StringFixed(2))

	if s.Status == sale.StatusVoided {
		sb.WriteString(strings.Repeat("-", width) + "\n")
		center(&sb, "*** VOIDED ***")

		if s.VoidedAt != nil {
			center(&sb, s.VoidedAt.Format("2006-01-02 15:04"))
		}
	}

	sb.WriteString(strings.Repeat("-", width) + "\n")
	fmt.Fprintf(&sb, "Sale %s\n", s.ID)

	return sb.String()
}

func center(sb *strings.Builder, text string) {
	pad := (width - len(text)) / 2
	if pad < 0 {
		pad = 0
	}

	sb.WriteString(strings.Repeat(" ", pad) + text + "\n")
}

func row(sb *strings.Builder, left, right string) {
	pad := width - len(left) - len(right)
	if pad < 1 {
		pad = 1
	}

	sb.WriteString(left + strings.Repeat(" ", pad) + right + "\n")
}
