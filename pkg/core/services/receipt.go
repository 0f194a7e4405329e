package services

import (
	"fmt"
	"strings"

	"github.com/shivamksharma/devdonations/pkg/db"
)

// RenderReceipt builds the subject and plain-text body of a donation receipt
func RenderReceipt(d db.Donation) (subject, body string) {
	subject = "Thank you for your donation"

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", d.Donor.Name)
	b.WriteString("Thank you for donating to DevDonations. We have received the following:\n\n")
	for _, item := range d.Items {
		fmt.Fprintf(&b, "  - %d x %s (%s)", item.Quantity, item.Type, item.Category)
		if item.Condition != "" {
			fmt.Fprintf(&b, ", %s condition", item.Condition)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nTotal items: %d\n", d.TotalQuantity())

	if d.PickupRequested {
		b.WriteString("\nYou asked for a pickup. A volunteer will contact you to arrange a time.\n")
	} else {
		b.WriteString("\nPlease bring your items to your chosen drop-off location.\n")
	}

	fmt.Fprintf(&b, "\nReference: %s\n\nThe DevDonations team\n", d.ID)
	return subject, b.String()
}
