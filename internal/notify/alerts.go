package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aimd54/mystery-box/internal/models"
)

// FormatAmount renders minor currency units for humans.
func FormatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	major := fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
	switch strings.ToLower(currency) {
	case "", "usd":
		return "$" + major
	default:
		return major + " " + strings.ToUpper(currency)
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func userFields(user *models.User) []Field {
	name, email := "Unknown", "No email"
	if user != nil {
		name = orDefault(user.Name, name)
		email = orDefault(user.Email, email)
	}
	return []Field{
		{Name: "👤 User", Value: name, Inline: true},
		{Name: "📧 Email", Value: email, Inline: true},
	}
}

// NewPaymentAlert asks an admin to open the prize for a fresh payment.
func NewPaymentAlert(user *models.User, payment *models.Payment) Message {
	fields := userFields(user)
	fields = append(fields, Field{Name: "💰 Amount", Value: FormatAmount(payment.Amount, payment.Currency), Inline: true})

	return Message{
		Type:     models.NotificationNewPayment,
		Headline: "🔔 **Admin Action Required** - New prize payment received!",
		Title:    "🎁 New Prize Payment Received!",
		Body:     "A user has made a payment and is waiting for their prize to be opened.",
		Fields:   fields,
	}
}

// PrizeOpenedAlert covers standard, manual and direct openings.
func PrizeOpenedAlert(notificationType string, user *models.User, prize *models.PrizeType, boxNumber *int, admin string) Message {
	fields := userFields(user)
	fields = append(fields,
		Field{Name: "🎁 Prize", Value: prize.Name, Inline: true},
		Field{Name: "💰 Value", Value: FormatAmount(prize.Value, "usd"), Inline: true},
	)
	if boxNumber != nil {
		fields = append(fields, Field{Name: "📦 Box", Value: "#" + strconv.Itoa(*boxNumber), Inline: true})
	}
	fields = append(fields, Field{Name: "👨‍💼 Opened By", Value: admin, Inline: true})

	body := "An admin has opened a prize for a user."
	switch notificationType {
	case models.NotificationManualPrizeOpened:
		body = "An admin has manually opened a prize for a user."
	case models.NotificationDirectBoxOpened:
		body = "An admin has opened a box directly on the board."
	}

	return Message{
		Type:     notificationType,
		Headline: "✅ **Prize Opened** - User prize has been opened by admin",
		Title:    "🎉 Prize Opened!",
		Body:     body,
		Fields:   fields,
	}
}

// PrizeDeliveredAlert reports a shipped prize.
func PrizeDeliveredAlert(user *models.User, prize *models.PrizeType, admin string) Message {
	prizeName := "Unknown"
	if prize != nil {
		prizeName = prize.Name
	}
	fields := userFields(user)
	fields = append(fields,
		Field{Name: "🎁 Prize", Value: prizeName, Inline: true},
		Field{Name: "👨‍💼 Delivered By", Value: admin, Inline: true},
	)

	return Message{
		Type:     models.NotificationPrizeDelivered,
		Headline: "📦 **Prize Delivered** - User has received their prize",
		Title:    "📦 Prize Delivered!",
		Body:     "A prize has been delivered to the user.",
		Fields:   fields,
	}
}

// PrizeCancelledAlert reports a claim withdrawn before opening.
func PrizeCancelledAlert(user *models.User, claimID, admin string) Message {
	fields := userFields(user)
	fields = append(fields,
		Field{Name: "🧾 Claim", Value: claimID, Inline: false},
		Field{Name: "👨‍💼 Cancelled By", Value: admin, Inline: true},
	)

	return Message{
		Type:     models.NotificationPrizeCancelled,
		Headline: "❌ **Prize Cancelled** - A pending claim was cancelled",
		Title:    "❌ Prize Cancelled",
		Body:     "A pending prize claim was cancelled before opening.",
		Fields:   fields,
	}
}

// DailySummaryAlert reports the day's claim activity.
func DailySummaryAlert(pending, openedToday, deliveredToday int64, day time.Time) Message {
	return Message{
		Type:     TypeDailySummary,
		Headline: "📊 **Daily Summary** - Prize activity summary",
		Title:    "📊 Daily Prize Summary",
		Body:     "Summary of prize activities for " + day.Format("Mon 02 Jan 2006") + ".",
		Fields: []Field{
			{Name: "⏳ Pending Prizes", Value: strconv.FormatInt(pending, 10), Inline: true},
			{Name: "🎉 Opened Today", Value: strconv.FormatInt(openedToday, 10), Inline: true},
			{Name: "📦 Delivered Today", Value: strconv.FormatInt(deliveredToday, 10), Inline: true},
		},
	}
}
