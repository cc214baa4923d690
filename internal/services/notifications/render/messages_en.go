package render

import (
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, "notification.cdna_transfer.title", "New CDNA Use Request")
	message.SetString(lang, "notification.cdna_incentive.title", "New CDNA Incentive Request")
	message.SetString(lang, "notification.pass_incentive.title", "New Incentive Pass Request")
	message.SetString(lang, "notification.pass_transfer.title", "New Pass Transfer Request")
	message.SetString(lang, "notification.detail.name", "Name: %s")
	message.SetString(lang, "notification.detail.email", "Email: %s")
	message.SetString(lang, "notification.detail.amount", "Amount: %d")
	message.SetString(lang, "notification.detail.reason", "Reason: %s")
	message.SetString(lang, "notification.detail.created", "Created: %s")
	message.SetString(lang, "notification.weekly_digest.title", "Weekly FalconNet Transfer Pending")
	_ = message.Set(lang, "notification.weekly_digest.details", plural.Selectf(1, "%d",
		"=1", "There is %d pass transfer request(s) awaiting FalconNet transfer.",
		plural.Other, "There are %d pass transfer request(s) awaiting FalconNet transfer.",
	))
}
