package utils

import (
	"strconv"
	"time"

	"github.com/Dan9191/fintrack/internal/models"
	"github.com/beevik/etree"
)

// BuildStatement renders a user's transactions and their totals as an XML document
func BuildStatement(user *models.User, transactions []models.Transaction, generatedAt time.Time) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("statement")
	root.CreateAttr("user", user.ID)
	root.CreateAttr("name", user.Name)
	root.CreateAttr("generated", generatedAt.UTC().Format(time.RFC3339))

	list := root.CreateElement("transactions")
	for _, t := range transactions {
		el := list.CreateElement("transaction")
		el.CreateAttr("id", t.ID)
		el.CreateAttr("type", string(t.TransactionType))
		el.CreateElement("date").SetText(t.Date.Format(models.DateLayout))
		el.CreateElement("title").SetText(t.Title)
		el.CreateElement("category").SetText(t.Category)
		el.CreateElement("amount").SetText(t.Amount.String())
	}

	summary := models.Summarize(transactions)
	totals := root.CreateElement("totals")
	totals.CreateAttr("count", strconv.Itoa(summary.Count))
	totals.CreateElement("income").SetText(summary.Income.String())
	totals.CreateElement("expense").SetText(summary.Expense.String())
	totals.CreateElement("net").SetText(summary.NetBalance.String())

	doc.Indent(2)
	return doc.WriteToBytes()
}
