package utils

import (
	"testing"
	"time"

	"github.com/Dan9191/fintrack/internal/models"
	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

func TestBuildStatement(t *testing.T) {
	user := &models.User{ID: "u1", Name: "Ann & Co"}
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		{ID: "t1", Date: day, Title: "salary", Category: "work", TransactionType: models.Income, Amount: decimal.NewFromInt(1000)},
		{ID: "t2", Date: day, Title: "<rent>", Category: "home", TransactionType: models.Expense, Amount: decimal.RequireFromString("250.5")},
	}

	raw, err := BuildStatement(user, txs, day)
	if err != nil {
		t.Fatalf("BuildStatement: %v", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		t.Fatalf("statement is not well-formed XML: %v\n%s", err, raw)
	}
	root := doc.SelectElement("statement")
	if root == nil || root.SelectAttrValue("name", "") != "Ann & Co" {
		t.Fatalf("unexpected root: %s", raw)
	}

	items := doc.FindElements("//statement/transactions/transaction")
	if len(items) != 2 {
		t.Fatalf("got %d transactions", len(items))
	}
	if items[1].SelectAttrValue("type", "") != "expense" || items[1].FindElement("title").Text() != "<rent>" {
		t.Errorf("second transaction not preserved: %s", raw)
	}
	if got := items[0].FindElement("date").Text(); got != "2025-01-02" {
		t.Errorf("date = %s", got)
	}

	if net := doc.FindElement("//statement/totals/net"); net == nil || net.Text() != "749.5" {
		t.Errorf("net total wrong in %s", raw)
	}
	if c := doc.FindElement("//statement/totals"); c.SelectAttrValue("count", "") != "2" {
		t.Errorf("count attr wrong in %s", raw)
	}
}
