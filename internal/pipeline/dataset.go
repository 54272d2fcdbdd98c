package pipeline

import (
	"sarflow/internal/casefile/loader"
	"sarflow/internal/casefile/models"
)

// FromDataset builds one input per customer row, in file order, with the
// customer's accounts and the transactions on those accounts. limit <= 0
// keeps every customer.
func FromDataset(ds loader.Dataset, limit int) []CaseInput {
	customers := ds.Customers
	if limit > 0 && limit < len(customers) {
		customers = customers[:limit]
	}

	accountsByCustomer := make(map[string][]models.Row)
	for _, a := range ds.Accounts {
		id := a.String("customer_id")
		accountsByCustomer[id] = append(accountsByCustomer[id], a)
	}
	txnsByAccount := make(map[string][]models.Row)
	for _, t := range ds.Transactions {
		id := t.String("account_id")
		txnsByAccount[id] = append(txnsByAccount[id], t)
	}

	inputs := make([]CaseInput, 0, len(customers))
	for _, c := range customers {
		accounts := accountsByCustomer[c.String("customer_id")]
		var txns []models.Row
		for _, a := range accounts {
			txns = append(txns, txnsByAccount[a.String("account_id")]...)
		}
		inputs = append(inputs, CaseInput{Customer: c, Accounts: accounts, Transactions: txns})
	}
	return inputs
}
