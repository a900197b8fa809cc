package aggregator

import (
	"encoding/json"
	"strings"
)

// User is a remote aggregator user that bank connections hang off.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Mobile string `json:"mobile"`
}

type AccountClass struct {
	Type    string `json:"type"`
	Product string `json:"product"`
}

// Account is a bank account as reported by the aggregator. Only the fields
// needed for mapping and display are modeled.
type Account struct {
	ID             string       `json:"id"`
	AccountNo      string       `json:"accountNo"`
	Name           string       `json:"name"`
	Currency       string       `json:"currency"`
	Balance        string       `json:"balance"`
	AvailableFunds string       `json:"availableFunds"`
	Class          AccountClass `json:"class"`
	Institution    string       `json:"institution"`
}

type TransactionClass struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Title string `json:"title"`
}

// Transaction is a raw aggregator transaction record.
type Transaction struct {
	ID              string           `json:"id"`
	Direction       string           `json:"direction"` // "debit" or "credit"
	Amount          string           `json:"amount"`
	Description     string           `json:"description"`
	Currency        string           `json:"currency"`
	TransactionDate string           `json:"transactionDate"`
	PostDate        string           `json:"postDate"`
	Account         AccountRef       `json:"account"`
	Class           TransactionClass `json:"class"`
}

// AccountRef is the transaction's reference to its account. The feed is not
// consistent about the shape: it can be a bare id, a URL whose trailing
// segment is the id, or an object with an "id" field. Anything else
// normalizes to an empty id, which downstream treats as unmapped.
type AccountRef struct {
	ID string
}

func (r *AccountRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		r.ID = normalizeAccountRef(s)
		return nil
	}

	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err == nil {
		r.ID = obj.ID
		return nil
	}

	r.ID = ""
	return nil
}

func (r AccountRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ID)
}

// normalizeAccountRef strips URL-style references down to the trailing path
// segment; a bare id passes through unchanged.
func normalizeAccountRef(s string) string {
	if strings.Contains(s, "/") {
		parts := strings.Split(s, "/")
		return parts[len(parts)-1]
	}
	return s
}
