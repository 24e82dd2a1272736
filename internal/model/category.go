package model

// Category is a lookup entry for transaction categories.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind Kind   `json:"type"`
}
