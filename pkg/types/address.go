package types

import "strings"

// Address is the shipping destination collected by the hosted checkout.
// Stored inline on the order row with a shipping_ column prefix.
type Address struct {
	Name       string  `json:"name" gorm:"column:name"`
	Line1      string  `json:"line1" gorm:"column:line1"`
	Line2      *string `json:"line2,omitempty" gorm:"column:line2"`
	City       string  `json:"city" gorm:"column:city"`
	State      string  `json:"state,omitempty" gorm:"column:state"`
	PostalCode string  `json:"postal_code" gorm:"column:postal_code"`
	Country    string  `json:"country" gorm:"column:country"`
}

// IsZero reports whether no address was collected.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Line1) == "" && strings.TrimSpace(a.City) == "" && strings.TrimSpace(a.Country) == ""
}
