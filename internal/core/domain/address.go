package domain

// AddressInfo is the result of an address label lookup. Empty fields mean unknown.
type AddressInfo struct {
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
}

// AddressLabel is a stored label for an address.
type AddressLabel struct {
	Address string `json:"address" db:"address"`
	Type    string `json:"type"    db:"type"`
	Name    string `json:"name"    db:"name"`
}
