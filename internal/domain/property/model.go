// Package property defines the ledger-owned property record as the gateway
// relays it. The ledger assigns ids and enforces ownership rules; the gateway
// only observes.
package property

// Property is a registered property record read from the ledger. ID is the
// ledger-assigned identifier rendered as a decimal string: ledger integers are
// arbitrary precision and must not cross the JSON boundary in native form.
type Property struct {
	ID              string `json:"id"`
	Owner           string `json:"owner"`
	PropertyAddress string `json:"propertyAddress"`
	OwnerName       string `json:"ownerName"`
}

// Receipt summarises a confirmed mutating ledger call. All numeric fields are
// decimal strings for the same reason as Property.ID.
type Receipt struct {
	TxHash      string `json:"txHash"`
	VMState     string `json:"vmState"`
	GasConsumed string `json:"gasConsumed"`
	PropertyID  string `json:"propertyId,omitempty"`
}
