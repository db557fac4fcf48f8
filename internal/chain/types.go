package chain

import "encoding/json"

// RPCRequest is a JSON-RPC 2.0 request.
type RPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

// RPCResponse is a JSON-RPC 2.0 response.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error object. Data carries the node's detail text
// (for example the revert reason of a failed contract call).
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Data != "" {
		return e.Message + ": " + e.Data
	}
	return e.Message
}

// ContractParam is a typed argument for a contract invocation.
type ContractParam struct {
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// StringParam builds a String contract parameter.
func StringParam(v string) ContractParam {
	return ContractParam{Type: "String", Value: v}
}

// IntegerParam builds an Integer contract parameter from a decimal string.
// Integers travel as strings on the wire; the node parses them at full
// precision.
func IntegerParam(decimal string) ContractParam {
	return ContractParam{Type: "Integer", Value: decimal}
}

// Hash160Param builds a Hash160 contract parameter (an account or contract).
func Hash160Param(v string) ContractParam {
	return ContractParam{Type: "Hash160", Value: v}
}

// Signer identifies the account authorising a submitted transaction.
type Signer struct {
	Account string `json:"account"`
	Scopes  string `json:"scopes"`
}

// InvokeResult is the node's response to an invocation. For submitted
// transactions Tx carries the transaction hash assigned by the node.
type InvokeResult struct {
	Script      string      `json:"script"`
	State       string      `json:"state"`
	GasConsumed string      `json:"gasconsumed"`
	Exception   string      `json:"exception,omitempty"`
	Stack       []StackItem `json:"stack"`
	Tx          string      `json:"tx,omitempty"`
}

// StackItem is a VM stack item. Value stays raw until a parser gives it a type.
type StackItem struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// ApplicationLog is the execution record of a confirmed transaction.
type ApplicationLog struct {
	TxID       string      `json:"txid"`
	Executions []Execution `json:"executions"`
}

// Execution is a single execution within an application log.
type Execution struct {
	Trigger       string         `json:"trigger"`
	VMState       string         `json:"vmstate"`
	GasConsumed   string         `json:"gasconsumed"`
	Exception     string         `json:"exception,omitempty"`
	Stack         []StackItem    `json:"stack"`
	Notifications []Notification `json:"notifications"`
}

// Notification is an event emitted by a contract during execution.
type Notification struct {
	Contract  string    `json:"contract"`
	EventName string    `json:"eventname"`
	State     StackItem `json:"state"`
}
