package chain

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
)

// ParseArray extracts the elements of an Array or Struct stack item.
func ParseArray(item StackItem) ([]StackItem, error) {
	if item.Type != "Array" && item.Type != "Struct" {
		return nil, fmt.Errorf("expected Array or Struct, got %s", item.Type)
	}

	var items []StackItem
	if err := json.Unmarshal(item.Value, &items); err != nil {
		return nil, fmt.Errorf("unmarshal array: %w", err)
	}
	return items, nil
}

// ParseInteger parses an Integer stack item at full precision. Ledger integers
// are arbitrary precision; they are never narrowed to a machine word here.
func ParseInteger(item StackItem) (*big.Int, error) {
	if item.Type != "Integer" {
		return nil, fmt.Errorf("unexpected type: %s", item.Type)
	}
	var value string
	if err := json.Unmarshal(item.Value, &value); err != nil {
		return nil, err
	}
	n, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer value %q", value)
	}
	return n, nil
}

// ParseString parses a ByteString or Buffer stack item as text. Values arrive
// base64-encoded; hex is accepted as a fallback for older nodes.
func ParseString(item StackItem) (string, error) {
	if item.Type == "Null" {
		return "", nil
	}
	if item.Type != "ByteString" && item.Type != "Buffer" {
		return "", fmt.Errorf("unexpected type for string: %s", item.Type)
	}
	var value string
	if err := json.Unmarshal(item.Value, &value); err != nil {
		return "", err
	}
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		return string(decoded), nil
	}
	decoded, err := hex.DecodeString(value)
	if err != nil {
		return "", fmt.Errorf("decode string value: %w", err)
	}
	return string(decoded), nil
}

// ParseHash160 parses a ByteString stack item as a script hash and renders it
// big-endian with the customary 0x prefix.
func ParseHash160(item StackItem) (string, error) {
	if item.Type != "ByteString" && item.Type != "Buffer" {
		return "", fmt.Errorf("unexpected type: %s", item.Type)
	}
	var value string
	if err := json.Unmarshal(item.Value, &value); err != nil {
		return "", err
	}
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		if raw, err = hex.DecodeString(value); err != nil {
			return "", fmt.Errorf("decode hash value: %w", err)
		}
	}
	// Reverse for big-endian display
	reversed := make([]byte, len(raw))
	for i, b := range raw {
		reversed[len(raw)-1-i] = b
	}
	return "0x" + hex.EncodeToString(reversed), nil
}

// ParseBoolean parses a Boolean stack item.
func ParseBoolean(item StackItem) (bool, error) {
	if item.Type != "Boolean" {
		return false, fmt.Errorf("unexpected type: %s", item.Type)
	}
	var value bool
	if err := json.Unmarshal(item.Value, &value); err != nil {
		return false, err
	}
	return value, nil
}
