// Package testutil provides lease fixtures and collaborator fakes shared by
// the backend's tests.
package testutil

import (
	"encoding/json"
	"strconv"
	"strings"
)

// MinimalInput returns a valid lease input with only required fields set:
// a single tenant object, no pets and no late fee.
func MinimalInput() map[string]any {
	return map[string]any{
		"jurisdiction": map[string]any{"country": "US"},
		"leaseTerm": map[string]any{
			"startDate": "2026-01-01",
			"renewal":   "none",
		},
		"financials": map[string]any{
			"monthlyRent":     1500,
			"securityDeposit": 1500,
			"proration":       "none",
		},
		"pets": map[string]any{"allowed": false},
		"rules": map[string]any{
			"smoking":           "prohibited",
			"subletting":        "prohibited",
			"alterations":       "with_consent",
			"insuranceRequired": false,
		},
		"noticeDelivery":  "email",
		"signatureMethod": "electronic",
		"property":        map[string]any{"address": "1 Main St, Springfield"},
		"landlord": map[string]any{
			"name":    "Acme Property LLC",
			"address": "100 Market St, Springfield",
		},
		"tenants": map[string]any{"name": "Ada Lovelace"},
	}
}

// CompleteOutput returns a structurally complete lease output matching
// MinimalInput.
func CompleteOutput() map[string]any {
	out := MinimalInput()
	out["tenants"] = []any{map[string]any{"name": "Ada Lovelace"}}
	out["clauses"] = []any{
		map[string]any{"heading": "Rent", "body": "Tenant shall pay rent of $1,500.00 on the first day of each month."},
		map[string]any{"heading": "Security Deposit", "body": "Tenant shall deposit $1,500.00 before move-in."},
	}
	out["disclaimers"] = []any{"This document is not legal advice."}
	return out
}

// JSON encodes v and panics on failure.
func JSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// Without returns a deep copy of doc with the dotted path removed,
// e.g. Without(out, "financials.monthlyRent").
func Without(doc map[string]any, path string) map[string]any {
	cp := Clone(doc)
	segments := strings.Split(path, ".")
	var cur any = cp
	for i, seg := range segments {
		last := i == len(segments)-1
		switch node := cur.(type) {
		case map[string]any:
			if last {
				delete(node, seg)
				return cp
			}
			cur = node[seg]
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx >= len(node) {
				return cp
			}
			cur = node[idx]
		default:
			return cp
		}
	}
	return cp
}

// With returns a deep copy of doc with the dotted path set to value.
// Intermediate objects must already exist.
func With(doc map[string]any, path string, value any) map[string]any {
	cp := Clone(doc)
	segments := strings.Split(path, ".")
	node := cp
	for _, seg := range segments[:len(segments)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			return cp
		}
		node = next
	}
	node[segments[len(segments)-1]] = value
	return cp
}

// Clone deep-copies a JSON document.
func Clone(doc map[string]any) map[string]any {
	var cp map[string]any
	if err := json.Unmarshal(JSON(doc), &cp); err != nil {
		panic(err)
	}
	return cp
}
