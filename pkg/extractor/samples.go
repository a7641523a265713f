package extractor

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// SampleReferenceDay anchors every sample date so previews are reproducible.
var SampleReferenceDay = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

// singularEndingInS are names that end in "s" but hold one value.
var singularEndingInS = map[string]bool{
	"paymentterms": true, "terms": true, "address": true, "business": true,
	"notes": true, "status": true, "process": true, "access": true,
	"success": true, "class": true, "pass": true, "sales": true,
	"news": true, "series": true, "species": true, "means": true,
	"headquarters": true,
}

var knownLists = map[string]bool{
	"items": true, "templates": true, "users": true, "products": true,
	"files": true, "documents": true, "records": true, "entries": true,
	"values": true, "results": true, "orders": true, "invoices": true,
}

var exactSamples = map[string]string{
	"salesperson":   "Jane Miller",
	"projectname":   "Website Relaunch",
	"paymentterms":  "Net 30, bank transfer",
	"paymentinfo":   "Acme Bank 123-456-789012 Boxwood Technology Ltd.",
	"notes":         "This invoice includes tax. Please pay by the due date.",
	"title":         "Template List",
	"subtitle":      "Available templates",
	"currentuser":   "Administrator",
	"documenttype":  "Invoice",
	"invoicenumber": "INV-20240115-001",
}

// SampleValue returns realistic preview data for a top-level variable.
// The result is deterministic: dates derive from SampleReferenceDay.
//
// Records come back as *Tree and collections as []any.
func SampleValue(name string) any {
	n := strings.ToLower(name)

	switch n {
	case "templates":
		return templateList()
	case "company":
		return companyInfo()
	case "client":
		return clientInfo()
	case "items":
		return itemList()
	}

	if singularEndingInS[n] {
		return singularSample(name)
	}
	if knownLists[n] {
		return listSample(n)
	}

	switch {
	case containsAny(n, "date", "time"):
		if strings.Contains(n, "due") {
			return SampleReferenceDay.AddDate(0, 0, 30)
		}
		return SampleReferenceDay
	case containsAny(n, "amount", "total"):
		return 9000000
	case containsAny(n, "rate", "tax"):
		return 10.0
	case containsAny(n, "quantity", "count"):
		return 1
	}

	if strings.Contains(n, "number") {
		switch {
		case strings.Contains(n, "invoice"):
			return "INV-" + SampleReferenceDay.Format("20060102") + "-001"
		case strings.Contains(n, "po"):
			return "PO-2024-001"
		case strings.Contains(n, "reference"):
			return "REF-2024-001"
		}
	}

	if strings.Contains(n, "type") {
		switch {
		case strings.Contains(n, "document"):
			return "Invoice"
		case strings.Contains(n, "payment"):
			return "Cash"
		case strings.Contains(n, "discount"):
			return "Amount"
		}
	}

	if strings.HasPrefix(n, "is") || strings.HasPrefix(n, "has") || strings.HasPrefix(n, "can") ||
		containsAny(n, "enable", "active", "valid") {
		return true
	}

	if s, ok := exactSamples[n]; ok {
		return s
	}

	if isPlural(n) {
		return listSample(n)
	}
	return "Sample " + capitalize(name)
}

// SampleTree returns a copy of tree in which every leaf, at any depth, is
// replaced by SampleValue of its own name. Mappings keep their shape.
func SampleTree(tree *Tree) *Tree {
	out := NewTree()
	if tree == nil {
		return out
	}
	for _, k := range tree.keys {
		if sub, ok := tree.values[k].(*Tree); ok {
			out.Set(k, SampleTree(sub))
			continue
		}
		out.Set(k, SampleValue(k))
	}
	return out
}

// FallbackSamples is the preview data used when a template cannot be
// analyzed.
func FallbackSamples() *Tree {
	t := NewTree()
	t.Set("company", companyInfo())
	t.Set("client", clientInfo())
	t.Set("items", itemList())
	t.Set("documentType", "Invoice")
	t.Set("invoiceNumber", "INV-"+SampleReferenceDay.Format("20060102")+"-001")
	t.Set("issueDate", SampleReferenceDay)
	t.Set("dueDate", SampleReferenceDay.AddDate(0, 0, 30))
	return t
}

func isPlural(n string) bool {
	if singularEndingInS[n] {
		return false
	}
	if containsAny(n, "list", "data", "records", "entries") {
		return true
	}
	if strings.HasSuffix(n, "s") && !strings.HasSuffix(n, "ss") {
		for _, suffix := range []string{"ies", "ves", "oes"} {
			if strings.HasSuffix(n, suffix) {
				return true
			}
		}
		return len(n) > 5
	}
	return false
}

func singularSample(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "payment"):
		return "Net 30, bank transfer"
	case strings.Contains(n, "note"):
		return "Additional information."
	case strings.Contains(n, "term"):
		return "Standard terms and conditions"
	case strings.Contains(n, "address"):
		return "123 Main Street, Springfield"
	case strings.Contains(n, "business"):
		return "Software development"
	default:
		return "Sample " + capitalize(name)
	}
}

func listSample(n string) []any {
	switch {
	case strings.Contains(n, "template"):
		return templateList()
	case strings.Contains(n, "user"):
		return userList()
	case strings.Contains(n, "item"):
		return itemList()
	case strings.Contains(n, "product"):
		return productList()
	default:
		return []any{"Item 1", "Item 2", "Item 3"}
	}
}

func record(kv ...any) *Tree {
	t := NewTree()
	for i := 0; i+1 < len(kv); i += 2 {
		t.Set(kv[i].(string), kv[i+1])
	}
	return t
}

func companyInfo() *Tree {
	return record(
		"name", "BOXWOOD Technology",
		"address", "123 Main Street, Springfield",
		"phone", "555-0100",
		"email", "info@boxwood.example",
		"website", "https://www.boxwood.example",
		"businessNumber", "123-45-67890",
	)
}

func clientInfo() *Tree {
	return record(
		"name", "Sample Client Co.",
		"contactPerson", "John Smith",
		"address", "456 Oak Avenue, Riverside",
		"phone", "555-0199",
		"email", "contact@client.example",
		"businessNumber", "098-76-54321",
	)
}

func itemList() []any {
	return []any{
		record("name", "Website development", "description", "Responsive website build and maintenance", "quantity", 1, "rate", 5000000),
		record("name", "System consulting", "description", "Process analysis and system design", "quantity", 2, "rate", 2000000),
	}
}

func templateList() []any {
	return []any{
		record("name", "invoice.ftl", "description", "Invoice template", "type", "document"),
		record("name", "receipt.ftl", "description", "Receipt template", "type", "document"),
	}
}

func userList() []any {
	return []any{record("id", 1, "name", "John Smith", "email", "john@example.com")}
}

func productList() []any {
	return []any{record("id", 1, "name", "Website development", "price", 5000000)}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
