// Package replica reads the record zone written by the legacy sync layer.
package replica

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/movingbox/movingbox-migrator/internal/decode"
)

// Record types of the legacy zone
const (
	RecordTypeHome     = "CD_Home"
	RecordTypePolicy   = "CD_InsurancePolicy"
	RecordTypeLocation = "CD_InventoryLocation"
	RecordTypeItem     = "CD_InventoryItem"
	RecordTypeLabel    = "CD_InventoryLabel"
)

// RecordTypes lists every record type the recovery reads
var RecordTypes = []string{RecordTypeHome, RecordTypePolicy, RecordTypeLocation, RecordTypeItem, RecordTypeLabel}

// FieldType is the wire type of a record field
type FieldType string

const (
	FieldString        FieldType = "STRING"
	FieldInt64         FieldType = "INT64"
	FieldDouble        FieldType = "DOUBLE"
	FieldTimestamp     FieldType = "TIMESTAMP"
	FieldBytes         FieldType = "BYTES"
	FieldAsset         FieldType = "ASSET"
	FieldReference     FieldType = "REFERENCE"
	FieldReferenceList FieldType = "REFERENCE_LIST"
	FieldStringList    FieldType = "STRING_LIST"
)

// Field is one typed value of a record
type Field struct {
	Type  FieldType       `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Record is a remote record as serialized by the sync layer
type Record struct {
	RecordName string `json:"recordName"`
	RecordType string `json:"recordType"`
	// Created is the creation time in milliseconds since the Unix epoch
	Created int64            `json:"created"`
	Fields  map[string]Field `json:"fields"`
}

// Reference is the value of a REFERENCE field
type Reference struct {
	RecordName string `json:"recordName"`
}

// Asset is the value of an ASSET field
type Asset struct {
	Key  string `json:"key"`
	Size int64  `json:"size,omitempty"`
}

func (r Record) field(name string, types ...FieldType) (Field, bool) {
	f, ok := r.Fields[name]
	if !ok || len(f.Value) == 0 || string(f.Value) == "null" {
		return Field{}, false
	}
	for _, t := range types {
		if f.Type == t {
			return f, true
		}
	}
	return Field{}, false
}

// String returns a STRING field, "" when absent
func (r Record) String(name string) string {
	f, ok := r.field(name, FieldString)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(f.Value, &s); err != nil {
		return ""
	}
	return s
}

// OptionalString returns nil when the STRING field is absent or empty
func (r Record) OptionalString(name string) *string {
	s := r.String(name)
	if s == "" {
		return nil
	}
	return &s
}

// Int returns an INT64 field, 0 when absent
func (r Record) Int(name string) int64 {
	f, ok := r.field(name, FieldInt64, FieldDouble)
	if !ok {
		return 0
	}
	var n json.Number
	if err := json.Unmarshal(f.Value, &n); err != nil {
		return 0
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if fl, err := n.Float64(); err == nil {
		return int64(fl)
	}
	return 0
}

// Bool returns an INT64 field as a boolean
func (r Record) Bool(name string) bool {
	return r.Int(name) != 0
}

// Decimal returns an exact decimal from a STRING field, falling back to a DOUBLE field
func (r Record) Decimal(name string) decimal.Decimal {
	f, ok := r.field(name, FieldString, FieldDouble, FieldInt64)
	if !ok {
		return decimal.Zero
	}
	if f.Type == FieldString {
		var s string
		if err := json.Unmarshal(f.Value, &s); err == nil {
			return decode.Decimal(s, true, 0, false)
		}
		return decimal.Zero
	}
	// the raw JSON number text is exact, unlike its float64 value
	fl, err := strconv.ParseFloat(string(f.Value), 64)
	return decode.Decimal(string(f.Value), true, fl, err == nil)
}

// Timestamp returns a TIMESTAMP field (milliseconds since the Unix epoch), nil when absent
func (r Record) Timestamp(name string) *time.Time {
	f, ok := r.field(name, FieldTimestamp)
	if !ok {
		return nil
	}
	var ms int64
	if err := json.Unmarshal(f.Value, &ms); err != nil {
		return nil
	}
	t := decode.FromUnixMillis(ms)
	return &t
}

// Bytes returns an inline BYTES field (base64 on the wire), nil when absent
func (r Record) Bytes(name string) []byte {
	f, ok := r.field(name, FieldBytes)
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(f.Value, &s); err != nil {
		return nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}

// Asset returns the pointer of an ASSET field
func (r Record) Asset(name string) (Asset, bool) {
	f, ok := r.field(name, FieldAsset)
	if !ok {
		return Asset{}, false
	}
	var a Asset
	if err := json.Unmarshal(f.Value, &a); err != nil || a.Key == "" {
		return Asset{}, false
	}
	return a, true
}

// Reference returns the record name of a REFERENCE field
func (r Record) Reference(name string) (string, bool) {
	f, ok := r.field(name, FieldReference)
	if !ok {
		return "", false
	}
	var ref Reference
	if err := json.Unmarshal(f.Value, &ref); err != nil || ref.RecordName == "" {
		return "", false
	}
	return ref.RecordName, true
}

// References returns the record names of a REFERENCE_LIST field
func (r Record) References(name string) []string {
	f, ok := r.field(name, FieldReferenceList)
	if !ok {
		return nil
	}
	var refs []Reference
	if err := json.Unmarshal(f.Value, &refs); err != nil {
		return nil
	}
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.RecordName != "" {
			names = append(names, ref.RecordName)
		}
	}
	return names
}

// Strings returns a STRING_LIST field, nil when absent
func (r Record) Strings(name string) ([]string, bool) {
	f, ok := r.field(name, FieldStringList)
	if !ok {
		return nil, false
	}
	var out []string
	if err := json.Unmarshal(f.Value, &out); err != nil {
		return nil, false
	}
	return out, true
}

// NewField encodes value as a field of type t
func NewField(t FieldType, value interface{}) Field {
	if b, ok := value.([]byte); ok && t == FieldBytes {
		value = base64.StdEncoding.EncodeToString(b)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		raw = []byte("null")
	}
	return Field{Type: t, Value: raw}
}
