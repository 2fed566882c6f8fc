package decode

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"howett.net/plist"
)

// Attachment is one entry of an item's attachment list
type Attachment struct {
	URL          string    `json:"url" plist:"url"`
	OriginalName string    `json:"original_name" plist:"originalName"`
	CreatedAt    time.Time `json:"created_at" plist:"createdAt"`
}

// legacyAttachment accepts the camelCase JSON written by the legacy app, whose
// dates are either reference-epoch seconds or RFC 3339 strings.
type legacyAttachment struct {
	URL          string          `json:"url"`
	OriginalName string          `json:"originalName"`
	CreatedAt    json.RawMessage `json:"createdAt"`
}

func (a *Attachment) UnmarshalJSON(data []byte) error {
	var raw legacyAttachment
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	// the target encoding uses snake_case; accept it as well
	if raw.URL == "" && raw.OriginalName == "" {
		var snake struct {
			URL          string          `json:"url"`
			OriginalName string          `json:"original_name"`
			CreatedAt    json.RawMessage `json:"created_at"`
		}
		if err := json.Unmarshal(data, &snake); err != nil {
			return err
		}
		raw.URL, raw.OriginalName, raw.CreatedAt = snake.URL, snake.OriginalName, snake.CreatedAt
	}

	createdAt, err := parseJSONDate(raw.CreatedAt)
	if err != nil {
		return err
	}
	a.URL = raw.URL
	a.OriginalName = raw.OriginalName
	a.CreatedAt = createdAt
	return nil
}

func parseJSONDate(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		return t.UTC(), nil
	}
	seconds, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %s: %w", raw, err)
	}
	return FromReferenceSeconds(seconds), nil
}

// typedPlist decodes a property list directly into T
func typedPlist[T any](data []byte) (T, error) {
	var out T
	if _, err := plist.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}

// genericPlist decodes a property list into an untyped array and re-encodes it
// through JSON into T. Dates survive only as whatever JSON makes of them.
func genericPlist[T any](data []byte) (T, error) {
	var out T
	var generic interface{}
	if _, err := plist.Unmarshal(data, &generic); err != nil {
		return out, err
	}
	arr, ok := generic.([]interface{})
	if !ok {
		return out, fmt.Errorf("property list root is %T, not an array", generic)
	}
	encoded, err := json.Marshal(arr)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(encoded, &out); err != nil {
		return out, err
	}
	return out, nil
}

func jsonText[T any](data []byte) (T, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}

func arrayChain[T any](field string) Chain[[]T] {
	return Chain[[]T]{
		Field: field,
		Steps: []Step[[]T]{
			{Name: "typed_plist", Decode: typedPlist[[]T]},
			{Name: "generic_plist", Decode: genericPlist[[]T]},
			{Name: "json_text", Decode: jsonText[[]T]},
		},
		Fallback: func() []T { return []T{} },
	}
}

// StringArray decodes a list of strings such as secondary photo references
func StringArray(ctx context.Context, field string, data []byte) Outcome[[]string] {
	out := arrayChain[string](field).Decode(ctx, data)
	if out.Value == nil {
		out.Value = []string{}
	}
	return out
}

// Attachments decodes an item's attachment list. The typed step is required
// because generic decoding cannot represent the date field faithfully.
func Attachments(ctx context.Context, field string, data []byte) Outcome[[]Attachment] {
	out := arrayChain[Attachment](field).Decode(ctx, data)
	if out.Value == nil {
		out.Value = []Attachment{}
	}
	for i := range out.Value {
		out.Value[i].CreatedAt = out.Value[i].CreatedAt.UTC()
	}
	return out
}
