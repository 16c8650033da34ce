package linkextract

import (
	"net/url"
	"strings"
)

// QueryParam is a single decoded key/value pair.
type QueryParam struct {
	Key   string
	Value string
}

// QueryParams is a query string that keeps the order parameters were written in.
// url.Values would sort keys on Encode and lose the original layout of the link.
type QueryParams []QueryParam

// ParseQuery decodes raw (without the leading '?'). Pairs that fail to unescape and pairs
// with an empty value are dropped.
func ParseQuery(raw string) QueryParams {
	var params QueryParams

	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}

		key, value, _ := strings.Cut(part, "=")

		k, err := url.QueryUnescape(key)
		if err != nil || k == "" {
			continue
		}

		v, err := url.QueryUnescape(value)
		if err != nil || v == "" {
			continue
		}

		params = append(params, QueryParam{Key: k, Value: v})
	}

	return params
}

// Get returns the first value for key.
func (q QueryParams) Get(key string) (string, bool) {
	for _, p := range q {
		if p.Key == key {
			return p.Value, true
		}
	}

	return "", false
}

// Set overwrites the first occurrence of key in place and drops any later duplicates,
// or appends the pair when key is absent.
func (q QueryParams) Set(key, value string) QueryParams {
	out := make(QueryParams, 0, len(q)+1)
	found := false

	for _, p := range q {
		if p.Key != key {
			out = append(out, p)
			continue
		}

		if found {
			continue
		}

		found = true

		out = append(out, QueryParam{Key: key, Value: value})
	}

	if !found {
		out = append(out, QueryParam{Key: key, Value: value})
	}

	return out
}

// Values returns every value in order.
func (q QueryParams) Values() []string {
	values := make([]string, 0, len(q))
	for _, p := range q {
		values = append(values, p.Value)
	}

	return values
}

// Encode renders the parameters as a query string in their current order.
func (q QueryParams) Encode() string {
	var sb strings.Builder

	for i, p := range q {
		if i > 0 {
			sb.WriteByte('&')
		}

		sb.WriteString(url.QueryEscape(p.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.Value))
	}

	return sb.String()
}
