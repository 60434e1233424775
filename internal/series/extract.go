package series

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/schema"
	"golang.org/x/net/html"
)

// StateBlockID is the id of the script element carrying the application state.
const StateBlockID = "__TRAMVAI_STATE__"

// Path into the decoded application state.
const (
	storesKey  = "stores"
	historyKey = "investIndexHistory"
	indexKey   = "index"
)

// Accepted layouts for record timestamps, tried in order. Layouts without a zone are read as UTC.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// rawRecord is an un-normalized point as found in the payload.
type rawRecord struct {
	DateTime *string  `json:"dateTime"`
	Value    *float64 `json:"value"`
}

// historyPeriod is one period sub-object of an index history.
type historyPeriod struct {
	Index *[]rawRecord `json:"index"`
}

// apiResponse is the body returned by the producer history API.
type apiResponse struct {
	Payload *historyPeriod `json:"payload"`
}

// LocateStateBlock returns the text of the embedded application state script.
func LocateStateBlock(markup []byte) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(markup))
	if err != nil {
		return nil, contract.NewExtractionError("state block not found", err)
	}
	node := findByID(doc, "script", StateBlockID)
	if node == nil {
		return nil, contract.NewExtractionError("state block not found", nil)
	}

	var sb strings.Builder
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, contract.NewExtractionError("state block is empty", nil)
	}
	return []byte(text), nil
}

// findByID walks the tree depth-first for the first element with the tag and id.
func findByID(n *html.Node, tag, id string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		for _, attr := range n.Attr {
			if attr.Key == "id" && attr.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, tag, id); found != nil {
			return found
		}
	}
	return nil
}

// Extract decodes the series for key from page markup.
//
// The requested period is used when its index array is present and non-empty.
// Otherwise the year period is used, including when all was requested: the
// producer serves identical data sets for both, and all is frequently missing.
func Extract(markup []byte, key schema.SeriesKey) ([]schema.Point, error) {
	block, err := LocateStateBlock(markup)
	if err != nil {
		return nil, err
	}

	var state map[string]json.RawMessage
	if err := json.Unmarshal(block, &state); err != nil {
		return nil, contract.NewExtractionError("malformed payload", err)
	}

	history, err := navigate(state, storesKey, historyKey, key.Unit())
	if err != nil {
		return nil, err
	}

	records, err := selectRecords(history, key.Period)
	if err != nil {
		return nil, err
	}
	return toPoints(records)
}

// ExtractAPI decodes a producer history API body of the form {"payload":{"index":[...]}}.
func ExtractAPI(body []byte) ([]schema.Point, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, contract.NewExtractionError("malformed payload", err)
	}
	if resp.Payload == nil || resp.Payload.Index == nil {
		return nil, contract.NewExtractionError("index data not found", nil)
	}
	return toPoints(*resp.Payload.Index)
}

// navigate descends through nested objects and returns the object found at the end of path.
func navigate(obj map[string]json.RawMessage, path ...string) (map[string]json.RawMessage, error) {
	current := obj
	for i, step := range path {
		raw, ok := current[step]
		if !ok || isNull(raw) {
			return nil, contract.NewExtractionError("index data not found", fmt.Errorf("missing key %q", strings.Join(path[:i+1], ".")))
		}
		var next map[string]json.RawMessage
		if err := json.Unmarshal(raw, &next); err != nil {
			return nil, contract.NewExtractionError("index data not found", fmt.Errorf("key %q is not an object: %w", strings.Join(path[:i+1], "."), err))
		}
		current = next
	}
	return current, nil
}

// selectRecords applies the period fallback policy. A requested period that is
// falsy or not shaped like {"index":[...]} counts as absent; only the year
// fallback is held to its shape.
func selectRecords(history map[string]json.RawMessage, period schema.Period) ([]rawRecord, error) {
	records, ok, err := periodRecords(history, period, period == schema.PeriodYear)
	if err != nil {
		return nil, err
	}
	if ok && len(records) > 0 {
		return records, nil
	}

	records, ok, err = periodRecords(history, schema.PeriodYear, true)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, contract.NewExtractionError("index data not found", fmt.Errorf("no %q data and no %q fallback", period, schema.PeriodYear))
	}
	return records, nil
}

// periodRecords returns the index array of one period and whether it was present.
// When strict is false a wrong shape reads as absent. Malformed records inside a
// well-shaped array always fail.
func periodRecords(history map[string]json.RawMessage, period schema.Period, strict bool) ([]rawRecord, bool, error) {
	raw, ok := history[string(period)]
	if !ok || isFalsy(raw) {
		return nil, false, nil
	}
	shapeErr := func(err error) ([]rawRecord, bool, error) {
		if !strict {
			return nil, false, nil
		}
		return nil, false, contract.NewExtractionError("malformed record", fmt.Errorf("period %q: %w", period, err))
	}

	var hp map[string]json.RawMessage
	if err := json.Unmarshal(raw, &hp); err != nil {
		return shapeErr(err)
	}
	index, ok := hp[indexKey]
	if !ok || isNull(index) {
		return nil, false, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(index, &items); err != nil {
		return shapeErr(err)
	}

	records := make([]rawRecord, len(items))
	for i, item := range items {
		if err := json.Unmarshal(item, &records[i]); err != nil {
			return nil, false, contract.NewExtractionError("malformed record", fmt.Errorf("period %q record %d: %w", period, i, err))
		}
	}
	return records, true, nil
}

// toPoints converts raw records, failing on the first malformed one.
func toPoints(records []rawRecord) ([]schema.Point, error) {
	points := make([]schema.Point, 0, len(records))
	for i, rec := range records {
		if rec.DateTime == nil {
			return nil, contract.NewExtractionError("malformed record", fmt.Errorf("record %d: missing dateTime", i))
		}
		if rec.Value == nil {
			return nil, contract.NewExtractionError("malformed record", fmt.Errorf("record %d: missing value", i))
		}
		ts, err := ParseDateTime(*rec.DateTime)
		if err != nil {
			return nil, contract.NewExtractionError("malformed record", fmt.Errorf("record %d: %w", i, err))
		}
		points = append(points, schema.Point{Timestamp: ts, Value: *rec.Value})
	}
	return points, nil
}

// ParseDateTime parses an ISO 8601 date-time, keeping the offset it carries.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized dateTime %q", s)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// isFalsy reports null, false, zero, "", [] and {}.
func isFalsy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case float64:
		return x == 0
	case string:
		return x == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}
