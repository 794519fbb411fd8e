package calendar

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ItemSpec is one calendar entry as returned by the generator.
type ItemSpec struct {
	PostDate                           string `json:"postDate"`
	PostTime                           string `json:"postTime"`
	PlatformSuggestion                 string `json:"platformSuggestion"`
	ContentTypeSuggestion              string `json:"contentTypeSuggestion"`
	ContentTheme                       string `json:"contentTheme"`
	DetailedPromptForContentGeneration string `json:"detailedPromptForContentGeneration"`
	CallToAction                       string `json:"callToAction"`
}

var itemFields = []string{
	"postDate",
	"postTime",
	"platformSuggestion",
	"contentTypeSuggestion",
	"contentTheme",
	"detailedPromptForContentGeneration",
	"callToAction",
}

// ParsedItem is a validated ItemSpec plus the element exactly as generated.
type ParsedItem struct {
	Spec        ItemSpec
	Raw         json.RawMessage
	ExtraFields []string
}

const (
	msgUnparseable = "Failed to parse content calendar from AI. Output was not valid JSON."
	msgNotArray    = "Failed to parse content calendar from AI. Output was not a JSON array."
	msgEmpty       = "AI returned an empty content calendar."
	msgSchema      = "AI output did not match the calendar item schema."
)

var postTimeLayouts = []string{"3:04 PM", "03:04 PM", "3:04PM", "03:04PM"}

// ParseItems strictly parses generator output as a JSON array of calendar items.
// Every returned error is an upstream *Error carrying raw.
func ParseItems(raw string) ([]ParsedItem, error) {
	var probe any
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, upstreamError(msgUnparseable, raw, err)
	}
	if _, ok := probe.([]any); !ok {
		return nil, upstreamError(msgNotArray, raw, fmt.Errorf("output is a JSON %s", jsonKind(probe)))
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return nil, upstreamError(msgNotArray, raw, err)
	}
	if len(elems) == 0 {
		return nil, upstreamError(msgEmpty, raw, nil)
	}

	out := make([]ParsedItem, 0, len(elems))
	for i, elem := range elems {
		item, err := parseItem(elem)
		if err != nil {
			return nil, upstreamError(msgSchema, raw, fmt.Errorf("item %d: %w", i, err))
		}
		out = append(out, item)
	}
	return out, nil
}

func parseItem(elem json.RawMessage) (ParsedItem, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(elem, &fields); err != nil || fields == nil {
		return ParsedItem{}, fmt.Errorf("not a JSON object")
	}

	values := make(map[string]string, len(itemFields))
	for _, name := range itemFields {
		v, ok := fields[name]
		if !ok {
			return ParsedItem{}, fmt.Errorf("missing %q", name)
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return ParsedItem{}, fmt.Errorf("%q is not a string", name)
		}
		if strings.TrimSpace(s) == "" {
			return ParsedItem{}, fmt.Errorf("%q is blank", name)
		}
		values[name] = strings.TrimSpace(s)
	}

	var extra []string
	for name := range fields {
		if !isItemField(name) {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)

	spec := ItemSpec{
		PostDate:                           values["postDate"],
		PostTime:                           values["postTime"],
		PlatformSuggestion:                 values["platformSuggestion"],
		ContentTypeSuggestion:              values["contentTypeSuggestion"],
		ContentTheme:                       values["contentTheme"],
		DetailedPromptForContentGeneration: values["detailedPromptForContentGeneration"],
		CallToAction:                       values["callToAction"],
	}
	if _, err := time.Parse("2006-01-02", spec.PostDate); err != nil {
		return ParsedItem{}, fmt.Errorf("postDate %q is not YYYY-MM-DD", spec.PostDate)
	}
	if !validPostTime(spec.PostTime) {
		return ParsedItem{}, fmt.Errorf("postTime %q is not a 12-hour clock time", spec.PostTime)
	}

	return ParsedItem{
		Spec:        spec,
		Raw:         append(json.RawMessage(nil), elem...),
		ExtraFields: extra,
	}, nil
}

func validPostTime(s string) bool {
	norm := strings.ToUpper(strings.Join(strings.Fields(s), " "))
	for _, layout := range postTimeLayouts {
		if _, err := time.Parse(layout, norm); err == nil {
			return true
		}
	}
	return false
}

func isItemField(name string) bool {
	for _, f := range itemFields {
		if f == name {
			return true
		}
	}
	return false
}

func jsonKind(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
