package types

// AttrOfferID is the attribute naming the offer an event concerns.
const AttrOfferID = "offerId"

// Event is the audit record an engine operation returns next to its
// transfers. Attribute values are display strings.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Attr returns the attribute stored under key. A nil event yields "".
func (e *Event) Attr(key string) string {
	if e == nil {
		return ""
	}
	return e.Attributes[key]
}

// With returns a copy of e whose attributes are overlaid with extra.
func (e *Event) With(extra map[string]string) *Event {
	if e == nil {
		return nil
	}
	attrs := make(map[string]string, len(e.Attributes)+len(extra))
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	for k, v := range extra {
		attrs[k] = v
	}
	return &Event{Type: e.Type, Attributes: attrs}
}
