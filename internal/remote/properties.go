package remote

// PropertyValue is one emitted record field.
type PropertyValue struct {
	Kind   FieldKind
	Text   string
	Number float64
}

// Properties collects record fields for a create or update. Optional setters
// simply do not emit a key when the value is absent, so a payload can never
// contain an explicit null.
type Properties struct {
	fields map[string]PropertyValue
	order  []string
}

func NewProperties() *Properties {
	return &Properties{fields: make(map[string]PropertyValue)}
}

func (p *Properties) set(name string, v PropertyValue) *Properties {
	if _, exists := p.fields[name]; !exists {
		p.order = append(p.order, name)
	}
	p.fields[name] = v
	return p
}

// Title sets the record's title field. Always emitted.
func (p *Properties) Title(name, value string) *Properties {
	return p.set(name, PropertyValue{Kind: FieldTitle, Text: value})
}

// Select emits an enum field, skipped when value is empty.
func (p *Properties) Select(name, value string) *Properties {
	if value == "" {
		return p
	}
	return p.set(name, PropertyValue{Kind: FieldSelect, Text: value})
}

// Number emits a numeric field.
func (p *Properties) Number(name string, value float64) *Properties {
	return p.set(name, PropertyValue{Kind: FieldNumber, Number: value})
}

// RichText emits a free-text field, skipped when value is empty.
func (p *Properties) RichText(name, value string) *Properties {
	if value == "" {
		return p
	}
	return p.set(name, PropertyValue{Kind: FieldRichText, Text: value})
}

// Fields returns the emitted names in insertion order.
func (p *Properties) Fields() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Get returns the value for an emitted field.
func (p *Properties) Get(name string) (PropertyValue, bool) {
	v, ok := p.fields[name]
	return v, ok
}

func (p *Properties) Len() int {
	return len(p.fields)
}
