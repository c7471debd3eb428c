package remote

import "testing"

func TestPropertiesSkipEmptyOptionals(t *testing.T) {
	props := NewProperties().
		Title("Name", "Run 30km").
		Select("Status", "").
		RichText("Notes", "").
		Number("Progress", 0)

	if props.Len() != 2 {
		t.Fatalf("expected only Name and Progress emitted, got %d fields", props.Len())
	}
	if _, ok := props.Get("Status"); ok {
		t.Error("expected empty select to be absent, not null")
	}
	if _, ok := props.Get("Notes"); ok {
		t.Error("expected empty rich text to be absent, not null")
	}

	// Zero is a real number value, not an absent one.
	v, ok := props.Get("Progress")
	if !ok || v.Kind != FieldNumber || v.Number != 0 {
		t.Errorf("expected explicit zero number, got %+v ok=%v", v, ok)
	}
}

func TestPropertiesInsertionOrder(t *testing.T) {
	props := NewProperties().
		Title("Name", "x").
		Number("Target", 5).
		Select("Status", "active")

	fields := props.Fields()
	want := []string{"Name", "Target", "Status"}
	if len(fields) != len(want) {
		t.Fatalf("expected %d fields, got %d", len(want), len(fields))
	}
	for i, name := range want {
		if fields[i] != name {
			t.Errorf("field %d: expected %q, got %q", i, name, fields[i])
		}
	}
}

func TestPropertiesOverwriteKeepsPosition(t *testing.T) {
	props := NewProperties().
		Title("Name", "first").
		Number("Target", 5).
		Title("Name", "second")

	if props.Len() != 2 {
		t.Fatalf("expected overwrite, not duplicate, got %d fields", props.Len())
	}
	v, _ := props.Get("Name")
	if v.Text != "second" {
		t.Errorf("expected latest value, got %q", v.Text)
	}
	if fields := props.Fields(); fields[0] != "Name" {
		t.Errorf("expected original position kept, got %v", fields)
	}
}
