package injector

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fpt/layerfill/pkg/document"
)

func previewTree() []*document.Node {
	return []*document.Node{
		{
			Name: "page",
			Kind: document.KindFrame,
			Children: []*document.Node{
				{Name: "$title", Kind: document.KindText, Text: "old title"},
				{
					Name: "card",
					Kind: document.KindInstance,
					Overrides: []*document.Override{
						{ID: "1:1", Affected: &document.Node{Name: "$author"}, Value: "prev"},
					},
				},
			},
		},
	}
}

func TestPreview_DoesNotMutate(t *testing.T) {
	tree := previewTree()
	before := previewTree()

	_ = Preview(map[string]any{"title": "new", "author": "X"}, tree...)

	if diff := cmp.Diff(before, tree); diff != "" {
		t.Fatalf("preview mutated the tree (-want +got):\n%s", diff)
	}
}

func TestPreview_Entries(t *testing.T) {
	tree := previewTree()
	entries := Preview(map[string]any{"title": "new"}, tree...)

	if len(entries) != 2 {
		t.Fatalf("want 2 entries, got %d", len(entries))
	}

	title := entries[0]
	if title.LayerName != "$title" || title.LayerType != string(document.KindText) {
		t.Errorf("title entry: %+v", title)
	}
	if title.CurrentValue != "old title" || title.NewValue != "new" {
		t.Errorf("title values: current %q new %q", title.CurrentValue, title.NewValue)
	}
	if !title.WillUpdate {
		t.Error("title entry must report willUpdate")
	}

	author := entries[1]
	if author.CurrentValue != "[component override]" {
		t.Errorf("override current value placeholder: got %q", author.CurrentValue)
	}
	if author.NewValue != "[no data]" {
		t.Errorf("missing data placeholder: got %q", author.NewValue)
	}
	if author.WillUpdate {
		t.Error("entry without data must not report willUpdate")
	}
}

func TestPreview_NonTextBearingNeverUpdates(t *testing.T) {
	frame := &document.Node{Name: "$hero", Kind: document.KindFrame}
	entries := Preview(map[string]any{"hero": "v"}, frame)
	if len(entries) != 1 {
		t.Fatalf("want 1 entry, got %d", len(entries))
	}
	if entries[0].WillUpdate {
		t.Error("frame cannot carry text; willUpdate must be false")
	}
}
