package document

import "testing"

func TestWith_DoesNotMutate(t *testing.T) {
	d := Document{KeyText: "hi"}
	d2 := d.With(KeyEmbedding, []float32{1})

	if _, ok := d[KeyEmbedding]; ok {
		t.Fatal("original document mutated")
	}
	if _, ok := d2[KeyEmbedding]; !ok {
		t.Fatal("copy missing new key")
	}
	if d2.Text() != "hi" {
		t.Errorf("Text() = %q", d2.Text())
	}
}

func TestText_Missing(t *testing.T) {
	if got := (Document{}).Text(); got != "" {
		t.Errorf("Text() = %q, want empty", got)
	}
}
