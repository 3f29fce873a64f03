package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(mode Mode, tty bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, tty, mode), out, errOut
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode Mode
		tty  bool
		want Mode
	}{
		{mode: ModeAuto, tty: true, want: ModeText},
		{mode: ModeAuto, tty: false, want: ModeMarkdown},
		{mode: ModeJSON, tty: true, want: ModeJSON},
		{mode: "md", tty: true, want: ModeMarkdown},
		{mode: "bogus", tty: false, want: ModeMarkdown},
		{mode: ModeText, tty: false, want: ModeText},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r, _, _ := newTestRenderer(tt.mode, tt.tty)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestRenderer_Markdown(t *testing.T) {
	r, out, _ := newTestRenderer(ModeAuto, false)

	r.Header(2, "Relations")
	r.KeyValue("Type", "int4")
	r.Code("sql", "o.id + 1\n")

	assert.Equal(t, "## Relations\n\n- **Type:** int4\n```sql\no.id + 1\n```\n", out.String())
}

func TestRenderer_PlainTextWithoutTTY(t *testing.T) {
	r, out, errOut := newTestRenderer(ModeText, false)

	r.Header(1, "Relations")
	r.KeyValue("Type", "int4")
	r.Success("saved")
	r.Error("boom")

	assert.Equal(t, "Relations\nType: int4\n✓ saved\n", out.String())
	assert.Equal(t, "Error: boom\n", errOut.String())
}

func TestRenderer_Table(t *testing.T) {
	t.Run("markdown", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeMarkdown, false)
		r.Table([]string{"Name", "Type"}, [][]string{{"id", "int4"}})
		assert.Contains(t, out.String(), "| id | int4 |")
	})

	t.Run("text", func(t *testing.T) {
		r, out, _ := newTestRenderer(ModeText, false)
		r.Table([]string{"Name", "Type"}, [][]string{{"id", "int4"}})
		assert.Contains(t, out.String(), "│ id   │ int4 │")
	})
}

func TestRenderer_JSON(t *testing.T) {
	r, out, _ := newTestRenderer(ModeJSON, false)
	require.NoError(t, r.JSON(map[string]string{"type": "int4"}))
	assert.JSONEq(t, `{"type":"int4"}`, out.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "### Title", FormatHeader(3, "Title"))
	assert.Equal(t, "- **Key:** value", FormatKeyValue("Key", "value"))
}
