package placeholder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain label",
			in:   "Dear [Client Name],",
			want: "Dear {{ Client_Name }},",
		},
		{
			name: "dollar label",
			in:   "Purchase Amount: $[Purchase Amount]",
			want: "Purchase Amount: {{ Purchase_Amount }}",
		},
		{
			name: "label is trimmed before normalizing",
			in:   "[ Investor Name ]",
			want: "{{ Investor_Name }}",
		},
		{
			name: "several placeholders",
			in:   "[Company], a [State of Incorporation] corporation",
			want: "{{ Company }}, a {{ State_of_Incorporation }} corporation",
		},
		{
			name: "no placeholders",
			in:   "This instrument is a SAFE.",
			want: "This instrument is a SAFE.",
		},
		{
			name: "unterminated bracket left alone",
			in:   "see [section 2",
			want: "see [section 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Convert(tt.in))
		})
	}
}

func TestConvert_DollarBlank(t *testing.T) {
	// The dollar-blank form goes through the same branch as any label: the
	// dollar sign is consumed and the underscores become the field name.
	// Every blank in a document therefore collapses to one field.
	out := Convert("Dear [Client Name], amount $[_____] and fee $[_____]")

	assert.Equal(t, "Dear {{ Client_Name }}, amount {{ _____ }} and fee {{ _____ }}", out)
	assert.Equal(t, []string{"Client_Name", "_____"}, Extract(out))
}

func TestConvertThenExtractRecoversName(t *testing.T) {
	labels := map[string]string{
		"Investor Name":          "Investor_Name",
		"Date of Safe":           "Date_of_Safe",
		"Company":                "Company",
		"Post-Money Valuation":   "Post-Money_Valuation",
		"Governing Law Juris.":   "Governing_Law_Juris.",
		"  Padded   Label  ":     "Padded___Label",
		"Name, Title (optional)": "Name,_Title_(optional)",
	}

	for label, want := range labels {
		for _, form := range []string{"[" + label + "]", "$[" + label + "]"} {
			got := Extract(Convert("text " + form + " more"))
			assert.Equal(t, []string{want}, got, "form %q", form)
		}
	}
}

func TestExtract(t *testing.T) {
	t.Run("first occurrence order across texts", func(t *testing.T) {
		got := Extract(
			"{{ Company }} and {{ Investor_Name }}",
			"{{ Investor_Name }} pays {{ Purchase_Amount }}",
			"signed by {{ Company }}",
		)
		assert.Equal(t, []string{"Company", "Investor_Name", "Purchase_Amount"}, got)
	})

	t.Run("names are trimmed", func(t *testing.T) {
		assert.Equal(t, []string{"A", "B"}, Extract("{{A}} {{   B   }} {{ A }}"))
	})

	t.Run("no tokens", func(t *testing.T) {
		got := Extract("nothing here", "")
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("idempotent", func(t *testing.T) {
		text := Convert("[B] [A] [C] [A] [B]")
		assert.Equal(t, Extract(text), Extract(text))
		assert.Equal(t, []string{"B", "A", "C"}, Extract(text))
	})
}

func TestUnfilled(t *testing.T) {
	placeholders := []string{"Company", "Investor_Name", "Purchase_Amount"}

	tests := []struct {
		name    string
		answers map[string]string
		want    []string
	}{
		{
			name:    "nothing answered",
			answers: nil,
			want:    []string{"Company", "Investor_Name", "Purchase_Amount"},
		},
		{
			name:    "partial keeps order",
			answers: map[string]string{"Investor_Name": "Jane"},
			want:    []string{"Company", "Purchase_Amount"},
		},
		{
			name:    "empty value counts as answered",
			answers: map[string]string{"Company": "", "Investor_Name": "Jane", "Purchase_Amount": "100"},
			want:    []string{},
		},
		{
			name:    "superset of keys",
			answers: map[string]string{"Company": "Acme", "Investor_Name": "Jane", "Purchase_Amount": "100", "Extra": "x"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Unfilled(placeholders, tt.answers))
		})
	}
}
