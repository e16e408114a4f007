package inference

import "testing"

func TestSanitizeCompletion(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "removes closed think block",
			in:   "<think>counting</think>\n 42",
			want: "42",
		},
		{
			name: "removes unclosed think block tail",
			in:   "<think>internal only",
			want: "",
		},
		{
			name: "removes end markers",
			in:   "• red\n• blue<|im_end|><end_of_turn>",
			want: "• red\n• blue",
		},
		{
			name: "keeps plain text",
			in:   " The sky is blue. ",
			want: "The sky is blue.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := SanitizeCompletion(tc.in)
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
