package contextengine

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		prompt string
		want   EditIntent
	}{
		{"remove the footer", IntentRemove},
		{"delete the submit button", IntentRemove},
		{"add a new header", IntentAdd},
		{"insert a text field below the form", IntentAdd},
		{"align the buttons to the center", IntentLayout},
		{"move the sidebar to the right", IntentLayout},
		{"make the button blue", IntentStyle},
		{"change the font size", IntentStyle},
		{"update the copy on the hero", IntentModify},
		{"do something vague", IntentModify},
	}

	for _, c := range cases {
		got := Classify(c.prompt)
		if got != c.want {
			t.Errorf("Classify(%q) = %s, want %s", c.prompt, got, c.want)
		}
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	prompt := "remove the blue button and align it"
	first := Classify(prompt)
	for i := 0; i < 5; i++ {
		if got := Classify(prompt); got != first {
			t.Fatalf("Classify not deterministic: got %s, want %s", got, first)
		}
	}
	if first != IntentRemove {
		t.Fatalf("expected remove to take precedence, got %s", first)
	}
}
