package deck

// CardTemplate pairs a question layout with its answer layout.
type CardTemplate struct {
	Name  string
	Front string
	Back  string
}

// Templates returns the two study directions every deck carries:
// recognition (written form on the front) and recall (definition on the
// front). The extended variant plays the clip on the answer side.
func (v Variant) Templates() []CardTemplate {
	sound := ""
	if v == VariantExtended {
		sound = "\n{{Sound}}"
	}
	return []CardTemplate{
		{
			Name:  "Recognition",
			Front: "{{Expression}}",
			Back: "{{furigana:Reading}}<hr id=\"answer\">{{English definition}}" +
				"<br><i>{{Grammar}}</i><br>{{Additional definitions}}" + sound,
		},
		{
			Name:  "Recall",
			Front: "{{English definition}}<br><i>{{Grammar}}</i>",
			Back: "{{furigana:Reading}}<hr id=\"answer\">{{Expression}}" +
				"<br>{{Additional definitions}}" + sound,
		},
	}
}
