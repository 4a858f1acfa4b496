package generate

import "strings"

// Bank verbs are written in the first person singular ("brauche", "habe").
// Conjugate adapts them to the subject of the sentence.

var pluralForms = map[string]string{
	"habe":   "haben",
	"bin":    "sind",
	"ist":    "sind",
	"möchte": "möchten",
	"kann":   "können",
	"muss":   "müssen",
	"darf":   "dürfen",
	"soll":   "sollen",
	"will":   "wollen",
	"mag":    "mögen",
}

var thirdPersonForms = map[string]string{
	"habe": "hat",
	"bin":  "ist",
}

var secondSingularForms = map[string]string{
	"habe":   "hast",
	"bin":    "bist",
	"ist":    "bist",
	"werde":  "wirst",
	"möchte": "möchtest",
	"kann":   "kannst",
	"muss":   "musst",
	"darf":   "darfst",
	"soll":   "sollst",
	"will":   "willst",
	"mag":    "magst",
}

var secondPluralForms = map[string]string{
	"habe":   "habt",
	"bin":    "seid",
	"ist":    "seid",
	"werde":  "werdet",
	"möchte": "möchtet",
	"kann":   "könnt",
	"muss":   "müsst",
	"darf":   "dürft",
	"soll":   "sollt",
	"will":   "wollt",
	"mag":    "mögt",
}

// Strong verbs change their stem vowel in the du and er forms.
var changedStems = map[string]string{
	"nehme":    "nimm",
	"gebe":     "gib",
	"spreche":  "sprich",
	"helfe":    "hilf",
	"lese":     "lies",
	"sehe":     "sieh",
	"esse":     "iss",
	"treffe":   "triff",
	"vergesse": "vergiss",
	"empfehle": "empfiehl",
	"fahre":    "fähr",
	"schlafe":  "schläf",
	"trage":    "träg",
	"laufe":    "läuf",
}

// Already conjugated modal forms are identical in first and third person.
var modalForms = map[string]struct{}{
	"möchte": {}, "kann": {}, "muss": {}, "darf": {}, "soll": {}, "will": {}, "mag": {},
}

var thirdPersonHeads = map[string]struct{}{
	"der": {}, "die": {}, "das": {}, "er": {}, "es": {}, "man": {},
	"ein": {}, "eine": {},
	"mein": {}, "meine": {}, "dein": {}, "deine": {}, "sein": {}, "seine": {},
	"ihre": {}, "unser": {}, "unsere": {}, "euer": {}, "eure": {},
}

type person int

const (
	firstSingular person = iota
	secondSingular
	thirdSingular
	plural
	secondPlural
	unknownPerson
)

func personOf(subject string) person {
	words := strings.Fields(subject)
	if len(words) == 0 {
		return unknownPerson
	}
	head := words[0]
	lower := strings.ToLower(head)
	switch {
	case lower == "ich":
		return firstSingular
	case lower == "du":
		return secondSingular
	case lower == "ihr" && len(words) == 1:
		return secondPlural
	case lower == "wir", head == "Sie" && len(words) == 1:
		return plural
	case head == "sie" && len(words) == 1:
		return thirdSingular
	case lower == "ihr" && len(words) > 1:
		return thirdSingular
	}
	if _, ok := thirdPersonHeads[lower]; ok {
		return thirdSingular
	}
	return unknownPerson
}

// Conjugate returns verb agreeing with subject. Only the first word of a
// multi-word verb is inflected.
func Conjugate(subject, verb string) string {
	head, rest, _ := strings.Cut(verb, " ")
	switch personOf(subject) {
	case secondSingular:
		head = secondSingularOf(head)
	case thirdSingular:
		head = thirdPersonOf(head)
	case plural:
		head = pluralOf(head)
	case secondPlural:
		head = secondPluralOf(head)
	}
	if rest == "" {
		return head
	}
	return head + " " + rest
}

func pluralOf(verb string) string {
	if form, ok := pluralForms[strings.ToLower(verb)]; ok {
		return form
	}
	if strings.HasSuffix(verb, "e") {
		return verb + "n"
	}
	return verb + "en"
}

func secondSingularOf(verb string) string {
	lower := strings.ToLower(verb)
	if form, ok := secondSingularForms[lower]; ok {
		return form
	}
	if stem, ok := changedStems[lower]; ok {
		if strings.HasSuffix(stem, "s") {
			return stem + "t"
		}
		return stem + "st"
	}

	stem := strings.TrimSuffix(verb, "e")
	runes := []rune(stem)
	if len(runes) == 0 {
		return verb
	}
	last := runes[len(runes)-1]
	switch {
	case last == 't' || last == 'd':
		return stem + "est"
	case (last == 'm' || last == 'n') && needsEpenthesis(runes[:len(runes)-1]):
		return stem + "est"
	case strings.ContainsRune("sßzx", last):
		return stem + "t"
	}
	return stem + "st"
}

func secondPluralOf(verb string) string {
	lower := strings.ToLower(verb)
	if form, ok := secondPluralForms[lower]; ok {
		return form
	}
	return withT(strings.TrimSuffix(verb, "e"), verb)
}

func thirdPersonOf(verb string) string {
	lower := strings.ToLower(verb)
	if _, ok := modalForms[lower]; ok {
		return verb
	}
	if form, ok := thirdPersonForms[lower]; ok {
		return form
	}
	if stem, ok := changedStems[lower]; ok {
		return stem + "t"
	}
	if strings.HasSuffix(verb, "t") {
		return verb
	}
	return withT(strings.TrimSuffix(verb, "e"), verb)
}

// withT appends the -t ending to stem, with a linking e where needed.
func withT(stem, verb string) string {
	runes := []rune(stem)
	if len(runes) == 0 {
		return verb
	}
	last := runes[len(runes)-1]
	switch {
	case last == 't' || last == 'd':
		return stem + "et"
	case (last == 'm' || last == 'n') && needsEpenthesis(runes[:len(runes)-1]):
		return stem + "et"
	}
	return stem + "t"
}

// needsEpenthesis reports whether a stem-final m or n following head needs
// a linking e: atmet, öffnet and rechnet do, lernt, wohnt and plant do not.
func needsEpenthesis(head []rune) bool {
	if len(head) == 0 {
		return false
	}
	prev := head[len(head)-1]
	if prev == 'h' && len(head) > 1 && head[len(head)-2] == 'c' {
		return true
	}
	if strings.ContainsRune("aeiouyäöü", prev) {
		return false
	}
	return !strings.ContainsRune("lrhmn", prev)
}
