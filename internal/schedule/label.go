package schedule

import "golang.org/x/text/language"

// Display labels are a presentation pass on top of the canonical tokens.
// They are never fed back into a WeeklyPattern.

var labelTags = []language.Tag{
	language.English, // first entry is the matcher's fallback
	language.French,
	language.German,
	language.Spanish,
}

var labelMatcher = language.NewMatcher(labelTags)

// weekdayLabels is indexed like labelTags, then by ISO day offset.
var weekdayLabels = [][7]string{
	{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
	{"lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi", "dimanche"},
	{"Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag", "Sonntag"},
	{"lunes", "martes", "miércoles", "jueves", "viernes", "sábado", "domingo"},
}

// Label returns the display name of w in the best match among prefs.
// Unknown tokens are returned unchanged.
func Label(w Weekday, prefs ...language.Tag) string {
	off := w.Offset()
	if off < 0 {
		return string(w)
	}
	_, idx, _ := labelMatcher.Match(prefs...)
	return weekdayLabels[idx][off]
}

// Labels returns display names for all seven tokens, choosing the language
// from an Accept-Language header value. A malformed header falls back to
// English.
func Labels(acceptLanguage string) map[Weekday]string {
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil {
		prefs = nil
	}
	out := make(map[Weekday]string, len(weekdays))
	for _, w := range weekdays {
		out[w] = Label(w, prefs...)
	}
	return out
}
