package alert

import (
	"fmt"
	"strings"
	"time"
)

// ElapsedString renders the time elapsed between event and now as a
// Portuguese phrase, e.g. "3 dias, 2 horas e 1 minuto". Zero or negative
// elapsed time renders as "0 segundos".
func ElapsedString(event, now time.Time) string {
	delta := now.Sub(event)
	if delta < 0 {
		delta = 0
	}

	days := int(delta.Hours()) / 24
	hours := int(delta.Hours()) % 24
	minutes := int(delta.Minutes()) % 60
	seconds := int(delta.Seconds()) % 60

	var parts []string
	addPart := func(value int, singular, plural string) {
		if value == 1 {
			parts = append(parts, fmt.Sprintf("%d %s", value, singular))
		} else if value > 1 {
			parts = append(parts, fmt.Sprintf("%d %s", value, plural))
		}
	}
	addPart(days, "dia", "dias")
	addPart(hours, "hora", "horas")
	addPart(minutes, "minuto", "minutos")
	addPart(seconds, "segundo", "segundos")

	switch len(parts) {
	case 0:
		return "0 segundos"
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " e " + parts[len(parts)-1]
	}
}
