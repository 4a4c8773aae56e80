package alert

import (
	"testing"
	"time"
)

func TestElapsedString(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		event time.Time
		want  string
	}{
		{
			name:  "days hours minutes seconds",
			event: now.Add(-(3*24*time.Hour + 2*time.Hour + 5*time.Minute + 30*time.Second)),
			want:  "3 dias, 2 horas, 5 minutos e 30 segundos",
		},
		{
			name:  "singular units",
			event: now.Add(-(24*time.Hour + time.Hour + time.Minute + time.Second)),
			want:  "1 dia, 1 hora, 1 minuto e 1 segundo",
		},
		{
			name:  "single part",
			event: now.Add(-45 * time.Minute),
			want:  "45 minutos",
		},
		{
			name:  "two parts joined with e",
			event: now.Add(-(2*time.Hour + 10*time.Minute)),
			want:  "2 horas e 10 minutos",
		},
		{
			name:  "zero elapsed",
			event: now,
			want:  "0 segundos",
		},
		{
			name:  "future event clamps to zero",
			event: now.Add(10 * time.Minute),
			want:  "0 segundos",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ElapsedString(tt.event, now); got != tt.want {
				t.Errorf("ElapsedString() = %q, want %q", got, tt.want)
			}
		})
	}
}
