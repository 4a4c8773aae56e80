package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bluelight-labs/vigia/internal/models"
)

func TestFormatAddress(t *testing.T) {
	tests := []struct {
		name     string
		incident models.Incident
		want     string
	}{
		{
			name:     "street with number",
			incident: models.Incident{Logradouro: "Rua do Catete", NumeroLogradouro: "153"},
			want:     "Rua do Catete, 153, Rio de Janeiro, RJ, Brasil",
		},
		{
			name:     "zero number dropped",
			incident: models.Incident{Logradouro: "Av. Brasil", NumeroLogradouro: "0"},
			want:     "Av. Brasil, Rio de Janeiro, RJ, Brasil",
		},
		{
			name:     "missing number dropped",
			incident: models.Incident{Logradouro: "Rua Larga"},
			want:     "Rua Larga, Rio de Janeiro, RJ, Brasil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatAddress(&tt.incident); got != tt.want {
				t.Errorf("FormatAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGoogleGeocoder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("address") == "" {
			t.Error("address parameter missing")
		}
		w.Write([]byte(`{"status": "OK", "results": [{"geometry": {"location": {"lat": -22.93, "lng": -43.17}}}]}`))
	}))
	defer srv.Close()

	g := NewGoogleGeocoder("test-key", WithBaseURL(srv.URL))
	lat, lon, err := g.Geocode(context.Background(), "Rua do Catete, 153, Rio de Janeiro, RJ, Brasil")
	if err != nil {
		t.Fatalf("Geocode() error: %v", err)
	}
	if lat != -22.93 || lon != -43.17 {
		t.Errorf("Geocode() = (%f, %f)", lat, lon)
	}
}

func TestGoogleGeocoderMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}))
	defer srv.Close()

	g := NewGoogleGeocoder("test-key", WithBaseURL(srv.URL))
	lat, lon, err := g.Geocode(context.Background(), "endereço inexistente")
	if err != nil {
		t.Fatalf("a miss should not be an error: %v", err)
	}
	if lat != 0 || lon != 0 {
		t.Errorf("miss should return (0, 0), got (%f, %f)", lat, lon)
	}
}

func TestBackfill(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "OK", "results": [{"geometry": {"location": {"lat": -22.9, "lng": -43.2}}}]}`))
	}))
	defer srv.Close()
	g := NewGoogleGeocoder("test-key", WithBaseURL(srv.URL))

	incidents := []*models.Incident{
		{IDReport: "RPT-1", Logradouro: "Rua do Catete", NumeroLogradouro: "153"},
		{IDReport: "RPT-2", Logradouro: "não informado"},
		{IDReport: "RPT-3", Latitude: -22.8, Longitude: -43.3},
	}

	Backfill(context.Background(), g, incidents)

	if !incidents[0].HasPoint() {
		t.Error("geocodable incident should have coordinates after backfill")
	}
	if incidents[1].HasPoint() {
		t.Error("incident with invalid address must stay without coordinates")
	}
	if incidents[2].Latitude != -22.8 || incidents[2].Longitude != -43.3 {
		t.Error("incident with existing coordinates must not change")
	}
}
