// Package geo associates incidents with monitored contexts by geographic
// distance.
package geo

import (
	"log"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"github.com/bluelight-labs/vigia/internal/metrics"
	"github.com/bluelight-labs/vigia/internal/models"
)

// DefaultBufferMeters widens every context's search radius. Incident
// coordinates are imprecise; the buffer keeps borderline incidents in play
// and lets the relevance stage make the final call.
const DefaultBufferMeters = 3000

// Match is one context within range of an incident.
type Match struct {
	Context        *models.MonitoredContext
	DistanceMeters int
}

// Association holds the contexts matched to one incident.
type Association struct {
	Incident *models.Incident
	Matches  []Match
}

type preparedContext struct {
	ctx      *models.MonitoredContext
	centroid orb.Point
	valid    bool
}

// Matcher matches incidents against a fixed set of contexts. Geometries are
// parsed once at construction; contexts with invalid geometry are dropped
// unless they cover the whole city.
type Matcher struct {
	buffer    int
	contexts  []preparedContext
	wholeCity []*models.MonitoredContext
}

// NewMatcher prepares the context set. bufferMeters <= 0 uses the default.
func NewMatcher(contexts []*models.MonitoredContext, bufferMeters int) *Matcher {
	if bufferMeters <= 0 {
		bufferMeters = DefaultBufferMeters
	}
	m := &Matcher{buffer: bufferMeters}

	for _, ctx := range contexts {
		p := preparedContext{ctx: ctx}
		if ctx.Geometria != "" {
			g, err := wkt.Unmarshal(ctx.Geometria)
			if err != nil {
				log.Printf("geo: context %s has invalid geometry: %v", ctx.ID, err)
			} else {
				p.centroid, _ = planar.CentroidArea(g)
				p.valid = true
			}
		}

		if ctx.CidadeInteira {
			m.wholeCity = append(m.wholeCity, ctx)
		}
		// Contexts with no usable geometry only participate through the
		// whole-city cross join.
		if p.valid || ctx.CidadeInteira {
			m.contexts = append(m.contexts, p)
		}
	}

	log.Printf("geo: matcher prepared with %d contexts (%d whole-city)", len(m.contexts), len(m.wholeCity))
	return m
}

// WholeCityContexts returns the contexts that match every incident
// regardless of distance.
func (m *Matcher) WholeCityContexts() []*models.MonitoredContext {
	return m.wholeCity
}

// Associate matches each incident to every context whose centroid lies
// within the context's search radius plus the buffer, boundary included.
// Incidents without coordinates get an empty match list.
func (m *Matcher) Associate(incidents []*models.Incident) []Association {
	log.Printf("geo: processing %d incidents against %d contexts", len(incidents), len(m.contexts))

	out := make([]Association, len(incidents))
	total := 0
	for i, incident := range incidents {
		out[i] = Association{Incident: incident}

		if !incident.HasPoint() {
			log.Printf("geo: incident %s has no coordinates, skipping context association", incident.IDReport)
			metrics.IncidentsWithoutCoordinates.Inc()
			continue
		}

		point := orb.Point{incident.Longitude, incident.Latitude}
		for _, pc := range m.contexts {
			if !pc.valid {
				continue
			}
			distance := geo.Distance(point, pc.centroid)
			limit := float64(pc.ctx.SearchRadius() + m.buffer)
			if distance <= limit {
				out[i].Matches = append(out[i].Matches, Match{
					Context:        pc.ctx,
					DistanceMeters: int(math.Round(distance)),
				})
				metrics.AssociationsTotal.WithLabelValues("distance").Inc()
				total++
			}
		}
	}

	log.Printf("geo: created %d incident-context associations", total)
	return out
}
