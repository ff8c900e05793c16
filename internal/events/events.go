// Package events bridges a blocking pipeline run into an ordered stream of
// progress events for a single consumer.
package events

import (
	"github.com/jonesrussell/north-cloud/leadfinder/internal/lead"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/search"
)

// Type tags an Event.
type Type string

// Event types.
const (
	TypeProgress      Type = "progress"
	TypeSearchResults Type = "search_results"
	TypeItem          Type = "item"
	TypeError         Type = "error"
	TypeDone          Type = "done"
)

// Pipeline phases carried by progress events.
const (
	PhaseSearch = "search"
	PhaseCrawl  = "crawl"
	PhaseDeep   = "deep"
)

// Event is one entry in the stream. Results holds []search.Hit for
// search_results and []lead.LeadRecord for done.
type Event struct {
	Type    Type             `json:"type"`
	Percent int              `json:"percent"`
	Phase   string           `json:"phase,omitempty"`
	Msg     string           `json:"msg,omitempty"`
	URL     string           `json:"url,omitempty"`
	Results any              `json:"results,omitempty"`
	Item    *lead.LeadRecord `json:"item,omitempty"`
}

// Hits returns the search hits of a search_results event.
func (e Event) Hits() []search.Hit {
	hits, _ := e.Results.([]search.Hit)
	return hits
}

// Leads returns the final records of a done event.
func (e Event) Leads() []lead.LeadRecord {
	leads, _ := e.Results.([]lead.LeadRecord)
	return leads
}

// IsTerminal reports whether e ends the stream.
func (e Event) IsTerminal() bool { return e.Type == TypeDone }
