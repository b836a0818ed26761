package tile

import (
	"context"
	"strings"

	"github.com/milk9111/tilecanvas/surface"
)

// titleQuery is a pending document.title lookup for one tile. Only the query
// currently attached to the tile may apply its result.
type titleQuery struct {
	cancel context.CancelFunc
}

func (s *Store) cancelQuery(e *entry) {
	if e.query == nil {
		return
	}
	e.query.cancel()
	e.query = nil
}

func (s *Store) queryTitle(e *entry) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.TitleTimeout)
	q := &titleQuery{cancel: cancel}
	e.query = q

	id := e.tile.ID
	surf := e.surface
	go func() {
		defer cancel()
		res, err := surf.Query(ctx, surface.TitleScript)
		if err != nil {
			s.post(func() {
				s.finishQuery(id, q, "")
				s.logger.Debug("title query failed", "tile", id, "error", err)
			})
			return
		}
		title, _ := res.(string)
		s.post(func() { s.finishQuery(id, q, strings.TrimSpace(title)) })
	}()
}

func (s *Store) finishQuery(id int, q *titleQuery, title string) {
	e, ok := s.entries[id]
	if !ok || e.query != q {
		return
	}
	e.query = nil
	if title == "" || title == e.tile.Title {
		return
	}
	e.tile.Title = title
	s.emit(Event{Kind: TitleChanged, ID: id})
}
