package httpapi

import (
	"time"

	"github.com/ethanesterson-creator/SignOut/internal/signout/ledger"
	"github.com/ethanesterson-creator/SignOut/internal/signout/service"
	"github.com/ethanesterson-creator/SignOut/internal/signout/types"
)

// ── Events ───────────────────────────────────────────────────────────────────

func eventView(ev ledger.Event, loc *time.Location) types.EventView {
	v := types.EventView{
		EventID:    ev.EventID,
		Subject:    ev.Subject,
		Actor:      ev.Actor,
		Category:   ev.Category,
		Detail:     ev.Detail,
		Action:     string(ev.Action),
		Status:     string(ev.Status()),
		Passengers: ev.Passengers,
	}
	if ev.HasSeq {
		seq := ev.Seq
		v.ID = &seq
	}
	if ev.TimeKnown {
		v.Timestamp = ev.Timestamp.In(loc).Format(time.RFC3339)
	}
	return v
}

func eventViews(evs []ledger.Event, loc *time.Location) []types.EventView {
	out := make([]types.EventView, 0, len(evs))
	for _, ev := range evs {
		out = append(out, eventView(ev, loc))
	}
	return out
}

// ── Boards ───────────────────────────────────────────────────────────────────

func boardResponse(snap service.Snapshot, categories []string, loc *time.Location, now time.Time) types.BoardResponse {
	resp := types.BoardResponse{
		OK:            true,
		Board:         snap.Board,
		Out:           eventViews(snap.Out, loc),
		NextAvailable: snap.NextAvailable,
		Categories:    categories,
		ServerTime:    now.In(loc).Format(time.RFC3339),
	}
	for _, p := range snap.Pool {
		entry := types.PoolEntry{ID: p.ID, Status: string(p.Status)}
		if p.Last != nil {
			last := eventView(*p.Last, loc)
			entry.Last = &last
		}
		resp.Pool = append(resp.Pool, entry)
	}
	return resp
}

func intentFromRequest(req types.TransitionRequest, action ledger.Action) service.Intent {
	in := service.Intent{
		Subject:  req.Subject,
		Actor:    req.Actor,
		Code:     req.Code,
		Action:   action,
		Category: req.Category,
		Detail:   req.Detail,
	}
	for _, p := range req.Passengers {
		in.Passengers = append(in.Passengers, service.Passenger{Name: p.Name, Code: p.Code})
	}
	return in
}
