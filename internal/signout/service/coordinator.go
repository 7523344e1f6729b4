package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethanesterson-creator/SignOut/internal/events"
	"github.com/ethanesterson-creator/SignOut/internal/idgen"
	"github.com/ethanesterson-creator/SignOut/internal/signout/allocation"
	"github.com/ethanesterson-creator/SignOut/internal/signout/cache"
	"github.com/ethanesterson-creator/SignOut/internal/signout/credential"
	"github.com/ethanesterson-creator/SignOut/internal/signout/ledger"
	"github.com/ethanesterson-creator/SignOut/internal/signout/status"
)

const tracerName = "github.com/ethanesterson-creator/SignOut/internal/signout/service"

// DefaultViewTTL bounds how stale a status view may be.
const DefaultViewTTL = 5 * time.Second

// Passenger rides along on a vehicle checkout.
type Passenger struct {
	Name string
	Code string
}

// Intent is a requested transition.  Subject may be empty; see
// Coordinator.Propose for how it is resolved.
type Intent struct {
	Subject    string
	Actor      string
	Code       string
	Action     ledger.Action
	Category   string
	Detail     string
	Passengers []Passenger
}

type Options struct {
	// Location is the zone naive timestamps are read in and new ones are
	// written in.  Nil means UTC.
	Location *time.Location
	// ViewTTL bounds status view staleness.  Zero means DefaultViewTTL;
	// negative disables caching.
	ViewTTL time.Duration

	Publisher events.Publisher
	Logger    *slog.Logger
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider

	// Now and NewEventID are replaceable for tests.
	Now        func() time.Time
	NewEventID func() (string, error)
}

// Coordinator is the single write path for one board.  It validates and
// authorizes an intent, checks it against a fresh read of the ledger,
// and appends at most one event.
type Coordinator struct {
	board  Board
	reader *ledger.Reader
	guard  *ledger.Guard
	roster *credential.Directory

	views   *cache.Cache[*status.Engine]
	viewTTL time.Duration

	// mu serializes read→decide→append and purges within this process.
	mu sync.Mutex

	publisher  events.Publisher
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
	newEventID func() (string, error)
}

func NewCoordinator(b Board, roster *credential.Directory, opts Options) *Coordinator {
	c := &Coordinator{
		board:      b,
		reader:     ledger.NewReader(b.Schema, opts.Location),
		guard:      ledger.NewGuard(b.Ledger, b.Schema.Columns),
		roster:     roster,
		views:      cache.New[*status.Engine](),
		viewTTL:    opts.ViewTTL,
		publisher:  opts.Publisher,
		logger:     opts.Logger,
		now:        opts.Now,
		newEventID: opts.NewEventID,
	}
	if c.viewTTL == 0 {
		c.viewTTL = DefaultViewTTL
	}
	if c.publisher == nil {
		c.publisher = &events.NoopPublisher{}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c.logger = c.logger.With("board", b.Name)
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	c.tracer = tp.Tracer(tracerName)
	if c.now == nil {
		c.now = time.Now
	}
	if c.newEventID == nil {
		c.newEventID = idgen.Generate
	}
	return c
}

func (c *Coordinator) Board() Board { return c.board }

// Propose validates in, authorizes the actor and, if the transition is
// legal against a fresh read of the ledger, appends it.
//
// Subject resolution:
//   - people board: an empty subject is the actor;
//   - vehicle checkout: an empty subject takes the next available van;
//   - vehicle checkin: an empty subject is the only van out.
//
// Errors are *ValidationError, *AuthError, *ConflictError or *StoreError.
func (c *Coordinator) Propose(ctx context.Context, in Intent) (ledger.Event, error) {
	ctx, span := c.tracer.Start(ctx, "signout.propose", trace.WithAttributes(
		attribute.String("signout.board", c.board.Name),
		attribute.String("signout.action", string(in.Action)),
	))
	defer span.End()

	ev, err := c.propose(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.InfoContext(ctx, "transition rejected",
			"action", in.Action, "subject", in.Subject, "actor", in.Actor, "err", err)
		return ledger.Event{}, err
	}
	span.SetAttributes(
		attribute.String("signout.subject", ev.Subject),
		attribute.Int64("signout.seq", ev.Seq),
	)
	c.logger.InfoContext(ctx, "transition recorded",
		"action", ev.Action, "subject", ev.Subject, "actor", ev.Actor, "id", ev.Seq, "event_id", ev.EventID)
	return ev, nil
}

func (c *Coordinator) propose(ctx context.Context, in Intent) (ledger.Event, error) {
	in, err := c.validate(in)
	if err != nil {
		return ledger.Event{}, err
	}

	roster, err := c.roster.Snapshot(ctx)
	if err != nil {
		return ledger.Event{}, &StoreError{Op: "read roster", Err: err}
	}
	if outcome := credential.Authorize(in.Actor, in.Code, roster); outcome != credential.Authorized {
		return ledger.Event{}, &AuthError{Actor: in.Actor, Reason: outcome}
	}
	passengers, err := c.checkPassengers(in, roster)
	if err != nil {
		return ledger.Event{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.board.Ledger.ReadAllRows(ctx)
	if err != nil {
		return ledger.Event{}, &StoreError{Op: "read ledger " + c.board.Ledger.Name(), Err: err}
	}
	history := c.reader.Decode(rows)
	engine := status.New(history)

	subject, err := c.resolveSubject(in, engine)
	if err != nil {
		return ledger.Event{}, err
	}

	current := engine.Status(subject)
	switch in.Action {
	case ledger.ActionCheckout:
		if current == ledger.StatusOut {
			return ledger.Event{}, &ConflictError{Board: c.board.Name, Subject: subject, Reason: ReasonAlreadyOut}
		}
	case ledger.ActionCheckin:
		if current != ledger.StatusOut {
			return ledger.Event{}, &ConflictError{Board: c.board.Name, Subject: subject, Reason: ReasonAlreadyIn}
		}
	}

	eventID, err := c.newEventID()
	if err != nil {
		return ledger.Event{}, &StoreError{Op: "generate event id", Err: err}
	}

	seq, err := ledger.NextRowSeq(rows)
	if err != nil {
		return ledger.Event{}, &StoreError{Op: "assign id", Err: err}
	}

	ev := ledger.Event{
		Seq:        seq,
		HasSeq:     true,
		EventID:    eventID,
		Timestamp:  c.now().In(c.reader.Location()).Truncate(time.Second),
		TimeKnown:  true,
		Subject:    subject,
		Actor:      in.Actor,
		Category:   in.Category,
		Detail:     in.Detail,
		Action:     in.Action,
		RawStatus:  string(in.Action.Result()),
		Passengers: passengers,
		Position:   len(rows),
	}
	if in.Action == ledger.ActionCheckin {
		if last, ok := engine.LastCheckout(subject); ok {
			ev.Category = last.Category
			ev.Detail = last.Detail
			ev.Passengers = last.Passengers
		}
	}

	change, err := c.guard.Ensure(ctx)
	if err != nil {
		return ledger.Event{}, &StoreError{Op: "ensure header", Err: err}
	}
	if change.Drifted() {
		warn := &SchemaDriftWarning{Ledger: c.board.Ledger.Name(), Added: change.Added}
		c.logger.WarnContext(ctx, "schema drift repaired", "ledger", warn.Ledger, "added", warn.Added)
	}

	ev.Row = c.board.Schema.Encode(ev, c.reader.Location())
	if err := c.board.Ledger.AppendRow(ctx, ev.Row); err != nil {
		return ledger.Event{}, &StoreError{Op: "append " + c.board.Ledger.Name(), Err: err}
	}
	c.views.InvalidateAll()

	c.publish(ctx, events.Topic(c.board.Name, string(ev.Action)), c.transition(ev))
	return ev, nil
}

// validate trims in and checks every field that needs no I/O.
func (c *Coordinator) validate(in Intent) (Intent, error) {
	in.Subject = strings.TrimSpace(in.Subject)
	in.Actor = strings.TrimSpace(in.Actor)
	in.Code = strings.TrimSpace(in.Code)
	in.Detail = strings.TrimSpace(in.Detail)

	if in.Action != ledger.ActionCheckout && in.Action != ledger.ActionCheckin {
		return in, &ValidationError{Field: "action", Message: "must be CHECKOUT or CHECKIN"}
	}
	if in.Actor == "" {
		return in, &ValidationError{Field: "actor", Message: "is required"}
	}
	if in.Code == "" {
		return in, &ValidationError{Field: "code", Message: "is required"}
	}
	if !c.board.Pooled() && in.Subject != "" && in.Subject != in.Actor {
		return in, &ValidationError{Field: "subject", Message: "staff can only sign themselves out"}
	}
	if c.board.Pooled() && in.Subject != "" && !allocation.Contains(c.board.Pool, in.Subject) {
		return in, &ValidationError{Field: "subject", Message: "not one of " + strings.Join(c.board.Pool, ", ")}
	}

	// Checkins take their metadata from the matching checkout.
	if in.Action == ledger.ActionCheckin {
		in.Category, in.Detail, in.Passengers = "", "", nil
		return in, nil
	}

	if len(c.board.Categories) > 0 && strings.TrimSpace(in.Category) == "" {
		return in, &ValidationError{Field: "category", Message: "is required"}
	}
	cat, ok := c.board.category(in.Category)
	if !ok {
		return in, &ValidationError{Field: "category", Message: "must be one of " + strings.Join(c.board.Categories, ", ")}
	}
	in.Category = cat
	if isOther(cat) && in.Detail == "" {
		return in, &ValidationError{Field: "detail", Message: "is required for " + cat}
	}
	if len(in.Passengers) > 0 && c.board.Schema.Passengers == "" {
		return in, &ValidationError{Field: "passengers", Message: "not accepted on the " + c.board.Name + " board"}
	}
	return in, nil
}

// checkPassengers returns the passenger names to record.  The actor and
// duplicates are dropped.
func (c *Coordinator) checkPassengers(in Intent, roster *credential.Roster) ([]string, error) {
	if len(in.Passengers) == 0 {
		return nil, nil
	}
	seen := map[string]bool{in.Actor: true}
	var names []string
	for _, p := range in.Passengers {
		name := strings.TrimSpace(p.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		rec, ok := roster.Lookup(name)
		switch {
		case !ok:
			return nil, &AuthError{Actor: name, Reason: credential.UnknownActor}
		case !rec.Active:
			return nil, &AuthError{Actor: name, Reason: credential.InactiveActor}
		}
		if c.board.RequirePassengerCodes {
			if outcome := credential.Authorize(name, p.Code, roster); outcome != credential.Authorized {
				return nil, &AuthError{Actor: name, Reason: outcome}
			}
		}
		names = append(names, name)
	}
	return names, nil
}

func (c *Coordinator) resolveSubject(in Intent, engine *status.Engine) (string, error) {
	if !c.board.Pooled() {
		return in.Actor, nil
	}
	if in.Subject != "" {
		return in.Subject, nil
	}
	statuses := engine.StatusMap(c.board.Pool)
	if in.Action == ledger.ActionCheckout {
		next, ok := allocation.NextAvailable(c.board.Pool, statuses)
		if !ok {
			return "", &ConflictError{Board: c.board.Name, Reason: ReasonPoolExhausted}
		}
		return next, nil
	}
	out := allocation.Out(c.board.Pool, statuses)
	switch len(out) {
	case 0:
		return "", &ConflictError{Board: c.board.Name, Reason: ReasonAlreadyIn}
	case 1:
		return out[0], nil
	default:
		return "", &ValidationError{Field: "subject", Message: "more than one is out; choose " + strings.Join(out, " or ")}
	}
}

// publish is best effort: the event is already committed.
func (c *Coordinator) publish(ctx context.Context, topic string, payload any) {
	if err := c.publisher.Publish(ctx, topic, payload); err != nil {
		c.logger.WarnContext(ctx, "publish failed", "topic", topic, "err", err)
	}
}

func (c *Coordinator) transition(ev ledger.Event) events.Transition {
	return events.Transition{
		Board:      c.board.Name,
		Seq:        ev.Seq,
		EventID:    ev.EventID,
		Timestamp:  ev.Timestamp.Format(ledger.TimestampLayout),
		Subject:    ev.Subject,
		Actor:      ev.Actor,
		Action:     string(ev.Action),
		Status:     ev.RawStatus,
		Category:   ev.Category,
		Detail:     ev.Detail,
		Passengers: ev.Passengers,
	}
}
