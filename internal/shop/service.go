// Package shop implements the shopkeeper commands: it validates requests,
// gates mutations through the access gate, reads and writes the record
// store, and renders the results as cards.
package shop

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mesh-intelligence/shopkeeper/internal/access"
	"github.com/mesh-intelligence/shopkeeper/internal/card"
	"github.com/mesh-intelligence/shopkeeper/internal/delivery"
	"github.com/mesh-intelligence/shopkeeper/internal/logging"
	"github.com/mesh-intelligence/shopkeeper/internal/paginate"
	"github.com/mesh-intelligence/shopkeeper/internal/session"
	"github.com/mesh-intelligence/shopkeeper/internal/store"
	"github.com/mesh-intelligence/shopkeeper/pkg/types"
)

var tracer = otel.Tracer("shopkeeper/shop")

// Request carries who issued a command and where.
type Request struct {
	Actor     access.Actor
	ChannelID string
}

// Service runs commands against one store. Build it once with New and share
// it between handlers.
type Service struct {
	store    types.Store
	gate     *access.Gate
	channel  delivery.Channel
	sessions *session.Manager
	logger   *slog.Logger

	pageSize    int
	viewTimeout time.Duration
	channels    []string

	// mu serializes commands that read a record and then write it back
	// based on what they read, such as inventory changes.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithSessions sets the flow session manager.
func WithSessions(m *session.Manager) Option {
	return func(s *Service) { s.sessions = m }
}

// WithPageSize sets the page size of list views.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithViewTimeout sets the idle timeout of list and shop views.
func WithViewTimeout(d time.Duration) Option {
	return func(s *Service) { s.viewTimeout = d }
}

// WithChannels sets the channels offered by the NPC creation flow.
func WithChannels(channels []string) Option {
	return func(s *Service) { s.channels = append([]string(nil), channels...) }
}

// New returns a Service over an attached store.
func New(store types.Store, gate *access.Gate, channel delivery.Channel, opts ...Option) *Service {
	s := &Service{
		store:       store,
		gate:        gate,
		channel:     channel,
		pageSize:    paginate.DefaultPageSize,
		viewTimeout: paginate.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.sessions == nil {
		s.sessions = session.NewManager()
	}
	return s
}

// Sessions returns the flow session manager.
func (s *Service) Sessions() *session.Manager { return s.sessions }

// Deliver sends the outcome of a command to the requesting actor: c on
// success, or an ephemeral error card built from err.
func (s *Service) Deliver(ctx context.Context, req Request, c card.Card, err error) error {
	msg := delivery.Message{ChannelID: req.ChannelID, Card: c}
	if err != nil {
		msg = delivery.Message{ChannelID: req.ChannelID, Card: ErrorCard(err), Ephemeral: true}
	}
	if _, sendErr := s.channel.Send(ctx, msg); sendErr != nil {
		return ErrDelivery(req.ChannelID, sendErr)
	}
	return nil
}

// run wraps a command with a trace span, metrics and failure logging.
func (s *Service) run(ctx context.Context, command string, req Request, fn func(ctx context.Context) error) (err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "shop."+command,
		trace.WithAttributes(
			attribute.String("command.name", command),
			attribute.String("actor.id", req.Actor.ID),
			attribute.String("channel.id", req.ChannelID),
		),
	)
	defer func() {
		recordExecution(command, err, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if IsSystemError(err) {
				logging.LogError(ctx, s.logger, "command failed", err)
			} else {
				s.logger.DebugContext(ctx, "command rejected", "command", command, "code", Code(err), "error", err)
			}
		}
		span.End()
	}()

	return fn(ctx)
}

func (s *Service) table(name string) (types.Table, error) {
	tbl, err := s.store.GetTable(name)
	if err != nil {
		return nil, ErrStorage("opening "+name, err)
	}
	return tbl, nil
}

// authorize applies the access gate for a mutation of rec.
func (s *Service) authorize(req Request, kind string, rec types.Record) error {
	d := s.gate.Authorize(req.Actor, rec, access.CapabilityManage)
	if !d.Allowed {
		return ErrPermissionDenied(req.Actor.ID, kind, rec.RecordID())
	}
	return nil
}

// parseID returns the id in ref, or 0 when ref is not a positive integer.
func parseID(ref string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(ref), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// lookup finds one record of tbl by id or exact name. A numeric ref is an
// id first; when no record has that id it is matched as a name.
func lookup(tbl types.Table, kind, ref string) (any, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrValidation("Name the " + kind + " by id or name.")
	}
	if id := parseID(ref); id > 0 {
		rec, err := tbl.Get(id)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, types.ErrNotFound) {
			return nil, storeError("reading "+kind, kind, ref, err)
		}
	}

	matches, err := tbl.Fetch(types.Filter{"name": ref})
	if err != nil {
		return nil, storeError("reading "+kind, kind, ref, err)
	}
	switch len(matches) {
	case 0:
		return nil, ErrNotFound(kind, ref)
	case 1:
		return matches[0], nil
	default:
		return nil, ErrValidation("Several " + kind + "s are named " + strconv.Quote(ref) + ". Use the id instead.")
	}
}

func (s *Service) lookupNPC(ref string) (types.Table, *types.NPC, error) {
	tbl, err := s.table(types.NPCsTable)
	if err != nil {
		return nil, nil, err
	}
	rec, err := lookup(tbl, "NPC", ref)
	if err != nil {
		return nil, nil, err
	}
	return tbl, rec.(*types.NPC), nil
}

func (s *Service) lookupItem(ref string) (types.Table, *types.Item, error) {
	tbl, err := s.table(types.ItemsTable)
	if err != nil {
		return nil, nil, err
	}
	rec, err := lookup(tbl, "item", ref)
	if err != nil {
		return nil, nil, err
	}
	return tbl, rec.(*types.Item), nil
}

// inventory resolves an NPC's item ids, dropping dangling ones.
func (s *Service) inventory(npc *types.NPC) ([]*types.Item, error) {
	tbl, err := s.table(types.ItemsTable)
	if err != nil {
		return nil, err
	}
	recs, err := store.Resolve(tbl, npc.Inventory)
	if err != nil {
		return nil, ErrStorage("resolving inventory", err)
	}
	items := make([]*types.Item, 0, len(recs))
	for _, r := range recs {
		items = append(items, r.(*types.Item))
	}
	return items, nil
}

func (s *Service) npcCard(npc *types.NPC) (card.Card, error) {
	items, err := s.inventory(npc)
	if err != nil {
		return card.Card{}, err
	}
	return card.NPC(npc, items), nil
}
