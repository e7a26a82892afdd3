package shop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shopkeeper/internal/access"
	"github.com/mesh-intelligence/shopkeeper/internal/card"
	"github.com/mesh-intelligence/shopkeeper/internal/delivery"
	"github.com/mesh-intelligence/shopkeeper/internal/paginate"
	"github.com/mesh-intelligence/shopkeeper/internal/session"
	"github.com/mesh-intelligence/shopkeeper/internal/store"
	"github.com/mesh-intelligence/shopkeeper/pkg/types"
)

var (
	actorA = access.Actor{ID: "A"}
	actorB = access.Actor{ID: "B"}
	actorC = access.Actor{ID: "C", Permissions: []string{"manage"}}
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc      *Service
	store    *store.Backend
	recorder *delivery.Recorder
	clock    *testClock
}

func setupService(t *testing.T, config types.Config, opts ...Option) *fixture {
	t.Helper()
	if config.Backend == "" {
		config.Backend = types.BackendMemory
	}
	config.DataDir = t.TempDir()

	b := store.NewBackend()
	require.NoError(t, b.Attach(config))
	t.Cleanup(func() { b.Detach() })

	gate, err := access.NewGate(nil)
	require.NoError(t, err)

	clock := &testClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	rec := &delivery.Recorder{}
	base := []Option{
		WithSessions(session.NewManager(session.WithTimeout(time.Minute), session.WithClock(clock.Now))),
		WithViewTimeout(time.Minute),
	}
	svc := New(b, gate, rec, append(base, opts...)...)
	return &fixture{svc: svc, store: b, recorder: rec, clock: clock}
}

func (f *fixture) fetch(t *testing.T, table string) []any {
	t.Helper()
	tbl, err := f.store.GetTable(table)
	require.NoError(t, err)
	all, err := tbl.Fetch(nil)
	require.NoError(t, err)
	return all
}

func req(actor access.Actor, channel string) Request {
	return Request{Actor: actor, ChannelID: channel}
}

func stopBrowser(t *testing.T, b Browser) {
	t.Helper()
	if b != nil {
		t.Cleanup(b.Stop)
	}
}

func TestHerreroScenario(t *testing.T) {
	f := setupService(t, types.Config{})
	ctx := context.Background()

	_, err := f.svc.CreateNPC(ctx, req(actorB, ""), NewNPC{
		Name: "Herrero", Dialogue: "¿Qué forjamos hoy?", Role: "Aliado", Items: "Espada,10;Escudo,5",
	})
	require.NoError(t, err)

	npcs := f.fetch(t, types.NPCsTable)
	require.Len(t, npcs, 1)
	npc := npcs[0].(*types.NPC)
	assert.Equal(t, "Herrero", npc.Name)
	assert.Equal(t, "B", npc.CreatorID)

	shown, err := f.svc.ShowNPC(ctx, req(actorA, ""), "Herrero")
	require.NoError(t, err)
	assert.Contains(t, shown.Fields, card.Field{Label: "Inventory", Value: "Espada (1)\nEscudo (2)"})

	items := f.fetch(t, types.ItemsTable)
	require.Len(t, items, 2)
	assert.Equal(t, "price:10", items[0].(*types.Item).Properties)
	assert.Equal(t, "shop", items[1].(*types.Item).Category)

	list, err := f.svc.ListNPCs(ctx, req(actorA, ""), nil)
	require.NoError(t, err)
	stopBrowser(t, list)
	require.Len(t, list.Card().Fields, 1)
	assert.Equal(t, "Herrero (1)", list.Card().Fields[0].Label)

	_, err = f.svc.DeleteNPC(ctx, req(actorB, ""), "Herrero")
	require.NoError(t, err)

	_, err = f.svc.ListNPCs(ctx, req(actorA, ""), nil)
	assert.Equal(t, CodeEmpty, Code(err))
	assert.Len(t, f.fetch(t, types.ItemsTable), 2, "deleting an NPC keeps its items")
}

func TestInvokeNPC(t *testing.T) {
	f := setupService(t, types.Config{})
	ctx := context.Background()

	_, err := f.svc.CreateNPC(ctx, req(actorB, ""), NewNPC{Name: "Herrero", Role: "Aliado"})
	require.NoError(t, err)
	_, err = f.svc.CreateNPC(ctx, req(actorB, ""), NewNPC{Name: "Bruja", Role: "Neutral"})
	require.NoError(t, err)

	t.Run("unassigned answers anywhere", func(t *testing.T) {
		cards, err := f.svc.InvokeNPC(ctx, req(actorA, "plaza"), "Bruja")
		require.NoError(t, err)
		require.Len(t, cards, 1)
		assert.Equal(t, "Bruja", cards[0].Title)
	})

	_, err = f.svc.AssignChannel(ctx, req(actorB, ""), "Herrero", "#forja")
	require.NoError(t, err)

	t.Run("wrong channel renders nothing", func(t *testing.T) {
		cards, err := f.svc.InvokeNPC(ctx, req(actorA, "taberna"), "Herrero")
		assert.Equal(t, CodeWrongChannel, Code(err))
		assert.Equal(t, "This NPC is not available in this channel.", PlayerMessage(err))
		assert.Nil(t, cards)
	})

	t.Run("assigned channel answers", func(t *testing.T) {
		cards, err := f.svc.InvokeNPC(ctx, req(actorA, "forja"), "Herrero")
		require.NoError(t, err)
		require.Len(t, cards, 1)
		assert.Contains(t, cards[0].Fields, card.Field{Label: "Channel", Value: "#forja"})
	})

	t.Run("without a name lists the channel's NPCs", func(t *testing.T) {
		cards, err := f.svc.InvokeNPC(ctx, req(actorA, "forja"), "")
		require.NoError(t, err)
		require.Len(t, cards, 1)
		assert.Equal(t, "Herrero", cards[0].Title)

		_, err = f.svc.InvokeNPC(ctx, req(actorA, "desierto"), "")
		assert.Equal(t, CodeEmpty, Code(err))
	})
}

func TestAuthorization(t *testing.T) {
	tests := []struct {
		name     string
		actor    access.Actor
		wantCode string
	}{
		{name: "stranger denied", actor: actorA, wantCode: CodePermissionDenied},
		{name: "creator allowed", actor: actorB},
		{name: "manager allowed", actor: actorC},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupService(t, types.Config{})
			ctx := context.Background()
			_, err := f.svc.CreateNPC(ctx, req(actorB, ""), NewNPC{Name: "Herrero", Dialogue: "Hola"})
			require.NoError(t, err)

			_, err = f.svc.EditNPC(ctx, req(tt.actor, ""), "1", map[string]string{"dialogue": "Adiós"})
			assert.Equal(t, tt.wantCode, Code(err))

			_, err = f.svc.DeleteNPC(ctx, req(tt.actor, ""), "1")
			assert.Equal(t, tt.wantCode, Code(err))

			want := 0
			if tt.wantCode != "" {
				want = 1
			}
			assert.Len(t, f.fetch(t, types.NPCsTable), want)
		})
	}
}

func TestEditNPC(t *testing.T) {
	f := setupService(t, types.Config{})
	ctx := context.Background()
	_, err := f.svc.CreateNPC(ctx, req(actorB, ""), NewNPC{Name: "Herrero", Dialogue: "Hola", Role: "Aliado"})
	require.NoError(t, err)

	c, err := f.svc.EditNPC(ctx, req(actorB, ""), "Herrero", map[string]string{"dialogue": "Bienvenido", "mood": "happy"})
	require.NoError(t, err)
	assert.Equal(t, "Bienvenido", c.Body)
	assert.Contains(t, c.Fields, card.Field{Label: "Role", Value: "Aliado"})

	_, err = f.svc.EditNPC(ctx, req(actorB, ""), "Herrero", map[string]string{"name": ""})
	assert.Equal(t, CodeValidation, Code(err))
}

func TestCreateNPCValidation(t *testing.T) {
	tests := []struct {
		name string
		in   NewNPC
	}{
		{name: "missing price", in: NewNPC{Name: "Herrero", Items: "Espada"}},
		{name: "too many parts", in: NewNPC{Name: "Herrero", Items: "Espada,10,img,extra"}},
		{name: "blank npc name", in: NewNPC{Name: "  ", Items: "Espada,10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupService(t, types.Config{})
			_, err := f.svc.CreateNPC(context.Background(), req(actorB, ""), tt.in)
			assert.Equal(t, CodeValidation, Code(err))
			assert.Empty(t, f.fetch(t, types.NPCsTable))
			assert.Empty(t, f.fetch(t, types.ItemsTable), "no item is created for a rejected NPC")
		})
	}
}

func TestCreateNPCDuplicateRemovesItems(t *testing.T) {
	f := setupService(t, types.Config{UniqueNames: true})
	ctx := context.Background()

	_, err := f.svc.CreateNPC(ctx, req(actorB, ""), NewNPC{Name: "Herrero", Items: "Espada,10"})
	require.NoError(t, err)

	_, err = f.svc.CreateNPC(ctx, req(actorB, ""), NewNPC{Name: "Herrero", Items: "Martillo,3;Yunque,50"})
	assert.Equal(t, CodeDuplicate, Code(err))
	assert.Contains(t, PlayerMessage(err), "already exists")

	assert.Len(t, f.fetch(t, types.NPCsTable), 1)
	assert.Len(t, f.fetch(t, types.ItemsTable), 1)
}

func TestAmbiguousName(t *testing.T) {
	f := setupService(t, types.Config{})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := f.svc.CreateNPC(ctx, req(actorB, ""), NewNPC{Name: "Guardia"})
		require.NoError(t, err)
	}

	_, err := f.svc.ShowNPC(ctx, req(actorA, ""), "Guardia")
	assert.Equal(t, CodeValidation, Code(err))
	assert.Contains(t, PlayerMessage(err), "Use the id")

	c, err := f.svc.ShowNPC(ctx, req(actorA, ""), "2")
	require.NoError(t, err)
	assert.Equal(t, "Guardia", c.Title)

	_, err = f.svc.ShowNPC(ctx, req(actorA, ""), "Nadie")
	assert.Equal(t, CodeNotFound, Code(err))
}

func TestInventoryCommands(t *testing.T) {
	f := setupService(t, types.Config{})
	ctx := context.Background()

	_, err := f.svc.CreateNPC(ctx, req(actorB, ""), NewNPC{Name: "Herrero"})
	require.NoError(t, err)
	_, err = f.svc.CreateItem(ctx, req(actorB, ""), NewItem{Name: "Espada", Category: "arma", Properties: "price:10"})
	require.NoError(t, err)
	_, err = f.svc.CreateItem(ctx, req(actorB, ""), NewItem{Name: "Escudo", Category: "armadura"})
	require.NoError(t, err)

	_, err = f.svc.AddItemToNPC(ctx, req(actorB, ""), "Herrero", "Espada")
	require.NoError(t, err)
	_, err = f.svc.AddItemToNPC(ctx, req(actorB, ""), "Herrero", "2")
	require.NoError(t, err)

	_, err = f.svc.AddItemToNPC(ctx, req(actorB, ""), "Herrero", "Espada")
	assert.Equal(t, CodeValidation, Code(err), "an item is stocked once")
	_, err = f.svc.AddItemToNPC(ctx, req(actorA, ""), "Herrero", "Espada")
	assert.Equal(t, CodePermissionDenied, Code(err))
	_, err = f.svc.AddItemToNPC(ctx, req(actorB, ""), "Herrero", "Arco")
	assert.Equal(t, CodeNotFound, Code(err))

	_, err = f.svc.DeleteItem(ctx, req(actorB, ""), "Espada")
	require.NoError(t, err)

	c, err := f.svc.ShowNPC(ctx, req(actorA, ""), "Herrero")
	require.NoError(t, err)
	assert.Contains(t, c.Fields, card.Field{Label: "Inventory", Value: "Escudo (2)"}, "dangling ids are skipped")

	_, err = f.svc.RemoveItemFromNPC(ctx, req(actorB, ""), "Herrero", "1")
	require.NoError(t, err, "a dangling id can be removed by number")
	_, err = f.svc.RemoveItemFromNPC(ctx, req(actorB, ""), "Herrero", "1")
	assert.Equal(t, CodeNotFound, Code(err))

	npc := f.fetch(t, types.NPCsTable)[0].(*types.NPC)
	assert.Equal(t, []int64{2}, npc.Inventory)
}

func TestItemCommands(t *testing.T) {
	f := setupService(t, types.Config{}, WithPageSize(2))
	ctx := context.Background()

	for _, name := range []string{"Espada", "Escudo", "Arco"} {
		_, err := f.svc.CreateItem(ctx, req(actorB, ""), NewItem{Name: name, Category: "arma"})
		require.NoError(t, err)
	}

	c, err := f.svc.EditItem(ctx, req(actorC, ""), "Arco", map[string]string{"properties": "price:7;range:long"})
	require.NoError(t, err)
	assert.Contains(t, c.Fields, card.Field{Label: "Properties", Value: "price: 7\nrange: long"})

	_, err = f.svc.EditItem(ctx, req(actorA, ""), "Arco", map[string]string{"name": "Ballesta"})
	assert.Equal(t, CodePermissionDenied, Code(err))

	list, err := f.svc.ListItems(ctx, req(actorA, ""), types.Filter{"category": "arma"})
	require.NoError(t, err)
	stopBrowser(t, list)
	assert.Len(t, list.Card().Fields, 2)
	assert.Equal(t, "Page 1/2", list.Card().Footer)

	next, err := list.Handle(paginate.ActionNext)
	require.NoError(t, err)
	assert.Len(t, next.Fields, 1)

	_, err = f.svc.ListItems(ctx, req(actorA, ""), types.Filter{"colour": "red"})
	assert.Equal(t, CodeValidation, Code(err))

	shown, err := f.svc.ShowItem(ctx, req(actorA, ""), "Espada")
	require.NoError(t, err)
	assert.Equal(t, "Espada", shown.Title)
}

func TestShopItems(t *testing.T) {
	f := setupService(t, types.Config{})
	ctx := context.Background()

	_, err := f.svc.CreateNPC(ctx, req(actorB, ""), NewNPC{Name: "Herrero", Items: "Espada,10;Escudo,5"})
	require.NoError(t, err)
	_, err = f.svc.CreateNPC(ctx, req(actorB, ""), NewNPC{Name: "Mendigo"})
	require.NoError(t, err)

	b, err := f.svc.ShopItems(ctx, req(actorA, ""), "Herrero")
	require.NoError(t, err)
	stopBrowser(t, b)

	first := b.Card()
	assert.Equal(t, "Espada", first.Title)
	assert.Equal(t, "Herrero · Item 1/2", first.Footer)
	require.Len(t, first.Controls, 3)

	second, err := b.Handle(paginate.ActionNext)
	require.NoError(t, err)
	assert.Equal(t, "Escudo", second.Title)

	closed, err := b.Handle(paginate.ActionClose)
	require.NoError(t, err)
	assert.Equal(t, "The shop is closed.", closed.Body)
	assert.Equal(t, paginate.Closed, b.State())

	_, err = b.Handle(paginate.ActionPrevious)
	assert.ErrorIs(t, err, paginate.ErrInactive)

	_, err = f.svc.ShopItems(ctx, req(actorA, ""), "Mendigo")
	assert.Equal(t, CodeEmpty, Code(err))
}

func TestPublishNPC(t *testing.T) {
	f := setupService(t, types.Config{})
	ctx := context.Background()

	_, err := f.svc.CreateNPC(ctx, req(actorB, ""), NewNPC{Name: "Herrero"})
	require.NoError(t, err)

	_, err = f.svc.PublishNPC(ctx, req(actorB, ""), "Herrero")
	assert.Equal(t, CodeValidation, Code(err), "needs a channel first")

	_, err = f.svc.AssignChannel(ctx, req(actorB, ""), "Herrero", "forja")
	require.NoError(t, err)
	_, err = f.svc.PublishNPC(ctx, req(actorB, ""), "Herrero")
	require.NoError(t, err)

	sent, ok := f.recorder.Last()
	require.True(t, ok)
	assert.Equal(t, "forja", sent.ChannelID)
	assert.Equal(t, "Herrero", sent.Card.Title)

	npc := f.fetch(t, types.NPCsTable)[0].(*types.NPC)
	assert.Equal(t, sent.ID, npc.PostedMessageID)
}

func TestDeliver(t *testing.T) {
	f := setupService(t, types.Config{})
	ctx := context.Background()

	_, err := f.svc.ShowNPC(ctx, req(actorA, "plaza"), "Nadie")
	require.Error(t, err)
	require.NoError(t, f.svc.Deliver(ctx, req(actorA, "plaza"), card.Card{}, err))

	sent, ok := f.recorder.Last()
	require.True(t, ok)
	assert.True(t, sent.Ephemeral)
	assert.Equal(t, card.KindError, sent.Card.Kind)
	assert.Equal(t, `No NPC matches "Nadie".`, sent.Card.Body)
}

func TestNumericNames(t *testing.T) {
	f := setupService(t, types.Config{})
	ctx := context.Background()

	_, err := f.svc.CreateNPC(ctx, req(actorB, ""), NewNPC{Name: "Herrero"})
	require.NoError(t, err)
	_, err = f.svc.CreateNPC(ctx, req(actorB, ""), NewNPC{Name: "2077"})
	require.NoError(t, err)

	c, err := f.svc.ShowNPC(ctx, req(actorA, ""), "2077")
	require.NoError(t, err, "no record has id 2077, so the name matches")
	assert.Equal(t, "2077", c.Title)

	c, err = f.svc.ShowNPC(ctx, req(actorA, ""), "1")
	require.NoError(t, err)
	assert.Equal(t, "Herrero", c.Title, "an existing id wins")

	_, err = f.svc.DeleteNPC(ctx, req(actorB, ""), "2077")
	require.NoError(t, err)
	_, err = f.svc.ShowNPC(ctx, req(actorA, ""), "2077")
	assert.Equal(t, CodeNotFound, Code(err))

	_, err = f.svc.CreateItem(ctx, req(actorB, ""), NewItem{Name: "42", Properties: "price:1"})
	require.NoError(t, err)
	item, err := f.svc.ShowItem(ctx, req(actorA, ""), "42")
	require.NoError(t, err)
	assert.Equal(t, "42", item.Title)
}

func TestChannelRuleWithoutChannel(t *testing.T) {
	f := setupService(t, types.Config{})
	ctx := context.Background()

	_, err := f.svc.CreateNPC(ctx, req(actorB, ""), NewNPC{Name: "Herrero", ChannelID: "forja", Items: "Espada,10"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		channel string
		want    string
	}{
		{name: "assigned channel", channel: "forja"},
		{name: "other channel", channel: "plaza", want: CodeWrongChannel},
		{name: "no channel", channel: "", want: CodeWrongChannel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.InvokeNPC(ctx, req(actorA, tt.channel), "Herrero")
			assert.Equal(t, tt.want, Code(err), "invoke")

			b, err := f.svc.ShopItems(ctx, req(actorA, tt.channel), "Herrero")
			stopBrowser(t, b)
			assert.Equal(t, tt.want, Code(err), "shop")
		})
	}
}

// blockingChannel holds every Send until release is closed.
type blockingChannel struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (c *blockingChannel) Send(ctx context.Context, msg delivery.Message) (string, error) {
	c.once.Do(func() { close(c.entered) })
	select {
	case <-c.release:
		return "msg-1", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestPublishDoesNotBlockEdits(t *testing.T) {
	f := setupService(t, types.Config{})
	ctx := context.Background()
	_, err := f.svc.CreateNPC(ctx, req(actorB, ""), NewNPC{Name: "Herrero", ChannelID: "forja"})
	require.NoError(t, err)

	gate, err := access.NewGate(nil)
	require.NoError(t, err)
	ch := &blockingChannel{entered: make(chan struct{}), release: make(chan struct{})}
	svc := New(f.store, gate, ch)

	done := make(chan error, 1)
	go func() {
		_, err := svc.PublishNPC(ctx, req(actorB, "forja"), "Herrero")
		done <- err
	}()
	<-ch.entered

	edited := make(chan error, 1)
	go func() {
		_, err := svc.EditNPC(ctx, req(actorB, ""), "Herrero", map[string]string{"dialogue": "Bienvenido"})
		edited <- err
	}()
	select {
	case err := <-edited:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("edit waited for the delivery channel")
	}

	close(ch.release)
	require.NoError(t, <-done)

	npc := f.fetch(t, types.NPCsTable)[0].(*types.NPC)
	assert.Equal(t, "msg-1", npc.PostedMessageID)
	assert.Equal(t, "Bienvenido", npc.Dialogue)
}

// failingMedium fails every Save while fail is set.
type failingMedium struct {
	store.Medium
	fail atomic.Bool
}

func (m *failingMedium) Save(table string, snap store.Snapshot) error {
	if m.fail.Load() {
		return errors.New("disk full")
	}
	return m.Medium.Save(table, snap)
}

func TestStorageFailure(t *testing.T) {
	config := types.Config{Backend: types.BackendMemory}
	inner, err := store.OpenMedium(config)
	require.NoError(t, err)
	m := &failingMedium{Medium: inner}

	b := store.NewBackend()
	require.NoError(t, b.AttachMedium(config, m))
	t.Cleanup(func() { b.Detach() })
	gate, err := access.NewGate(nil)
	require.NoError(t, err)
	svc := New(b, gate, &delivery.Recorder{})
	ctx := context.Background()

	_, err = svc.CreateNPC(ctx, req(actorB, ""), NewNPC{Name: "Herrero", Dialogue: "Hola"})
	require.NoError(t, err)

	m.fail.Store(true)
	_, err = svc.EditNPC(ctx, req(actorB, ""), "Herrero", map[string]string{"dialogue": "Adiós"})
	assert.Equal(t, CodeStorage, Code(err))
	assert.True(t, IsSystemError(err))
	assert.Equal(t, "Something went wrong. Try again.", PlayerMessage(err))

	_, err = svc.CreateItem(ctx, req(actorB, ""), NewItem{Name: "Espada"})
	assert.Equal(t, CodeStorage, Code(err))
	_, err = svc.DeleteNPC(ctx, req(actorB, ""), "Herrero")
	assert.Equal(t, CodeStorage, Code(err))
	m.fail.Store(false)

	c, err := svc.ShowNPC(ctx, req(actorA, ""), "Herrero")
	require.NoError(t, err)
	assert.Equal(t, "Hola", c.Body)
}
