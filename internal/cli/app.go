package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mesh-intelligence/shopkeeper/internal/access"
	"github.com/mesh-intelligence/shopkeeper/internal/card"
	"github.com/mesh-intelligence/shopkeeper/internal/delivery"
	"github.com/mesh-intelligence/shopkeeper/internal/logging"
	"github.com/mesh-intelligence/shopkeeper/internal/paginate"
	"github.com/mesh-intelligence/shopkeeper/internal/paths"
	"github.com/mesh-intelligence/shopkeeper/internal/session"
	"github.com/mesh-intelligence/shopkeeper/internal/shop"
	"github.com/mesh-intelligence/shopkeeper/internal/store"
)

// app is the state shared by the commands of one invocation or one console
// session.
type app struct {
	flags    rootFlags
	settings settings
	logger   *slog.Logger

	backend *store.Backend
	svc     *shop.Service

	out    io.Writer
	errOut io.Writer

	// Console only: the open browser and the flow being filled in.
	interactive bool
	browser     shop.Browser
	flowID      string
}

// loadSettings resolves directories, reads config.yaml and sets up logging.
func (a *app) loadSettings() error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return shop.ErrStorage("resolving config dir", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return shop.ErrStorage("loading config", err)
	}
	s := readSettings(v)

	s.DataDir, err = paths.ResolveDataDir(a.flags.dataDir, s.DataDir, configDir)
	if err != nil {
		return shop.ErrStorage("resolving data dir", err)
	}
	a.settings = s

	a.logger, err = logging.New(logging.Options{
		Service: "shopkeeper",
		Version: Version,
		Format:  s.LogFormat,
		Level:   s.LogLevel,
		Output:  a.errOut,
	})
	if err != nil {
		return shop.ErrValidation(fmt.Sprintf("Invalid logging settings in config.yaml: %v.", err))
	}
	return nil
}

// open attaches the store and builds the service.
func (a *app) open() error {
	gate, err := access.NewGate(a.settings.Grants)
	if err != nil {
		return shop.ErrValidation(fmt.Sprintf("Invalid grants in config.yaml: %v", err))
	}

	backend := store.NewBackend()
	if err := backend.Attach(a.settings.storeConfig()); err != nil {
		return shop.ErrStorage("attaching store", err)
	}
	a.backend = backend

	a.svc = shop.New(backend, gate, delivery.NewConsole(a.out, a.flags.jsonMode),
		shop.WithLogger(a.logger),
		shop.WithSessions(session.NewManager(session.WithTimeout(a.settings.FlowTimeout))),
		shop.WithPageSize(a.settings.PageSize),
		shop.WithViewTimeout(a.settings.ViewTimeout),
		shop.WithChannels(a.settings.Channels),
	)
	a.logger.Debug("store attached", "backend", a.settings.Backend, "data_dir", a.settings.DataDir)
	return nil
}

// close stops the open browser and detaches the store. It is safe to call
// more than once.
func (a *app) close() error {
	if a.browser != nil {
		a.browser.Stop()
		a.browser = nil
	}
	if a.backend == nil {
		return nil
	}
	err := a.backend.Detach()
	a.backend = nil
	if err != nil {
		return shop.ErrStorage("detaching store", err)
	}
	return nil
}

// request builds the shop request for the current actor and channel.
func (a *app) request() shop.Request {
	actor := a.flags.actor
	if actor == "" {
		actor = a.settings.Actor
	}
	return shop.Request{
		Actor:     access.Actor{ID: actor, Permissions: a.flags.perms},
		ChannelID: strings.TrimPrefix(strings.TrimSpace(a.flags.channel), "#"),
	}
}

// show delivers one card to the current channel.
func (a *app) show(ctx context.Context, c card.Card) error {
	return a.svc.Deliver(ctx, a.request(), c, nil)
}

// browse shows a browser. The console keeps it open for next, prev and
// close; a one-shot command prints every page and stops it.
func (a *app) browse(ctx context.Context, b shop.Browser) error {
	if a.interactive {
		if a.browser != nil {
			a.browser.Stop()
		}
		a.browser = b
		return a.show(ctx, b.Card())
	}

	defer b.Stop()
	c := b.Card()
	for {
		more := controlEnabled(c, paginate.ActionNext)
		c.Controls = nil
		if err := a.show(ctx, c); err != nil {
			return err
		}
		if !more {
			return nil
		}
		next, err := b.Handle(paginate.ActionNext)
		if err != nil {
			return err
		}
		c = next
	}
}

func controlEnabled(c card.Card, id string) bool {
	for _, ctl := range c.Controls {
		if ctl.ID == id {
			return !ctl.Disabled
		}
	}
	return false
}
