package shop

import (
	"fmt"

	"github.com/mesh-intelligence/shopkeeper/internal/card"
	"github.com/mesh-intelligence/shopkeeper/internal/paginate"
)

// Browser is an interactive paginated reply. The delivery surface shows
// Card and forwards control ids to Handle.
type Browser interface {
	// Card renders the current page.
	Card() card.Card

	// Handle applies a control action and renders the result. Actions on a
	// closed or expired browser return paginate.ErrInactive with the last
	// card still rendered.
	Handle(action string) (card.Card, error)

	// State reports whether the browser is active, expired or closed.
	State() paginate.State

	// Stop releases the idle timer.
	Stop()
}

// listing is a Browser over pre-rendered elements of type T.
type listing[T any] struct {
	view   *paginate.View[T]
	render func(paginate.Frame[T]) card.Card
}

var _ Browser = (*listing[card.Field])(nil)

func (l *listing[T]) Card() card.Card { return l.render(l.view.Frame()) }

func (l *listing[T]) Handle(action string) (card.Card, error) {
	f, err := l.view.Handle(action)
	return l.render(f), err
}

func (l *listing[T]) State() paginate.State { return l.view.State() }

func (l *listing[T]) Stop() { l.view.Stop() }

// newSummaryListing pages summary lines under a title.
func (s *Service) newSummaryListing(title string, fields []card.Field) *listing[card.Field] {
	return &listing[card.Field]{
		view: paginate.NewView(fields,
			paginate.WithPageSize(s.pageSize),
			paginate.WithTimeout(s.viewTimeout),
		),
		render: func(f paginate.Frame[card.Field]) card.Card {
			c := card.List(title, f.Items, f.Page, f.Pages)
			c.Controls = f.Controls
			if f.State == paginate.Expired {
				c.Footer += " · expired"
			}
			return c
		},
	}
}

// newShopListing pages one item card at a time with a close control.
func (s *Service) newShopListing(shopName string, items []card.Card) *listing[card.Card] {
	return &listing[card.Card]{
		view: paginate.NewView(items,
			paginate.WithPageSize(1),
			paginate.WithTimeout(s.viewTimeout),
			paginate.WithClose(),
		),
		render: func(f paginate.Frame[card.Card]) card.Card {
			if f.State == paginate.Closed || len(f.Items) == 0 {
				return card.Notice(shopName, "The shop is closed.")
			}
			c := f.Items[0]
			c.Controls = f.Controls
			c.Footer = fmt.Sprintf("%s · Item %d/%d", shopName, f.Page, f.Pages)
			if f.State == paginate.Expired {
				c.Footer += " · expired"
			}
			return c
		},
	}
}
