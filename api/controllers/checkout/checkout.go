package checkout

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/controllers/cart"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Request carries the items to pay for. Authenticated buyers may omit items to
// check out their stored cart.
type Request struct {
	Email string            `json:"email" validate:"omitempty,email,max=254"`
	Items []cartLineRequest `json:"items" validate:"omitempty,max=100,dive"`
}

type cartLineRequest struct {
	cart.AddItemRequest
	Quantity int `json:"quantity" validate:"required,gte=1,lte=999"`
}

// Initiate opens a hosted checkout session and returns its redirect URL. No
// order is written; the webhook owns order creation.
func Initiate(svc checkoutsvc.Service, carts cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		ctx := r.Context()
		buyerID := middleware.BuyerIDFromContext(ctx)

		var payload Request
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		items, err := payload.items()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if len(items) == 0 && buyerID != "" && carts != nil {
			snapshot, err := carts.Get(ctx, buyerID)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			items = snapshot.Items
		}

		email := strings.TrimSpace(payload.Email)
		if email == "" {
			email = middleware.BuyerEmailFromContext(ctx)
		}

		session, err := svc.Initiate(ctx, checkoutsvc.Request{
			BuyerID: buyerID,
			Email:   email,
			Items:   items,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}

// Success clears the buyer's cart after the processor redirects back. It does
// not confirm or create an order.
func Success(carts cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		ctx := r.Context()
		if err := carts.Clear(ctx, middleware.BuyerIDFromContext(ctx)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			if sessionID := strings.TrimSpace(r.URL.Query().Get("session_id")); sessionID != "" {
				ctx = logg.WithSessionID(ctx, sessionID)
			}
			logg.Info(ctx, "cart cleared after checkout redirect")
		}
		responses.WriteSuccess(w, map[string]bool{"cart_cleared": true})
	}
}

func (r Request) items() ([]cartsvc.Item, error) {
	items := make([]cartsvc.Item, 0, len(r.Items))
	for _, line := range r.Items {
		item, err := line.ToItem()
		if err != nil {
			return nil, err
		}
		item.Quantity = line.Quantity
		items = append(items, item)
	}
	return items, nil
}
