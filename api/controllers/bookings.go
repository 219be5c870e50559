package controllers

import (
	"net/http"

	"github.com/craftlane/craftlane-backend/api/responses"
	"github.com/craftlane/craftlane-backend/internal/bookings"
	pkgerrors "github.com/craftlane/craftlane-backend/pkg/errors"
	"github.com/craftlane/craftlane-backend/pkg/logger"
)

// BookingsListMine returns service bookings the actor purchased.
func BookingsListMine(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingsList(svc, logg, false)
}

// BookingsListSales returns service bookings the actor sells.
func BookingsListSales(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingsList(svc, logg, true)
}

func bookingsList(svc bookings.Service, logg *logger.Logger, sales bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bookings service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		actor := bookings.Actor{UserID: p.UserID, Role: p.Role}
		var items any
		if sales {
			items, err = svc.ListSales(ctx, actor, params)
		} else {
			items, err = svc.ListMine(ctx, actor, params)
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// BookingsGet returns one booking visible to the actor.
func BookingsGet(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bookings service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "bookingId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		booking, err := svc.Get(ctx, bookings.Actor{UserID: p.UserID, Role: p.Role}, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

// BookingsStart moves a scheduled booking into progress.
func BookingsStart(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingTransition(svc, logg, "start")
}

// BookingsComplete finishes an in-progress booking.
func BookingsComplete(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingTransition(svc, logg, "complete")
}

// BookingsCancel cancels a not-yet-started booking and unwinds its escrow.
func BookingsCancel(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return bookingTransition(svc, logg, "cancel")
}

func bookingTransition(svc bookings.Service, logg *logger.Logger, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bookings service unavailable"))
			return
		}
		p, err := principalFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "bookingId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		actor := bookings.Actor{UserID: p.UserID, Role: p.Role}
		switch action {
		case "start":
			err = svc.Start(ctx, actor, id)
		case "complete":
			err = svc.Complete(ctx, actor, id)
		default:
			err = svc.Cancel(ctx, actor, id)
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
