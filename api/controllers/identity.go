package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/berryevents69/Berry-Events-sub000/api/middleware"
	"github.com/berryevents69/Berry-Events-sub000/pkg/auth"
	pkgerrors "github.com/berryevents69/Berry-Events-sub000/pkg/errors"
)

func callerIdentity(r *http.Request) (auth.Identity, error) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok || !identity.Valid() {
		return auth.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return identity, nil
}

func callerUserID(r *http.Request) (uuid.UUID, error) {
	identity, err := callerIdentity(r)
	if err != nil {
		return uuid.Nil, err
	}
	if identity.UserID == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "sign in required")
	}
	return *identity.UserID, nil
}
