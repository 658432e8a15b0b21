package testutil

import (
	"net/http"

	id "breachledger/pkg/domain"
	"breachledger/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context, as the auth middleware
// would. Invalid UUIDs are ignored.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsed, err := id.ParseUserID(userID); err == nil {
		return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
	}
	return req
}

// WithOrganizationID adds the caller's organization to the request context.
// Invalid UUIDs are ignored.
func WithOrganizationID(req *http.Request, orgID string) *http.Request {
	if parsed, err := id.ParseOrganizationID(orgID); err == nil {
		return req.WithContext(requestcontext.WithOrganizationID(req.Context(), parsed))
	}
	return req
}

// WithAuth adds both identities: the typical state of an authenticated request.
func WithAuth(req *http.Request, userID, orgID string) *http.Request {
	return WithOrganizationID(WithUserID(req, userID), orgID)
}
