package jwttoken

import (
	authmw "breachledger/pkg/platform/middleware/auth"
)

// MiddlewareValidator lets the auth middleware validate tokens without
// depending on the jwt library.
type MiddlewareValidator struct {
	service *JWTService
}

func NewMiddlewareValidator(service *JWTService) *MiddlewareValidator {
	return &MiddlewareValidator{service: service}
}

func (v *MiddlewareValidator) ValidateToken(raw string) (*authmw.JWTClaims, error) {
	claims, err := v.service.ValidateToken(raw)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{UserID: claims.Subject, OrganizationID: claims.OrganizationID}, nil
}
