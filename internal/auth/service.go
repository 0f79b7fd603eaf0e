// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

package auth

// Service bundles every use case built from one set of dependencies.
type Service struct {
	Register      *RegisterUser
	Authenticate  *AuthenticateUser
	Refresh       *RefreshSession
	Logout        *Logout
	RequestReset  *RequestPasswordReset
	ResetPassword *ResetPassword
	Authorize     *Authorize
	SetStatus     *SetUserStatus
}

// NewService builds all use cases. Every collaborator except Mailer is required.
func NewService(deps Dependencies) (*Service, error) {
	deps, err := deps.prepare(needUsers | needTokens | needHasher | needIssuer)
	if err != nil {
		return nil, err
	}

	s := &Service{}
	if s.Register, err = NewRegisterUser(deps); err != nil {
		return nil, err
	}
	if s.Authenticate, err = NewAuthenticateUser(deps); err != nil {
		return nil, err
	}
	if s.Refresh, err = NewRefreshSession(deps); err != nil {
		return nil, err
	}
	if s.Logout, err = NewLogout(deps); err != nil {
		return nil, err
	}
	if s.RequestReset, err = NewRequestPasswordReset(deps); err != nil {
		return nil, err
	}
	if s.ResetPassword, err = NewResetPassword(deps); err != nil {
		return nil, err
	}
	if s.Authorize, err = NewAuthorize(deps); err != nil {
		return nil, err
	}
	if s.SetStatus, err = NewSetUserStatus(deps); err != nil {
		return nil, err
	}
	return s, nil
}
