package http

import (
	"errors"
	"net/http"

	"fintrack/internal/auth"
	"fintrack/internal/log"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// mfaChallengeResponse is the 401 body for a sign-in interrupted by
// multi-factor verification. The resolver token resumes it.
type mfaChallengeResponse struct {
	Error         string            `json:"error"`
	Factors       []auth.FactorHint `json:"factors"`
	ResolverToken string            `json:"resolver_token"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	session, token, err := s.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "User signed up", log.FieldUserID, session.UserID)
	writeJSON(w, http.StatusCreated, sessionResponse{
		Token: token,
		User:  userPayload{ID: session.UserID, Email: session.Email},
	})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	session, token, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		var mfa *auth.MFARequiredError
		if errors.As(err, &mfa) {
			writeJSON(w, http.StatusUnauthorized, mfaChallengeResponse{
				Error:         "mfa_required",
				Factors:       mfa.Hints,
				ResolverToken: mfa.Resolver.Token,
			})
			return
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{
		Token: token,
		User:  userPayload{ID: session.UserID, Email: session.Email},
	})
}

type mfaResolveRequest struct {
	ResolverToken string `json:"resolver_token"`
	FactorID      string `json:"factor_id"`
	Code          string `json:"code"`
}

func (s *Server) handleMFAResolve(w http.ResponseWriter, r *http.Request) {
	var req mfaResolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	session, token, err := s.auth.ResolveMFA(r.Context(), req.ResolverToken, req.FactorID, req.Code)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "MFA challenge resolved", log.FieldUserID, session.UserID)
	writeJSON(w, http.StatusOK, sessionResponse{
		Token: token,
		User:  userPayload{ID: session.UserID, Email: session.Email},
	})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.auth.SignOut(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type mfaEnrollRequest struct {
	Kind        string `json:"kind"`
	DisplayName string `json:"display_name"`
	Secret      string `json:"secret"`
}

func (s *Server) handleMFAEnroll(w http.ResponseWriter, r *http.Request) {
	var req mfaEnrollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	factor, err := s.auth.EnrollFactor(r.Context(), userID(r), req.Kind, req.DisplayName, req.Secret)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, auth.FactorHint{
		ID:          factor.ID,
		Kind:        factor.Kind,
		DisplayName: factor.DisplayName,
	})
}
