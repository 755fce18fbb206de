package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"authkit-session/internal/authkit"
	"authkit-session/internal/common/errors"
	"authkit-session/internal/common/logging"
)

func signInOptions(r *http.Request) authkit.SignInOptions {
	q := r.URL.Query()
	opts := authkit.SignInOptions{
		LoginHint:          q.Get("login_hint"),
		OrganizationID:     q.Get("organization_id"),
		InvitationToken:    q.Get("invitation_token"),
		PasswordResetToken: q.Get("password_reset_token"),
	}
	if next := q.Get("next"); next != "" {
		opts.State = map[string]string{"next": next}
	}
	return opts
}

// Login redirects to the hosted sign-in page.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	target, err := h.session().GetSignInURL(r.Context(), signInOptions(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Signup redirects to the hosted sign-up page.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	target, err := h.session().GetSignUpURL(r.Context(), signInOptions(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Callback loads the redirect target as a new page, which completes the code
// exchange, and replaces the current session with it.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	href, err := url.Parse(h.config.RedirectURI)
	if err != nil {
		h.writeError(w, errors.ConfigError("invalid redirect uri"))
		return
	}
	href.RawQuery = r.URL.RawQuery

	next, err := h.load(r.Context(), href.String())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.replace(next)

	if next.State() != authkit.StateAuthenticated {
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error: "sign in did not complete",
			Type:  string(errors.ErrTypeLoginRequired),
		})
		return
	}

	user, err := next.GetUser(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("Signed in", logging.Field{Key: "user_id", Value: user.ID})
	writeJSON(w, http.StatusOK, map[string]interface{}{"state": next.State().String(), "user": user})
}

// Token returns a usable access token; ?force=true skips the freshness check.
func (h *Handlers) Token(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	token, err := h.session().GetAccessToken(r.Context(), force)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

// User returns the signed-in user.
func (h *Handlers) User(w http.ResponseWriter, r *http.Request) {
	user, err := h.session().GetUser(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if user == nil {
		h.writeError(w, errors.LoginRequiredError(nil))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// SwitchOrganization moves the session to the organization in the path.
// When the provider refuses the switch the session ends, and the response
// redirects to sign in to that organization.
func (h *Handlers) SwitchOrganization(w http.ResponseWriter, r *http.Request) {
	organizationID := mux.Vars(r)["id"]
	opts := signInOptions(r)

	current := h.session()
	if err := current.SwitchToOrganization(r.Context(), organizationID, opts); err != nil {
		h.writeError(w, err)
		return
	}
	if current.State() == authkit.StateAuthenticated {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	opts.OrganizationID = organizationID
	signInURL, err := current.GetSignInURL(r.Context(), opts)
	if err != nil {
		h.writeError(w, err)
		return
	}
	http.Redirect(w, r, signInURL, http.StatusFound)
}

// Logout ends the session at the provider from the server side.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.session().SignOut(r.Context(), authkit.SignOutOptions{
		ReturnTo:   r.URL.Query().Get("return_to"),
		Background: true,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck reports the session state.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"state":  h.session().State().String(),
	})
}

// Routes registers every endpoint on router.
func (h *Handlers) Routes(router *mux.Router) {
	router.HandleFunc("/login", h.Login).Methods("GET")
	router.HandleFunc("/signup", h.Signup).Methods("GET")
	router.HandleFunc("/callback", h.Callback).Methods("GET")
	router.HandleFunc("/token", h.Token).Methods("GET")
	router.HandleFunc("/user", h.User).Methods("GET")
	router.HandleFunc("/organizations/{id}/switch", h.SwitchOrganization).Methods("POST")
	router.HandleFunc("/logout", h.Logout).Methods("POST")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
