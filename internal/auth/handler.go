package auth

import (
	"context"
	"errors"
	"net/http"

	"flightbooker/internal/apperr"
	"flightbooker/pkg/oauth2"

	"github.com/gin-gonic/gin"
)

// SocialProviders runs the redirect half and the callback half of a social login.
type SocialProviders interface {
	AuthURL(name string) (string, error)
	Complete(ctx context.Context, name, code, state string) (*oauth2.Identity, error)
}

type Handler struct {
	service      *Service
	providers    SocialProviders
	secureCookie bool
}

// NewHandler wires the auth endpoints. providers may be nil when no social
// login is configured.
func NewHandler(s *Service, providers SocialProviders, secureCookie bool) *Handler {
	return &Handler{service: s, providers: providers, secureCookie: secureCookie}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	g := router.Group("/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
	g.POST("/confirmEmail", h.ConfirmEmail)
	g.POST("/resendConfirmationEmail", h.ResendConfirmationEmail)
	g.GET("/google", h.startSocial("google"))
	g.GET("/github", h.startSocial("github"))
	g.GET("/callback/:provider", h.Callback)
}

// Register godoc
// @Summary  Create an account
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    request body RegisterRequest true "Sign-up form"
// @Success  201 {object} apperr.Success
// @Failure  400 {object} apperr.Envelope
// @Router   /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BindError(c, err)
		return
	}
	id, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		apperr.WriteForm(c, err)
		return
	}
	apperr.OK(c, http.StatusCreated, map[string]any{"userId": id})
}

// Login godoc
// @Summary  Sign in with email and password
// @Tags     auth
// @Accept   json
// @Produce  json
// @Param    request body LoginRequest true "Credentials"
// @Success  200 {object} apperr.Success
// @Failure  400 {object} apperr.Envelope
// @Router   /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BindError(c, err)
		return
	}
	signed, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		apperr.WriteForm(c, err)
		return
	}
	h.setSession(c, signed)
	apperr.OK(c, http.StatusOK, map[string]any{"userId": signed.UserID, "role": signed.Role})
}

func (h *Handler) setSession(c *gin.Context, signed *SignedIn) {
	maxAge := 0
	if signed.RememberMe {
		maxAge = int(signed.TTL.Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, signed.SessionID, maxAge, "/", "", h.secureCookie, true)
}

func (h *Handler) Logout(c *gin.Context) {
	sessionID, _ := c.Cookie(SessionCookie)
	if err := h.service.Logout(c.Request.Context(), sessionID); err != nil {
		apperr.Write(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", h.secureCookie, true)
	apperr.OK(c, http.StatusOK, nil)
}

func (h *Handler) ConfirmEmail(c *gin.Context) {
	var req ConfirmEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BindError(c, err)
		return
	}
	if err := h.service.ConfirmEmail(c.Request.Context(), req); err != nil {
		apperr.WriteForm(c, err)
		return
	}
	apperr.OK(c, http.StatusOK, nil)
}

func (h *Handler) ResendConfirmationEmail(c *gin.Context) {
	var req ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BindError(c, err)
		return
	}
	if err := h.service.ResendConfirmationEmail(c.Request.Context(), req.UserID); err != nil {
		apperr.WriteForm(c, err)
		return
	}
	apperr.OK(c, http.StatusOK, nil)
}

func (h *Handler) startSocial(provider string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.providers == nil {
			apperr.Write(c, apperr.NotFound("provider", "Sign-in with %s is not enabled.", provider))
			return
		}
		authURL, err := h.providers.AuthURL(provider)
		if errors.Is(err, oauth2.ErrProviderNotFound) {
			apperr.Write(c, apperr.NotFound("provider", "Sign-in with %s is not enabled.", provider))
			return
		}
		if err != nil {
			apperr.Write(c, err)
			return
		}
		c.Redirect(http.StatusTemporaryRedirect, authURL)
	}
}

func (h *Handler) Callback(c *gin.Context) {
	provider := c.Param("provider")
	if h.providers == nil {
		apperr.Write(c, apperr.NotFound("provider", "Sign-in with %s is not enabled.", provider))
		return
	}
	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		apperr.Write(c, apperr.Validation(apperr.GeneralField, "Missing code or state."))
		return
	}

	identity, err := h.providers.Complete(c.Request.Context(), provider, code, state)
	switch {
	case errors.Is(err, oauth2.ErrProviderNotFound):
		apperr.Write(c, apperr.NotFound("provider", "Sign-in with %s is not enabled.", provider))
		return
	case errors.Is(err, oauth2.ErrStateNotFound), errors.Is(err, oauth2.ErrStateExpired):
		apperr.Write(c, apperr.Unauthorized("The sign-in attempt expired. Please try again."))
		return
	case err != nil:
		_ = c.Error(err)
		apperr.Write(c, apperr.Unauthorized("Sign-in with %s failed.", provider))
		return
	}

	signed, err := h.service.SocialLogin(c.Request.Context(), identity)
	if err != nil {
		apperr.WriteForm(c, err)
		return
	}
	h.setSession(c, signed)
	apperr.OK(c, http.StatusOK, map[string]any{"userId": signed.UserID, "role": signed.Role})
}
