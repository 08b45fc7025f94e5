package gatekeeper

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// SignupControllerRoutes holds the route layout for the controller.
type SignupControllerRoutes struct {
	Submit  string
	Resume  string
	Social  string
	Session string
}

// SignupController exposes the signup orchestrator and session observer over
// HTTP. The resume route must be registered at the checkout return URL so
// the redirect back from the payment provider lands on it.
type SignupController struct {
	Debug        bool
	Logger       Logger
	Orchestrator *SignupOrchestrator
	Observer     *SessionObserver
	Routes       *SignupControllerRoutes
}

// SignupControllerOption configures the controller.
type SignupControllerOption func(*SignupController) *SignupController

// WithControllerLogger overrides the controller logger.
func WithControllerLogger(logger Logger) SignupControllerOption {
	return func(c *SignupController) *SignupController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithControllerDebug enables request payload dumps.
func WithControllerDebug(debug bool) SignupControllerOption {
	return func(c *SignupController) *SignupController {
		c.Debug = debug
		return c
	}
}

// WithControllerRoutes overrides the default route layout.
func WithControllerRoutes(routes *SignupControllerRoutes) SignupControllerOption {
	return func(c *SignupController) *SignupController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

// WithControllerOrchestrator sets the signup orchestrator.
func WithControllerOrchestrator(o *SignupOrchestrator) SignupControllerOption {
	return func(c *SignupController) *SignupController {
		c.Orchestrator = o
		return c
	}
}

// WithControllerObserver sets the session observer.
func WithControllerObserver(o *SessionObserver) SignupControllerOption {
	return func(c *SignupController) *SignupController {
		c.Observer = o
		return c
	}
}

func NewSignupController(opts ...SignupControllerOption) *SignupController {
	c := &SignupController{
		Logger: defLogger{},
		Routes: &SignupControllerRoutes{
			Submit:  "/signup",
			Resume:  "/signup",
			Social:  "/signup/social",
			Session: "/session",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Orchestrator == nil {
		panic("Missing SignupOrchestrator in signup controller...")
	}

	if c.Observer == nil {
		panic("Missing SessionObserver in signup controller...")
	}

	return c
}

// RegisterSignupRoutes wires the controller into a router.
func RegisterSignupRoutes(app RouteRegistrar, opts ...SignupControllerOption) *SignupController {
	controller := NewSignupController(opts...)

	app.Post(controller.Routes.Submit, controller.SignupSubmit)
	app.Get(controller.Routes.Resume, controller.SignupResume)
	app.Post(controller.Routes.Social, controller.SignupSocial)
	app.Get(controller.Routes.Session, controller.SessionShow)

	return controller
}

// SignupSubmit handles the signup form submission.
func (c *SignupController) SignupSubmit(ctx router.Context) error {
	payload := new(SubmitSignupMessage)

	if err := ctx.Bind(payload); err != nil {
		c.Logger.Error("signup submit parse payload: %v", err)
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"error": "failed to parse signup payload",
		})
	}

	if c.Debug {
		fmt.Println("======= SIGNUP SUBMIT =======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=============================")
	}

	result, err := c.Orchestrator.Submit(ctx.Context(), payload.toDraft())
	if err != nil {
		return c.signupError(ctx, result, err)
	}

	return ctx.JSON(router.StatusOK, signupResponse(result))
}

// SignupResume handles the return leg of the checkout redirect. Registered
// at the same path the success and cancel URLs point to; requests without a
// checkout marker fall through to a plain state report.
func (c *SignupController) SignupResume(ctx router.Context) error {
	result, err := c.Orchestrator.ResumeFromURL(ctx.Context(), ctx.OriginalURL())
	if err != nil {
		return c.signupError(ctx, nil, err)
	}

	if !result.Handled {
		return ctx.JSON(router.StatusOK, map[string]any{
			"state": string(result.State),
		})
	}

	// Redirect to the marker-free URL so a refresh cannot replay the
	// transition. The notice travels with the session state, not the URL.
	return ctx.Redirect(result.CleanURL, router.StatusSeeOther)
}

// SocialSignupPayload selects the federated provider.
type SocialSignupPayload struct {
	Provider string `form:"provider" json:"provider"`
}

// SignupSocial handles federated provider signup.
func (c *SignupController) SignupSocial(ctx router.Context) error {
	payload := new(SocialSignupPayload)

	if err := ctx.Bind(payload); err != nil {
		c.Logger.Error("social signup parse payload: %v", err)
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"error": "failed to parse social signup payload",
		})
	}

	result, err := c.Orchestrator.SignUpWithProvider(ctx.Context(), ProviderKind(payload.Provider))
	if err != nil {
		return c.signupError(ctx, result, err)
	}

	return ctx.JSON(router.StatusOK, signupResponse(result))
}

// SessionShow reports the current session.
func (c *SignupController) SessionShow(ctx router.Context) error {
	session := c.Observer.Current()

	body := map[string]any{
		"state": string(session.State),
		"role":  string(session.Role),
	}
	if session.Identity != nil {
		body["identity"] = map[string]string{
			"id":    session.Identity.ID,
			"email": session.Identity.Email,
		}
	}

	return ctx.JSON(router.StatusOK, body)
}

func (c *SignupController) signupError(ctx router.Context, result *SignupResult, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "signup failed").
			WithCode(goerrors.CodeInternal)
	}

	c.Logger.Error("signup error: %s category=%s details=%s",
		richErr.Message, richErr.Category, print.MaybePrettyJSON(richErr.Metadata))

	status := richErr.Code
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	body := map[string]any{
		"error": UserMessage(err),
		"code":  richErr.TextCode,
	}
	if result != nil {
		body["state"] = string(result.State)
		if len(result.FieldErrors) > 0 {
			body["field_errors"] = result.FieldErrors
		}
	}

	return ctx.JSON(status, body)
}

func signupResponse(result *SignupResult) map[string]any {
	body := map[string]any{
		"state": string(result.State),
	}
	if result.Notice != "" {
		body["notice"] = result.Notice
	}
	if result.Identity != nil {
		body["identity"] = map[string]string{
			"id":    result.Identity.ID,
			"email": result.Identity.Email,
		}
	}
	if result.Profile != nil {
		body["profile"] = result.Profile
	}
	if len(result.FieldErrors) > 0 {
		body["field_errors"] = result.FieldErrors
	}
	return body
}

// GuardMiddleware evaluates the route policy for every request before the
// handler runs. Pending sessions get a retryable 503 rather than a redirect,
// mirroring the loading placeholder a UI would render.
func GuardMiddleware(observer *SessionObserver, guard *RouteGuard) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			session := observer.Current()
			decision := guard.Decide(session, ctx.Path())

			if decision.Pending {
				return ctx.JSON(fiber.StatusServiceUnavailable, map[string]any{
					"status": "pending",
				})
			}

			if decision.RedirectTo != "" {
				return ctx.Redirect(decision.RedirectTo, router.StatusSeeOther)
			}

			ctx.Locals(SessionContextKey, session)
			return next(ctx)
		}
	}
}
