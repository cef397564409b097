package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/secondbrainhq/brain-back/internal/config"
	"github.com/secondbrainhq/brain-back/internal/service"
	"github.com/secondbrainhq/brain-back/internal/token"
)

const userIDContextKey = "userID"

type (
	CredentialsReq struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	ContentReq struct {
		Link  string `json:"link" validate:"required"`
		Type  string `json:"type" validate:"required"`
		Title string `json:"title" validate:"required"`
	}

	ContentDeleteReq struct {
		ContentID uint64 `json:"contentId" validate:"required"`
	}

	ShareReq struct {
		Share *bool `json:"share" validate:"required"`
	}

	ContentResp struct {
		ID       uint64   `json:"id"`
		Link     string   `json:"link"`
		Type     string   `json:"type"`
		Title    string   `json:"title"`
		Tags     []string `json:"tags"`
		Username string   `json:"username"`
	}

	ContentListResp struct {
		Content []ContentResp `json:"content"`
	}

	SharedBrainResp struct {
		Username string        `json:"username"`
		Content  []ContentResp `json:"content"`
	}

	SigninResp struct {
		Message string `json:"message"`
		Token   string `json:"token"`
	}

	HashResp struct {
		Hash string `json:"hash"`
	}

	MessageResp struct {
		Message string `json:"message"`
	}

	CustomValidator struct {
		validator *validator.Validate
	}

	HTTPServer struct {
		echo   *echo.Echo
		svc    *service.General
		cfg    *config.Config
		logger *zap.SugaredLogger
	}
)

// Routes the auth gate lets through without a bearer credential.
var publicPaths = map[string]bool{
	"/api/v1/signup":           true,
	"/api/v1/signin":           true,
	"/api/v1/brain/:shareLink": true,
	"/ping":                    true,
}

func newServer(cfg *config.Config, svc *service.General, logger *zap.SugaredLogger) *HTTPServer {
	e := echo.New()

	instance := HTTPServer{
		echo:   e,
		svc:    svc,
		cfg:    cfg,
		logger: logger,
	}

	api := e.Group("/api/v1")
	api.POST("/signup", instance.Signup)
	api.POST("/signin", instance.Signin)
	api.POST("/content", instance.ContentCreate)
	api.GET("/content", instance.ContentList)
	api.DELETE("/content", instance.ContentDelete)
	api.POST("/brain/share", instance.Share)
	api.GET("/brain/:shareLink", instance.ShareResolve)

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.AllowedOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyDumpWithConfig(middleware.BodyDumpConfig{
		Handler: func(c echo.Context, reqBody, resBody []byte) {
			if len(reqBody) == 0 {
				return
			}
			logger.Debugw("request body", "path", c.Path(), "body", string(censorBody(reqBody)))
		},
	}))

	e.Use(instance.AuthMiddleware)

	e.Validator = &CustomValidator{validator: validator.New()}

	echo.NotFoundHandler = func(c echo.Context) error {
		return c.NoContent(http.StatusNotFound)
	}

	return &instance
}

func NewHTTPServer(lc fx.Lifecycle, cfg *config.Config, svc *service.General, logger *zap.SugaredLogger) *HTTPServer {
	instance := newServer(cfg, svc, logger)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.Host + ":" + cfg.Port
				if err := instance.echo.Start(listen); err != nil && err != http.ErrServerClosed {
					instance.echo.Logger.Fatal("shutting down the server")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return instance.echo.Shutdown(ctx)
		},
	})

	return instance
}

func (s *HTTPServer) Signup(c echo.Context) error {
	req := CredentialsReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	if err := s.svc.Register(req.Username, req.Password); err != nil {
		return s.mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, MessageResp{Message: "User created successfully"})
}

func (s *HTTPServer) Signin(c echo.Context) error {
	req := CredentialsReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	signed, err := s.svc.Login(req.Username, req.Password)
	if err != nil {
		return s.mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, SigninResp{
		Message: "Signed in successfully",
		Token:   signed,
	})
}

func (s *HTTPServer) ContentCreate(c echo.Context) error {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	req := ContentReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	if _, err := s.svc.ContentCreate(userID, req.Link, req.Type, req.Title); err != nil {
		return s.mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, MessageResp{Message: "Content added"})
}

func (s *HTTPServer) ContentList(c echo.Context) error {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	rows, err := s.svc.ContentList(userID)
	if err != nil {
		return s.mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, ContentListResp{Content: contentRespFromRows(rows)})
}

func (s *HTTPServer) ContentDelete(c echo.Context) error {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	req := ContentDeleteReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	if err := s.svc.ContentDelete(userID, req.ContentID); err != nil {
		return s.mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, MessageResp{Message: "Deleted"})
}

func (s *HTTPServer) Share(c echo.Context) error {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		return err
	}

	req := ShareReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	if *req.Share {
		hash, err := s.svc.ShareEnable(userID)
		if err != nil {
			return s.mapServiceError(c, err)
		}
		return c.JSON(http.StatusOK, HashResp{Hash: hash})
	}

	if err := s.svc.ShareDisable(userID); err != nil {
		return s.mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResp{Message: "Removed link"})
}

func (s *HTTPServer) ShareResolve(c echo.Context) error {
	hash, err := GetParam(c, "shareLink")
	if err != nil {
		return err
	}

	brain, err := s.svc.ShareResolve(hash)
	if err != nil {
		return s.mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, SharedBrainResp{
		Username: brain.Username,
		Content:  contentRespFromRows(brain.Content),
	})
}

func (s *HTTPServer) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if publicPaths[c.Path()] {
			return next(c)
		}

		header := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
		if header == "" {
			return c.NoContent(http.StatusUnauthorized)
		}
		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		claims, err := token.Parse(s.cfg.JWTSecret, raw)
		if err != nil {
			s.logger.Debugw("reject bearer token", "error", err)
			return c.NoContent(http.StatusUnauthorized)
		}

		c.Set(userIDContextKey, claims.UserID)
		return next(c)
	}
}

// mapServiceError translates service sentinels into response statuses; every
// unknown failure becomes a generic 500 with no internal detail leaked.
func (s *HTTPServer) mapServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrUsernameTaken):
		return c.JSON(http.StatusConflict, MessageResp{Message: "User already exists"})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, MessageResp{Message: "Invalid credentials"})
	case errors.Is(err, service.ErrLinkNotFound):
		return c.JSON(http.StatusNotFound, MessageResp{Message: "Link not found"})
	case errors.Is(err, service.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, MessageResp{Message: "User not found"})
	default:
		s.logger.Errorw("request failed", "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, MessageResp{Message: "Something went wrong"})
	}
}

func contentRespFromRows(rows []service.ContentRow) []ContentResp {
	resp := make([]ContentResp, len(rows))
	for i := range rows {
		resp[i] = ContentResp{
			ID:       rows[i].ID,
			Link:     rows[i].Link,
			Type:     rows[i].Type,
			Title:    rows[i].Title,
			Tags:     []string{},
			Username: rows[i].Username,
		}
	}
	return resp
}

// censorBody hides the password field of a JSON body before it hits the logs.
func censorBody(body []byte) []byte {
	parsed := map[string]interface{}{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return body
	}
	if _, ok := parsed["password"]; !ok {
		return body
	}
	parsed["password"] = "$censored"
	censored, err := json.Marshal(parsed)
	if err != nil {
		return body
	}
	return censored
}

////////

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func BindAndValidate(c echo.Context, v interface{}) error {
	var err error
	if err = c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err = c.Validate(v); err != nil {
		return err
	}
	return nil
}

func GetUserIDFromContext(c echo.Context) (uint64, error) {
	userID, ok := c.Get(userIDContextKey).(uint64)
	if !ok {
		return 0, errors.New("no user id found in context")
	}
	return userID, nil
}

func GetParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid path param '"+name+"'")
	}
	return value, nil
}
