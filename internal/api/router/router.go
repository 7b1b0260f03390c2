package router

import (
	"context"
	"errors"

	"resume-ats-go/internal/api/handler"
	"resume-ats-go/internal/config"
	"resume-ats-go/internal/metrics"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/middlewares/server/recovery"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
)

var errInvalidAPIKey = errors.New("invalid api key")

// RegisterRoutes 注册 API 路由；m 为 nil 时不暴露指标
func RegisterRoutes(h *server.Hertz, analysisHandler *handler.AnalysisHandler, m *metrics.Metrics, auth config.AuthConfig) {
	// server.New 不带默认中间件，panic 需要在这里兜住
	h.Use(recovery.Recovery(recovery.WithRecoveryHandler(analysisHandler.HandlePanic)))
	if m != nil {
		h.Use(m.Middleware())
		h.GET("/metrics", m.Handler())
	}
	h.GET("/health", analysisHandler.HandleHealth)

	api := h.Group("/api/v1")
	if len(auth.APIKeys) > 0 {
		api.Use(apiKeyAuth(auth.APIKeys))
	}

	api.POST("/analyze", analysisHandler.HandleAnalyze)
	api.POST("/enhance", analysisHandler.HandleEnhance)
	api.GET("/roles", analysisHandler.HandleRoles)
	api.GET("/analyses", analysisHandler.HandleListAnalyses)
	api.GET("/analyses/:id", analysisHandler.HandleGetAnalysis)
	api.GET("/analyses/:id/original", analysisHandler.HandleDownloadOriginal)
}

// apiKeyAuth 校验 Authorization: Bearer <key>，并把对应用户写入上下文
func apiKeyAuth(keys map[string]string) app.HandlerFunc {
	return keyauth.New(
		keyauth.WithKeyLookUp("header:"+consts.HeaderAuthorization, "Bearer"),
		keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
			user, ok := keys[key]
			if !ok || user == "" {
				return false, errInvalidAPIKey
			}
			c.Set(handler.UserContextKey, user)
			return true, nil
		}),
		keyauth.WithErrorHandler(func(ctx context.Context, c *app.RequestContext, err error) {
			c.AbortWithStatusJSON(consts.StatusUnauthorized, handler.ErrorResponse{
				Success: false,
				Error:   handler.ErrorBody{Code: "unauthorized", Message: "Missing or invalid API key."},
			})
		}),
	)
}
