package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ProjectRakawara/rescue_svc/internal/httpapi"
)

const (
	healthRoute = "/healthz"

	publicRoutePosts         = "/posts"
	publicRoutePostsCritical = "/posts/critical/top"
	publicRoutePostsFilter   = "/posts/filter"
	publicRoutePostsStats    = "/posts/stats"

	adminRoutePrefix          = "/admin"
	adminRoutePostsUnverified = "/posts/unverified"
	adminRoutePostVerify      = "/posts/:id/verify"
	adminRoutePostDelete      = "/posts/:id"
)

func registerRoutes(router *gin.Engine, postHandlers *httpapi.PostHandlers, adminHandlers *httpapi.AdminHandlers, adminAPIToken string) {
	router.GET(healthRoute, func(requestContext *gin.Context) {
		requestContext.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST(publicRoutePosts, postHandlers.CreatePost)
	router.GET(publicRoutePosts, postHandlers.ListPosts)
	router.GET(publicRoutePostsCritical, postHandlers.TopCritical)
	router.GET(publicRoutePostsFilter, postHandlers.FilterPosts)
	router.GET(publicRoutePostsStats, postHandlers.Stats)

	adminGroup := router.Group(adminRoutePrefix)
	adminGroup.Use(httpapi.AdminAuthMiddleware(adminAPIToken))
	adminGroup.GET(adminRoutePostsUnverified, adminHandlers.ListUnverified)
	adminGroup.POST(adminRoutePostVerify, adminHandlers.VerifyPost)
	adminGroup.DELETE(adminRoutePostDelete, adminHandlers.DeletePost)
}
