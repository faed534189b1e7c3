package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/chitoku-k/hoarder-sub005/internal/profile"
	"github.com/chitoku-k/hoarder-sub005/server/internal/observability"
	"github.com/chitoku-k/hoarder-sub005/server/service/tag"
	"github.com/chitoku-k/hoarder-sub005/store"
)

type APIV1Service struct {
	Profile    *profile.Profile
	Store      *store.Store
	TagService tag.Service
	Metrics    *observability.Metrics
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, tagService tag.Service, metrics *observability.Metrics) *APIV1Service {
	return &APIV1Service{
		Profile:    profile,
		Store:      store,
		TagService: tagService,
		Metrics:    metrics,
	}
}

// RegisterRoutes registers the tag and media endpoints with the given Echo instance.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo, middlewares ...echo.MiddlewareFunc) {
	apiGroup := echoServer.Group("/api/v1", middlewares...)
	apiGroup.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(_ string) (bool, error) {
			return true, nil
		},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"*"},
	}))

	apiGroup.GET("/tags", s.GetTags)
	apiGroup.GET("/tags/batch", s.GetTagsByIDs)
	apiGroup.GET("/tags/search", s.GetTagsByNameOrAliasLike)
	apiGroup.POST("/tags", s.CreateTag)
	apiGroup.PATCH("/tags/:id", s.UpdateTag)
	apiGroup.POST("/tags/:id/attach", s.AttachTag)
	apiGroup.POST("/tags/:id/detach", s.DetachTag)
	apiGroup.DELETE("/tags/:id", s.DeleteTag)

	apiGroup.GET("/media", s.ListMedia)
	apiGroup.POST("/media", s.CreateMedia)
	apiGroup.DELETE("/media/:id", s.DeleteMedia)
}
