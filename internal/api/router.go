package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"blog-backend/internal/auth"
	"blog-backend/internal/blogstore"
	"blog-backend/internal/config"
	"blog-backend/internal/storage"
)

// NewRouter wires the full HTTP surface. Literal routes always win over the
// {filename} patterns, and the static fallback only sees paths no API route
// claimed.
func NewRouter(authSvc *auth.Service, blogStore *blogstore.Store, backend storage.Backend, cfg *config.Config) (*chi.Mux, error) {
	authHandler := NewAuthHandler(authSvc)
	blogHandler := NewBlogHandler(blogStore)
	userHandler := NewUserHandler(authSvc.Store())
	imageHandler := NewImageHandler(backend, cfg)
	staticHandler, err := NewStaticHandler(cfg.Static.Root, backend)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	// Public surface.
	r.Post("/api/auth/login", authHandler.Login)
	r.Get("/api/blog/posts", blogHandler.GetPosts)
	r.Get("/api/blog/comments", blogHandler.GetComments)
	r.Post("/api/blog/comments", blogHandler.SaveComments)
	r.Post("/api/blog/views", blogHandler.IncrementViews)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(authSvc))

		// Reachable even while a password rotation is pending.
		r.Get("/api/auth/verify", authHandler.Verify)
		r.Post("/api/auth/password", authHandler.ChangePassword)

		r.Group(func(r chi.Router) {
			r.Use(RequireFreshPassword)

			r.Post("/api/blog/posts", blogHandler.SavePosts)
			r.Delete("/api/blog/posts", blogHandler.DeletePost)
			r.Post("/api/upload/image", imageHandler.UploadImage)
			r.Get("/api/gallery/list", imageHandler.GalleryList)
			r.Post("/api/gallery/delete", imageHandler.GalleryDelete)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)

				r.Get("/api/users", userHandler.List)
				r.Post("/api/users", userHandler.Create)
				r.Get("/api/images", imageHandler.ListImages)
				r.Post("/api/images/upload", imageHandler.BulkUpload)
				r.Delete("/api/images/{filename}", imageHandler.DeleteImage)
				r.Post("/api/images/{filename}/rename", imageHandler.RenameImage)
			})
		})
	})

	// Everything else is a static lookup: uploads through the storage
	// backend, the rest from the site root.
	r.Get("/uploads/*", staticHandler.ServeUpload)
	r.NotFound(staticHandler.ServeSite)

	return r, nil
}
