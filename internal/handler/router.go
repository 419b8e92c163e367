package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/tsuzuri/internal/metrics"
	"github.com/hitoshi/tsuzuri/internal/middleware"
	"github.com/hitoshi/tsuzuri/internal/view"
)

// HealthChecker はヘルスチェックが必要とするDB疎通確認インターフェース。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder middleware.SessionFinder
	Logger        *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 記事
	PostService PostServiceInterface
	Uploader    ImageSaver

	// 描画
	Renderer *view.Renderer

	// 運用系
	Collector     metrics.MetricsCollector
	Gatherer      prometheus.Gatherer
	HealthChecker HealthChecker

	// 静的配信
	UploadDir string // 添付画像の保存先（/uploads/で配信）
	StaticDir string // CSS等の静的アセット（/static/で配信）
}

// NewRouter は全ルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → MethodOverride → SecurityHeaders → Metrics → Logging
//
// メソッドオーバーライドはルーティングより前に解決する必要があるため
// チェーンの先頭側に置く。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewMethodOverrideMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.Collector != nil {
		r.Use(metrics.NewHTTPMetricsMiddleware(deps.Collector))
	}
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.Renderer, deps.AuthConfig)
	postHandler := NewPostHandler(deps.PostService, deps.Uploader, deps.AuthService, deps.Renderer, deps.Collector)

	// --- 認証不要のルート ---

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/posts", http.StatusSeeOther)
	})

	r.Get("/register", authHandler.ShowRegister)
	r.Post("/register", authHandler.Register)
	r.Get("/login", authHandler.ShowLogin)
	r.Post("/login", authHandler.Login)
	r.Get("/logout", authHandler.Logout)

	r.Route("/posts", func(r chi.Router) {
		r.Get("/", postHandler.Index)

		// --- 認証が必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRequireLoginMiddleware(deps.SessionFinder))

			r.Get("/new", postHandler.New)
			r.Post("/", postHandler.Create)
			r.Get("/{id}/edit", postHandler.Edit)
			r.Put("/{id}", postHandler.Update)
			r.Delete("/{id}", postHandler.Delete)
		})

		r.Get("/{id}", postHandler.Show)
	})

	// 添付画像と静的アセットの配信
	if deps.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.UploadDir))))
	}
	if deps.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(deps.StaticDir))))
	}

	// --- 運用系エンドポイント ---

	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
