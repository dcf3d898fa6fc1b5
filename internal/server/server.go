package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/papaHasuo/daily-report-feedback/api/internal/config"
	copilotapi "github.com/papaHasuo/daily-report-feedback/api/internal/infrastructure/copilot"
	mongodoc "github.com/papaHasuo/daily-report-feedback/api/internal/infrastructure/mongo"
	commonhttp "github.com/papaHasuo/daily-report-feedback/api/internal/interfaces/http/common"
	reporthttp "github.com/papaHasuo/daily-report-feedback/api/internal/interfaces/http/report"
	"github.com/papaHasuo/daily-report-feedback/api/internal/report/application"
	"github.com/papaHasuo/daily-report-feedback/api/internal/report/domain"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Server は HTTP サーバーのライフサイクルを管理し、日報フィードバックの
// パイプラインへ依存注入するコンポジションルート。設定とクライアントは
// 起動後は不変で、リクエスト間で共有される可変状態は持たない。
type Server struct {
	logger         *log.Logger
	client         *mongo.Client // Cosmos 未設定時は nil
	processor      *application.Processor
	jwtConfigs     []config.JWTConfig
	jwtAudience    string
	addr           string
	allowedOrigins []string
}

// New は Config と Mongo クライアント(未接続なら nil)を受け取り、
// プロンプト合成器・フィードバッククライアント・ストアを組み立てた Server を返す。
// テンプレート検証エラーとトークン欠落はここで即座に失敗する。
func New(cfg config.Config, client *mongo.Client) (*Server, error) {
	composer, err := application.NewPromptComposer(cfg.Prompts.UserTemplate)
	if err != nil {
		return nil, err
	}

	feedbackClient, err := copilotapi.NewClient(copilotapi.Config{
		Logger:       cfg.ServerLog,
		APIURL:       cfg.GitHubCopilot.APIURL,
		Model:        cfg.GitHubCopilot.Model,
		SystemPrompt: cfg.Prompts.FeedbackSystem,
		MaxTokens:    cfg.GitHubCopilot.MaxTokens,
		Temperature:  cfg.GitHubCopilot.Temperature,
		Token:        cfg.GitHubToken,
	})
	if err != nil {
		return nil, err
	}

	var store application.ReportStore
	if client != nil {
		db := client.Database(cfg.CosmosDB.DatabaseName)
		store = mongodoc.NewReportRepository(db, cfg.CosmosDB.ContainerName)
	} else {
		cfg.ServerLog.Printf("CosmosDB未設定: ストア操作は呼び出し時に失敗します")
		store = unavailableStore{}
	}

	return &Server{
		logger:         cfg.ServerLog,
		client:         client,
		processor:      application.NewProcessor(cfg.ServerLog, store, feedbackClient, composer),
		jwtConfigs:     append([]config.JWTConfig(nil), cfg.JWTConfigs...),
		jwtAudience:    cfg.JWTAudience,
		addr:           cfg.Addr,
		allowedOrigins: append([]string(nil), cfg.AllowedOrigins...),
	}, nil
}

// unavailableStore は接続情報が未設定(ダミー値のまま)のときのフォールバック。
// 履歴参照は「前回なし」へ縮退し、保存はリクエスト時に 500 となる。
type unavailableStore struct{}

var errStoreUnavailable = errors.New("CosmosDBが設定されていません")

func (unavailableStore) FindPrevious(context.Context, string, string) (*domain.StoredReport, error) {
	return nil, errStoreUnavailable
}

func (unavailableStore) InsertResult(context.Context, domain.ResultDocument) error {
	return errStoreUnavailable
}

// Run はHTTPサーバーを起動し、ルーティングやミドルウェアを組み立てる。
// インフラ初期化に限定し、ドメインロジックをここに書かないことで層の責務を守る。
func (s *Server) Run() error {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(withCORS(s.allowedOrigins))

	router.Get("/healthz", s.healthHandler())

	reportHandler := reporthttp.NewHandler(reporthttp.Config{
		Logger:    s.logger,
		Processor: s.processor,
	})
	reportHandler.Register(router, s.authMiddleware)

	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Printf("HTTP サーバー起動: http://%s", s.addr)
		errChan <- httpServer.ListenAndServe()
	}()

	waitForShutdown(httpServer, errChan, s)
	return nil
}

// withCORS は許可されたオリジン情報をもとに CORS ヘッダーを付与するミドルウェアを返す。
func withCORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{})
	allowAll := false
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || (!allowAll && len(allowed) > 0 && !originAllowed(origin, allowed)) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
			w.Header().Set("Access-Control-Max-Age", "300")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// originAllowed は指定された Origin が許可リストに含まれるか判定する。
func originAllowed(origin string, allowed map[string]struct{}) bool {
	if len(allowed) == 0 {
		return true
	}
	_, ok := allowed[origin]
	return ok
}

// healthHandler はドキュメントストアへの疎通確認を行い、監視系からの
// ヘルスチェック要求に応える。ストア未設定時は開発モードである旨を返す。
func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if s.client == nil {
			s.writeJSON(w, http.StatusOK, map[string]string{
				"status": "ok",
				"mode":   "development",
				"time":   time.Now().Format(time.RFC3339),
			})
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  err.Error(),
			})
			return
		}

		s.writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}

// writeJSON は JSON レスポンスの共通書き込み処理。
func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	commonhttp.WriteJSON(s.logger, w, status, payload)
}

// shutdown はドキュメントストアのクライアントをタイムアウト付きで切断する。
func (s *Server) shutdown(ctx context.Context) {
	if s.client == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(shutdownCtx); err != nil {
		s.logger.Printf("CosmosDB切断時にエラー: %v", err)
	}
}

// waitForShutdown は ListenAndServe の終了と OS シグナルを監視し、graceful shutdown を実現する。
func waitForShutdown(httpServer *http.Server, errChan <-chan error, srv *Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.logger.Fatalf("サーバーが異常終了: %v", err)
		}
	case sig := <-sigChan:
		srv.logger.Printf("シグナル %s を受信。サーバー停止処理を開始します。", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			srv.logger.Printf("サーバー停止時にエラー: %v", err)
		}
	}

	srv.shutdown(context.Background())
}
