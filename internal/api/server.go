// Package api exposes the WiFi service over HTTP and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/bbernstein/lacylights-wifi/internal/database/models"
	"github.com/bbernstein/lacylights-wifi/internal/services/diagnostics"
	"github.com/bbernstein/lacylights-wifi/internal/services/pubsub"
	"github.com/bbernstein/lacylights-wifi/internal/services/wifi"
)

// EventLister reads recorded radio events.
type EventLister interface {
	ListRecent(ctx context.Context, operation string, limit int) ([]models.RadioEvent, error)
}

// Options configures the router.
type Options struct {
	Version     string
	CORSOrigin  string
	Debug       bool
	STUNServers []string
	Gatherer    prometheus.Gatherer
}

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	wifi     *wifi.Service
	events   EventLister
	pubsub   *pubsub.PubSub
	opts     Options
	log      logr.Logger
	upgrader websocket.Upgrader
	started  time.Time

	// publicAddress is swapped in tests.
	publicAddress func(ctx context.Context, servers []string, timeout time.Duration) (string, error)
}

// NewServer creates the API server. events and ps may be nil.
func NewServer(svc *wifi.Service, events EventLister, ps *pubsub.PubSub, opts Options, log logr.Logger) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		wifi:   svc,
		events: events,
		pubsub: ps,
		opts:   opts,
		log:    log.WithName("api"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for WebSocket
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		started:       time.Now(),
		publicAddress: diagnostics.PublicAddress,
	}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{s.opts.CORSOrigin, "http://localhost:3000", "http://localhost:4000"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		Debug:            s.opts.Debug,
	})
	router.Use(corsMiddleware.Handler)

	router.Get("/health", s.health)
	router.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	router.Get("/ws/status", s.statusStream)

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Route("/wifi", func(r chi.Router) {
			r.Get("/status", s.status)
			r.Get("/scan", s.scan)
			r.Get("/events", s.listEvents)

			r.Post("/ap/open", s.openAccessPoint)
			r.Post("/ap/open-from-config", s.openAccessPointFromConfig)
			r.Post("/ap/close", s.closeAccessPoint)
			r.Delete("/ap/config", s.removeAccessPointConfig)

			r.Post("/station/connect", s.connect)
			r.Post("/station/connect-from-config", s.connectFromConfig)
			r.Post("/station/disconnect", s.disconnect)
			r.Get("/station/saved", s.savedNetworks)
			r.Delete("/station/config", s.removeStationConfig)
		})

		r.Route("/diagnostics", func(r chi.Router) {
			r.Get("/resolve", s.resolve)
			r.Get("/internet", s.internet)
			r.Post("/internet/wait", s.waitForInternet)
			r.Get("/public-address", s.publicAddressHandler)
		})
	})

	return router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   s.opts.Version,
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.wifi.Status())
}

func (s *Server) scan(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.wifi.ScanNetworks(r.Context()))
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeJSON(w, http.StatusOK, []models.RadioEvent{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := s.events.ListRecent(r.Context(), r.URL.Query().Get("operation"), limit)
	if err != nil {
		s.log.Error(err, "Failed to list events")
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) openAccessPoint(w http.ResponseWriter, r *http.Request) {
	var req OpenAccessPointRequest
	if !decode(w, r, &req) {
		return
	}
	result := s.wifi.OpenAccessPoint(r.Context(), req.SSID, req.Key, req.IP, req.AutoSave)
	writeJSON(w, statusFor(result.Err), result)
}

func (s *Server) openAccessPointFromConfig(w http.ResponseWriter, r *http.Request) {
	result := s.wifi.OpenAccessPointFromConfig(r.Context())
	writeJSON(w, statusFor(result.Err), result)
}

func (s *Server) closeAccessPoint(w http.ResponseWriter, r *http.Request) {
	result := s.wifi.CloseAccessPoint(r.Context())
	writeJSON(w, statusFor(result.Err), result)
}

func (s *Server) removeAccessPointConfig(w http.ResponseWriter, r *http.Request) {
	result := s.wifi.RemoveAccessPointFromConfig(r.Context())
	writeJSON(w, statusFor(result.Err), result)
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !decode(w, r, &req) {
		return
	}
	result := s.wifi.Connect(r.Context(), req.toService())
	writeJSON(w, statusFor(result.Err), result)
}

func (s *Server) connectFromConfig(w http.ResponseWriter, r *http.Request) {
	var req ConnectFromConfigRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	result := s.wifi.ConnectFromConfig(r.Context(), req.BSSIDMustMatch, seconds(req.TimeoutSec))
	writeJSON(w, statusFor(result.Err), result)
}

func (s *Server) disconnect(w http.ResponseWriter, r *http.Request) {
	result := s.wifi.Disconnect(r.Context())
	writeJSON(w, statusFor(result.Err), result)
}

func (s *Server) savedNetworks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.wifi.SavedNetworks())
}

func (s *Server) removeStationConfig(w http.ResponseWriter, r *http.Request) {
	ssid := r.URL.Query().Get("ssid")
	if ssid == "" {
		writeError(w, http.StatusBadRequest, "ssid is required")
		return
	}
	result := s.wifi.RemoveStationFromConfig(r.Context(), ssid, r.URL.Query().Get("bssid"))
	writeJSON(w, statusFor(result.Err), result)
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request) {
	host := r.URL.Query().Get("host")
	if host == "" {
		writeError(w, http.StatusBadRequest, "host is required")
		return
	}
	ip, err := s.wifi.ResolveHostname(r.Context(), host)
	if err != nil {
		writeJSON(w, statusFor(err), ResolveResponse{Host: host, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{Host: host, IP: ip, Success: true})
}

func (s *Server) internet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, InternetResponse{
		Host:     s.wifi.InternetCheckHost(),
		Internet: s.wifi.HasInternetAccess(r.Context()),
	})
}

func (s *Server) waitForInternet(w http.ResponseWriter, r *http.Request) {
	var req WaitRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, InternetResponse{
		Host:     s.wifi.InternetCheckHost(),
		Internet: s.wifi.WaitForInternetAccess(r.Context(), seconds(req.TimeoutSec)),
	})
}

func (s *Server) publicAddressHandler(w http.ResponseWriter, r *http.Request) {
	addr, err := s.publicAddress(r.Context(), s.opts.STUNServers, 3*time.Second)
	if err != nil {
		s.log.V(1).Info("Public address probe failed", "error", err.Error())
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, PublicAddressResponse{Address: addr})
}

// statusFor maps a service error to an HTTP status. The body always carries the result.
func statusFor(err error) int {
	switch wifi.ErrorKind(err) {
	case "":
		return http.StatusOK
	case "InvalidArgument":
		return http.StatusBadRequest
	case "NoProfile":
		return http.StatusNotFound
	case "NoMatchingAccessPoint":
		return http.StatusUnprocessableEntity
	case "ConnectionTimeout":
		return http.StatusGatewayTimeout
	case "RadioError", "ResolutionFailure":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
