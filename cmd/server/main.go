package main

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sfdatacloud/server/internal/db"
	"sfdatacloud/server/internal/mcp"
	"sfdatacloud/server/internal/middleware"
	"sfdatacloud/server/internal/modules"
	"sfdatacloud/server/internal/modules/datacloud"
	"sfdatacloud/server/internal/modules/insightsai"
	"sfdatacloud/server/internal/observability"
	"sfdatacloud/server/pkg/salesforceapi"
)

const mcpEndpoint = "/v1/mcp"

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)

	observability.Init()
	db.Init()

	auth, username, loginURL, err := buildAuthenticator()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	apiVersion := getenv("SALESFORCE_API_VERSION", "v59.0")
	session := salesforceapi.NewSession(loggedAuth{inner: auth})
	api := salesforceapi.NewAPI(session, apiVersion, salesforceapi.Config{})

	modules.RegisterModule(datacloud.New(api, datacloud.Config{
		LoginURL:   loginURL,
		APIVersion: apiVersion,
		Username:   username,
	}))
	modules.RegisterModule(insightsai.New())

	for _, m := range modules.ListModules() {
		log.Printf("registered module %s with %d tools", m.Name(), len(m.Tools()))
	}

	limiter := middleware.NewRateLimiter(120, 30)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, `{"status":"ok"}`)
	})
	mux.HandleFunc("GET /v1/usage", handleUsage)
	mux.Handle(mcpEndpoint, middleware.Recovery(
		middleware.RequestID(
			limiter.Middleware(
				middleware.Transport(mcpEndpoint, mcp.Handle)))))

	port := getenv("PORT", "8080")
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		// No global write timeout: SSE sessions stay open indefinitely.
	}

	go func() {
		log.Printf("listening on :%s (mcp endpoint %s)", port, mcpEndpoint)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// loggedAuth records credential lifecycle events around the real
// authenticator.
type loggedAuth struct {
	inner salesforceapi.Authenticator
}

func (a loggedAuth) Authenticate(ctx context.Context) (salesforceapi.Credential, error) {
	cred, err := a.inner.Authenticate(ctx)
	if err != nil {
		observability.LogAuthEvent("login_failed", err.Error())
		return cred, err
	}
	observability.LogAuthEvent("login", "")
	return cred, nil
}

// handleUsage reports per-tool call counts over the last 24 hours from the
// audit log. Empty when auditing is disabled.
func handleUsage(w http.ResponseWriter, r *http.Request) {
	summary, err := db.ToolUsageSince(r.Context(), time.Now().Add(-24*time.Hour))
	if err != nil {
		http.Error(w, "usage query failed", http.StatusInternalServerError)
		return
	}
	if summary == nil {
		summary = []db.UsageSummary{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"window": "24h", "tools": summary}); err != nil {
		log.Printf("encode usage response: %v", err)
	}
}

// buildAuthenticator picks the credential flow from the environment:
// SALESFORCE_CLIENT_ID plus a private key selects the OAuth JWT bearer
// flow, otherwise the SOAP username/password login is used.
func buildAuthenticator() (salesforceapi.Authenticator, string, string, error) {
	loginURL := getenv("SALESFORCE_LOGIN_URL", "https://login.salesforce.com")
	username := os.Getenv("SALESFORCE_USERNAME")
	if username == "" {
		return nil, "", "", fmt.Errorf("SALESFORCE_USERNAME is required")
	}

	if clientID := os.Getenv("SALESFORCE_CLIENT_ID"); clientID != "" {
		key, err := loadPrivateKey()
		if err != nil {
			return nil, "", "", err
		}
		return &salesforceapi.JWTBearerAuthenticator{
			LoginURL:   loginURL,
			ClientID:   clientID,
			Username:   username,
			PrivateKey: key,
		}, username, loginURL, nil
	}

	password := os.Getenv("SALESFORCE_PASSWORD")
	if password == "" {
		return nil, "", "", fmt.Errorf("SALESFORCE_PASSWORD is required when SALESFORCE_CLIENT_ID is unset")
	}
	return &salesforceapi.SOAPAuthenticator{
		LoginURL:      loginURL,
		APIVersion:    getenv("SALESFORCE_API_VERSION", "v59.0"),
		Username:      username,
		Password:      password,
		SecurityToken: os.Getenv("SALESFORCE_SECURITY_TOKEN"),
	}, username, loginURL, nil
}

// loadPrivateKey reads the connected app's RSA key from
// SALESFORCE_JWT_KEY_FILE (a PEM path) or SALESFORCE_JWT_KEY (inline PEM).
func loadPrivateKey() (*rsa.PrivateKey, error) {
	var pemData []byte
	if path := os.Getenv("SALESFORCE_JWT_KEY_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read SALESFORCE_JWT_KEY_FILE: %w", err)
		}
		pemData = data
	} else if inline := os.Getenv("SALESFORCE_JWT_KEY"); inline != "" {
		pemData = []byte(inline)
	} else {
		return nil, fmt.Errorf("SALESFORCE_JWT_KEY_FILE or SALESFORCE_JWT_KEY is required for the jwt bearer flow")
	}

	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("jwt key is not valid PEM")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse jwt key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("jwt key is not an RSA private key")
	}
	return key, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
